// Package keyfetch retrieves the 16-byte decryption key for an encrypted
// stream. Fetches are authorized by a fresh proof-of-work challenge whose
// timestamp deliberately lags the wall clock, mirroring what the verifying
// service requires.
package keyfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/flyx-media/streamresolver/internal/httpx"
	"github.com/flyx-media/streamresolver/internal/pow"
)

// KeySize is the only valid key length. Any other response length is
// rejected outright.
const KeySize = 16

// Request metadata carrying the proof-of-work solution.
const (
	HeaderTimestamp = "X-Key-Timestamp"
	HeaderNonce     = "X-Key-Nonce"
)

// ErrMalformedLocation marks a key location that cannot be parsed. It is
// terminal for the attempt: no request is issued.
var ErrMalformedLocation = errors.New("malformed key location")

// InvalidKeyResponseError reports a response that is not a 2xx with exactly
// KeySize body bytes.
type InvalidKeyResponseError struct {
	StatusCode int
	Length     int
}

func (e *InvalidKeyResponseError) Error() string {
	return fmt.Sprintf("invalid key response: status=%d length=%d", e.StatusCode, e.Length)
}

// Config wires a Fetcher.
type Config struct {
	Client  httpx.Doer
	Params  pow.Params
	Timeout time.Duration
	Logger  logr.Logger

	// Now overrides the clock; tests pin it to validate the challenge.
	Now func() time.Time
}

// Fetcher authorizes and retrieves decryption keys.
type Fetcher struct {
	client  httpx.Doer
	params  pow.Params
	timeout time.Duration
	log     logr.Logger
	now     func() time.Time
}

// New builds a Fetcher. Timeout defaults to 10s.
func New(cfg Config) *Fetcher {
	f := &Fetcher{
		client:  cfg.Client,
		params:  cfg.Params,
		timeout: cfg.Timeout,
		log:     cfg.Logger,
		now:     cfg.Now,
	}
	if f.timeout <= 0 {
		f.timeout = 10 * time.Second
	}
	if f.now == nil {
		f.now = time.Now
	}
	if f.log.GetSink() == nil {
		f.log = logr.Discard()
	}
	return f
}

// Fetch retrieves the key at location, authorizing with bearer plus a
// freshly solved proof-of-work challenge. The returned slice is always
// exactly KeySize bytes on success.
func (f *Fetcher) Fetch(ctx context.Context, location, bearer string) ([]byte, error) {
	resource, keyNumber, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}

	challenge := f.params.NewChallenge(resource, keyNumber, f.now())
	f.log.V(1).Info("solved key challenge",
		"resource", resource, "keyNumber", keyNumber,
		"timestamp", challenge.Timestamp, "nonce", challenge.Nonce)

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLocation, err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(challenge.Timestamp, 10))
	req.Header.Set(HeaderNonce, strconv.FormatInt(challenge.Nonce, 10))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Read one byte past the expected size so an oversized body is
	// distinguishable without draining it.
	body, err := io.ReadAll(io.LimitReader(resp.Body, KeySize+1))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 || len(body) != KeySize {
		return nil, &InvalidKeyResponseError{StatusCode: resp.StatusCode, Length: len(body)}
	}
	return body, nil
}

// ParseLocation splits a canonical key location of the form
// https://<host>/key/<resource>/<keyNumber> into its identifiers.
func ParseLocation(location string) (resource, keyNumber string, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrMalformedLocation, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedLocation, location)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 3 || parts[0] != "key" || parts[1] == "" || parts[2] == "" {
		return "", "", fmt.Errorf("%w: path %q", ErrMalformedLocation, u.Path)
	}
	return parts[1], parts[2], nil
}
