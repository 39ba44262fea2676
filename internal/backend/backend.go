// Package backend implements one resolution strategy per third-party
// authentication family. Strategies never let transport faults escape: every
// failure is folded into the AttemptFailure taxonomy so the resolver can
// record it and move on.
package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/flyx-media/streamresolver/internal/channels"
	"github.com/flyx-media/streamresolver/internal/httpx"
)

// Backend names as they appear in attempt trails and CLI output.
const (
	NameDirect      = "direct"
	NameStaticToken = "static-token"
	NameJWTPoW      = "jwt-pow"
)

// PlaylistMarker is the prefix every valid stream body must start with.
const PlaylistMarker = "#EXTM3U"

// Strategy attempts to produce a stream descriptor for one channel using a
// single authentication family. Implementations honor ctx deadlines and
// return either a descriptor or an *AttemptFailure.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, ch channels.Descriptor) (*StreamDescriptor, error)
}

// StreamDescriptor is the outcome of a successful attempt. Key and KeyErr
// are only populated when the strategy fetched the decryption key eagerly;
// a set KeyErr with a nil Key marks a partial success (stream found, key
// unavailable).
type StreamDescriptor struct {
	URL         string
	Backend     string
	Encrypted   bool
	KeyLocation string
	AuthToken   string
	Key         []byte
	KeyErr      error
}

// FailureClass partitions attempt failures.
type FailureClass int

const (
	FailTimeout FailureClass = iota
	FailBadStatus
	FailMissingMarker
	FailParse
)

func (c FailureClass) String() string {
	switch c {
	case FailTimeout:
		return "timeout"
	case FailBadStatus:
		return "bad-status"
	case FailMissingMarker:
		return "missing-marker"
	case FailParse:
		return "parse-failure"
	}
	return "unknown"
}

// AttemptFailure is the only error type a strategy returns.
type AttemptFailure struct {
	Backend string
	Class   FailureClass
	Err     error
}

func (e *AttemptFailure) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s attempt failed: %s", e.Backend, e.Class)
	}
	return fmt.Sprintf("%s attempt failed: %s: %v", e.Backend, e.Class, e.Err)
}

func (e *AttemptFailure) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline expiry.
func (e *AttemptFailure) Timeout() bool { return e.Class == FailTimeout }

func failure(backend string, class FailureClass, format string, args ...any) *AttemptFailure {
	return &AttemptFailure{Backend: backend, Class: class, Err: fmt.Errorf(format, args...)}
}

// classify folds a low-level transport error into the taxonomy.
func classify(backend string, err error) *AttemptFailure {
	class := FailBadStatus
	var statusErr *httpx.StatusError
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		class = FailTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		class = FailTimeout
	case errors.As(err, &statusErr):
		class = FailBadStatus
	}
	return &AttemptFailure{Backend: backend, Class: class, Err: err}
}

// fetchPlaylist retrieves url and verifies the playlist marker.
func fetchPlaylist(ctx context.Context, d httpx.Doer, backend, url string) ([]byte, *AttemptFailure) {
	body, err := httpx.GetBody(ctx, d, url, nil)
	if err != nil {
		return nil, classify(backend, err)
	}
	if !bytes.HasPrefix(bytes.TrimSpace(body), []byte(PlaylistMarker)) {
		return nil, failure(backend, FailMissingMarker, "body does not start with %s", PlaylistMarker)
	}
	return body, nil
}
