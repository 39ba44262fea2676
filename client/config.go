package client

import (
	"net/http"
	"time"

	"github.com/go-logr/logr"

	"github.com/flyx-media/streamresolver/internal/channels"
	"github.com/flyx-media/streamresolver/internal/metrics"
	"github.com/flyx-media/streamresolver/internal/pow"
)

// Config holds configuration for the resolution client.
type Config struct {
	// HTTPClient is the client used for all outbound requests.
	// If nil, http.DefaultClient is used (or a proxied client when
	// ProxyURL is set).
	HTTPClient *http.Client

	// ProxyURL is the optional proxy URL to use for requests.
	// If HTTPClient is provided, this field is ignored.
	ProxyURL string

	// Table is the channel parameter table. Required.
	Table *channels.Table

	// PoW carries the proof-of-work secret and cost settings used to
	// authorize key fetches.
	PoW pow.Params

	// AttemptTimeout bounds each backend attempt. Default 8s.
	AttemptTimeout time.Duration

	// KeyTimeout bounds each key fetch. Default 10s.
	KeyTimeout time.Duration

	// Concurrency caps simultaneous channel resolutions in a batch.
	// Default 4.
	Concurrency int

	// RequestsPerSecond bounds the outbound request rate across the whole
	// client. Zero disables limiting.
	RequestsPerSecond float64

	// EagerKeyFetch retrieves decryption keys during resolution instead of
	// leaving the key location to the caller.
	EagerKeyFetch bool

	// EdgeDomain overrides the CDN edge domain.
	EdgeDomain string

	// EdgeBaseURL overrides the edge scheme and host entirely, bypassing
	// the server-key mapping. Mainly for nonstandard edges and tests.
	EdgeBaseURL string

	// UserAgent overrides the outbound User-Agent header.
	UserAgent string

	// Logger receives structured resolution logs. Defaults to discard.
	Logger logr.Logger

	// Metrics, when set, receives attempt and resolution counters.
	Metrics *metrics.Set
}

const (
	defaultAttemptTimeout = 8 * time.Second
	defaultKeyTimeout     = 10 * time.Second
	defaultConcurrency    = 4
)
