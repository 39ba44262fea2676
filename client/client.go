// Package client is the public entry point: it wires the channel table,
// backend strategies, proof-of-work solver, and key fetcher into a resolver
// and exposes single-channel and batch resolution.
package client

import (
	"context"
	"errors"

	"github.com/go-logr/logr"

	"github.com/flyx-media/streamresolver/internal/backend"
	"github.com/flyx-media/streamresolver/internal/cdn"
	"github.com/flyx-media/streamresolver/internal/extract"
	"github.com/flyx-media/streamresolver/internal/httpx"
	"github.com/flyx-media/streamresolver/internal/keyfetch"
	"github.com/flyx-media/streamresolver/internal/resolver"
)

// ErrNoTable indicates New was called without a channel table.
var ErrNoTable = errors.New("channel table is required")

// ErrUnknownChannel is re-exported for callers classifying batch results.
var ErrUnknownChannel = resolver.ErrUnknownChannel

// Result and Attempt are the resolver's result types, re-exported so callers
// only import this package.
type (
	Result  = resolver.Result
	Attempt = resolver.Attempt
)

// Client resolves channels against its configured table.
type Client struct {
	cfg      Config
	resolver *resolver.Resolver
	batch    *resolver.Batch
}

// New builds a Client from cfg. The configuration is copied; the client is
// immutable and safe for concurrent use afterward.
func New(cfg Config) (*Client, error) {
	if cfg.Table == nil {
		return nil, ErrNoTable
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = defaultAttemptTimeout
	}
	if cfg.KeyTimeout <= 0 {
		cfg.KeyTimeout = defaultKeyTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.Logger.GetSink() == nil {
		cfg.Logger = logr.Discard()
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = httpx.NewProxiedClient(cfg.ProxyURL)
	}
	transport := httpx.NewClient(hc,
		httpx.WithUserAgent(cfg.UserAgent),
		httpx.WithRateLimit(cfg.RequestsPerSecond),
	)

	var keys backend.KeyFetcher
	if cfg.EagerKeyFetch {
		keys = keyfetch.New(keyfetch.Config{
			Client:  transport,
			Params:  cfg.PoW,
			Timeout: cfg.KeyTimeout,
			Logger:  cfg.Logger.WithName("keyfetch"),
		})
	}

	selector := backend.Selector{
		Client:    transport,
		Extractor: extract.Extractor{},
		CDN:       cdn.Mapper{Domain: cfg.EdgeDomain, BaseURL: cfg.EdgeBaseURL},
		Keys:      keys,
	}
	res := resolver.New(selector, resolver.Options{
		AttemptTimeout: cfg.AttemptTimeout,
		Logger:         cfg.Logger.WithName("resolver"),
		Metrics:        cfg.Metrics,
	})
	return &Client{
		cfg:      cfg,
		resolver: res,
		batch:    resolver.NewBatch(res, cfg.Table.Lookup, cfg.Concurrency),
	}, nil
}

// ResolveChannel resolves a single channel id.
func (c *Client) ResolveChannel(ctx context.Context, id string) Result {
	ch, ok := c.cfg.Table.Lookup(id)
	if !ok {
		return Result{ChannelID: id, Err: resolver.ErrUnknownChannel}
	}
	return c.resolver.Resolve(ctx, ch)
}

// ResolveBatch resolves many channel ids under the configured concurrency
// limit, returning one result per unique id.
func (c *Client) ResolveBatch(ctx context.Context, ids []string) map[string]Result {
	return c.batch.Resolve(ctx, ids)
}

// ChannelIDs lists the configured channel ids in sorted order.
func (c *Client) ChannelIDs() []string {
	return c.cfg.Table.IDs()
}
