// Package resolver drives the ordered fallback across backend strategies
// for one channel, and fans resolutions out across many channels under a
// bounded concurrency limit.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/flyx-media/streamresolver/internal/backend"
	"github.com/flyx-media/streamresolver/internal/channels"
	"github.com/flyx-media/streamresolver/internal/metrics"
)

// ErrNoBackends marks a channel whose descriptor configures no backend at
// all.
var ErrNoBackends = errors.New("no backends configured")

// Outcome classifies one attempt in the trail.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
	OutcomeTimeout
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeTimeout:
		return "timeout"
	}
	return "unknown"
}

// Attempt is one entry in a channel's audit trail. The trail is append-only
// and its order is fixed by strategy order.
type Attempt struct {
	Backend string
	Elapsed time.Duration
	Outcome Outcome
	Err     error
}

// Result is the single outcome of resolving one channel. Exactly one of
// Stream or Err is meaningful: a resolved result carries a stream and a nil
// terminal error, a failed one the reverse.
type Result struct {
	ChannelID    string
	ResolutionID string
	Resolved     bool
	Stream       *backend.StreamDescriptor
	Attempts     []Attempt
	Err          error
}

// AllBackendsFailedError is the terminal error for a channel whose every
// strategy failed.
type AllBackendsFailedError struct {
	ChannelID string
	Attempts  []Attempt
}

func (e *AllBackendsFailedError) Error() string {
	return fmt.Sprintf("channel %s: all %d backend(s) failed", e.ChannelID, len(e.Attempts))
}

// Selector derives the ordered strategy list for a channel. backend.Selector
// is the production implementation.
type Selector interface {
	Select(ch channels.Descriptor) []backend.Strategy
}

// Options tune a Resolver.
type Options struct {
	// AttemptTimeout bounds each individual strategy attempt. Defaults to
	// 8s.
	AttemptTimeout time.Duration
	Logger         logr.Logger
	Metrics        *metrics.Set
}

// Resolver resolves single channels. Safe for concurrent use: all state is
// read-only after construction.
type Resolver struct {
	selector       Selector
	attemptTimeout time.Duration
	log            logr.Logger
	metrics        *metrics.Set
}

func New(selector Selector, opts Options) *Resolver {
	r := &Resolver{
		selector:       selector,
		attemptTimeout: opts.AttemptTimeout,
		log:            opts.Logger,
		metrics:        opts.Metrics,
	}
	if r.attemptTimeout <= 0 {
		r.attemptTimeout = 8 * time.Second
	}
	if r.log.GetSink() == nil {
		r.log = logr.Discard()
	}
	return r
}

type attemptResult struct {
	stream *backend.StreamDescriptor
	err    error
}

// Resolve walks the channel's strategies in order and stops at the first
// success. Every attempt, successful or not, lands in the trail.
func (r *Resolver) Resolve(ctx context.Context, ch channels.Descriptor) Result {
	res := Result{ChannelID: ch.ID, ResolutionID: uuid.NewString()}
	log := r.log.WithValues("channel", ch.ID, "resolution", res.ResolutionID)

	strategies := r.selector.Select(ch)
	if len(strategies) == 0 {
		res.Err = ErrNoBackends
		r.metrics.Resolution(false)
		return res
	}

	for _, s := range strategies {
		stream, attempt := r.tryStrategy(ctx, s, ch)
		res.Attempts = append(res.Attempts, attempt)
		r.metrics.Attempt(attempt.Backend, attempt.Outcome.String(), attempt.Elapsed)

		if attempt.Outcome == OutcomeSuccess {
			log.V(1).Info("resolved", "backend", attempt.Backend, "elapsed", attempt.Elapsed)
			res.Resolved = true
			res.Stream = stream
			r.metrics.Resolution(true)
			return res
		}
		log.V(1).Info("attempt failed",
			"backend", attempt.Backend, "outcome", attempt.Outcome.String(), "err", attempt.Err)

		// A cancelled parent context would only repeat the same timeout
		// for every remaining strategy.
		if ctx.Err() != nil {
			break
		}
	}

	res.Err = &AllBackendsFailedError{ChannelID: ch.ID, Attempts: res.Attempts}
	r.metrics.Resolution(false)
	return res
}

// tryStrategy runs one attempt under its own deadline. The strategy is
// expected to honor ctx; running it in a goroutine additionally guarantees
// the resolver itself never blocks past the deadline even if it does not.
func (r *Resolver) tryStrategy(ctx context.Context, s backend.Strategy, ch channels.Descriptor) (*backend.StreamDescriptor, Attempt) {
	actx, cancel := context.WithTimeout(ctx, r.attemptTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan attemptResult, 1)
	go func() {
		stream, err := s.Resolve(actx, ch)
		done <- attemptResult{stream: stream, err: err}
	}()

	var out attemptResult
	select {
	case out = <-done:
	case <-actx.Done():
		out = attemptResult{err: actx.Err()}
	}
	elapsed := time.Since(start)

	if out.err == nil {
		return out.stream, Attempt{Backend: s.Name(), Elapsed: elapsed, Outcome: OutcomeSuccess}
	}
	return nil, Attempt{Backend: s.Name(), Elapsed: elapsed, Outcome: classifyOutcome(out.err), Err: out.err}
}

func classifyOutcome(err error) Outcome {
	var fail *backend.AttemptFailure
	if errors.As(err, &fail) && fail.Timeout() {
		return OutcomeTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return OutcomeTimeout
	}
	return OutcomeFailure
}
