package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flyx-media/streamresolver/internal/backend"
	"github.com/flyx-media/streamresolver/internal/channels"
)

type stubStrategy struct {
	name string
	fn   func(ctx context.Context, ch channels.Descriptor) (*backend.StreamDescriptor, error)
}

func (s stubStrategy) Name() string { return s.name }
func (s stubStrategy) Resolve(ctx context.Context, ch channels.Descriptor) (*backend.StreamDescriptor, error) {
	return s.fn(ctx, ch)
}

type stubSelector []backend.Strategy

func (s stubSelector) Select(channels.Descriptor) []backend.Strategy { return s }

func failing(name string) stubStrategy {
	return stubStrategy{name: name, fn: func(context.Context, channels.Descriptor) (*backend.StreamDescriptor, error) {
		return nil, &backend.AttemptFailure{Backend: name, Class: backend.FailBadStatus, Err: errors.New("boom")}
	}}
}

func succeeding(name string) stubStrategy {
	return stubStrategy{name: name, fn: func(_ context.Context, ch channels.Descriptor) (*backend.StreamDescriptor, error) {
		return &backend.StreamDescriptor{URL: "https://edge/" + ch.ID, Backend: name}, nil
	}}
}

func hanging(name string) stubStrategy {
	return stubStrategy{name: name, fn: func(ctx context.Context, _ channels.Descriptor) (*backend.StreamDescriptor, error) {
		<-ctx.Done()
		return nil, &backend.AttemptFailure{Backend: name, Class: backend.FailTimeout, Err: ctx.Err()}
	}}
}

func testChannel() channels.Descriptor {
	return channels.Descriptor{ID: "sports-1", Direct: &channels.DirectParams{URL: "https://x/a.m3u8"}}
}

func TestResolveShortCircuits(t *testing.T) {
	sel := stubSelector{failing("direct"), failing("static-token"), succeeding("jwt-pow"), failing("never-reached")}
	r := New(sel, Options{AttemptTimeout: time.Second})

	res := r.Resolve(context.Background(), testChannel())
	if !res.Resolved {
		t.Fatalf("Resolve() failed: %v", res.Err)
	}
	if res.Stream.Backend != "jwt-pow" {
		t.Fatalf("backend = %q", res.Stream.Backend)
	}
	if len(res.Attempts) != 3 {
		t.Fatalf("attempt trail length = %d, want 3", len(res.Attempts))
	}
	if res.Attempts[2].Outcome != OutcomeSuccess {
		t.Fatalf("final attempt outcome = %v", res.Attempts[2].Outcome)
	}
	if res.Err != nil {
		t.Fatalf("resolved result must carry no terminal error, got %v", res.Err)
	}
	if res.ResolutionID == "" {
		t.Fatalf("missing resolution id")
	}
}

func TestResolveExhaustsAllStrategies(t *testing.T) {
	names := []string{"direct", "static-token", "jwt-pow"}
	sel := stubSelector{failing(names[0]), failing(names[1]), failing(names[2])}
	r := New(sel, Options{AttemptTimeout: time.Second})

	res := r.Resolve(context.Background(), testChannel())
	if res.Resolved || res.Stream != nil {
		t.Fatalf("expected failure, got %+v", res)
	}
	if len(res.Attempts) != len(names) {
		t.Fatalf("attempt trail length = %d, want %d", len(res.Attempts), len(names))
	}
	for i, a := range res.Attempts {
		if a.Backend != names[i] {
			t.Fatalf("attempt %d backend = %q, want %q", i, a.Backend, names[i])
		}
		if a.Outcome != OutcomeFailure {
			t.Fatalf("attempt %d outcome = %v", i, a.Outcome)
		}
	}
	var all *AllBackendsFailedError
	if !errors.As(res.Err, &all) {
		t.Fatalf("terminal error = %v, want *AllBackendsFailedError", res.Err)
	}
	if len(all.Attempts) != len(names) {
		t.Fatalf("terminal error carries %d attempts", len(all.Attempts))
	}
}

func TestResolveAttemptOrderIsStable(t *testing.T) {
	sel := stubSelector{failing("direct"), failing("static-token"), failing("jwt-pow")}
	r := New(sel, Options{AttemptTimeout: time.Second})

	first := r.Resolve(context.Background(), testChannel())
	second := r.Resolve(context.Background(), testChannel())
	for i := range first.Attempts {
		if first.Attempts[i].Backend != second.Attempts[i].Backend {
			t.Fatalf("attempt order differs between runs at %d", i)
		}
	}
}

func TestResolveDeadlineEnforced(t *testing.T) {
	const deadline = 60 * time.Millisecond
	sel := stubSelector{hanging("direct"), succeeding("jwt-pow")}
	r := New(sel, Options{AttemptTimeout: deadline})

	start := time.Now()
	res := r.Resolve(context.Background(), testChannel())
	elapsed := time.Since(start)

	if !res.Resolved {
		t.Fatalf("Resolve() failed: %v", res.Err)
	}
	if len(res.Attempts) != 2 {
		t.Fatalf("attempt trail length = %d, want 2", len(res.Attempts))
	}
	if res.Attempts[0].Outcome != OutcomeTimeout {
		t.Fatalf("first attempt outcome = %v, want timeout", res.Attempts[0].Outcome)
	}
	if res.Stream.Backend != "jwt-pow" {
		t.Fatalf("backend = %q", res.Stream.Backend)
	}
	// First attempt is bounded by its deadline plus a small margin.
	if elapsed > deadline+500*time.Millisecond {
		t.Fatalf("resolution took %v, deadline not enforced", elapsed)
	}
}

func TestResolveStrategyIgnoringContextStillTimesOut(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	rude := stubStrategy{name: "rude", fn: func(context.Context, channels.Descriptor) (*backend.StreamDescriptor, error) {
		<-block
		return nil, errors.New("late")
	}}
	r := New(stubSelector{rude}, Options{AttemptTimeout: 50 * time.Millisecond})

	start := time.Now()
	res := r.Resolve(context.Background(), testChannel())
	if time.Since(start) > time.Second {
		t.Fatalf("resolver blocked on a strategy that ignores its context")
	}
	if res.Resolved {
		t.Fatalf("expected failure")
	}
	if res.Attempts[0].Outcome != OutcomeTimeout {
		t.Fatalf("outcome = %v, want timeout", res.Attempts[0].Outcome)
	}
}

func TestResolveNoBackends(t *testing.T) {
	r := New(stubSelector{}, Options{})
	res := r.Resolve(context.Background(), channels.Descriptor{ID: "bare"})
	if res.Resolved || len(res.Attempts) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if !errors.Is(res.Err, ErrNoBackends) {
		t.Fatalf("err = %v, want ErrNoBackends", res.Err)
	}
}
