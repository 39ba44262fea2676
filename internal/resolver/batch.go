package resolver

import (
	"context"
	"errors"
	"sync"

	"github.com/flyx-media/streamresolver/internal/channels"
)

// ErrUnknownChannel marks an id absent from the channel table.
var ErrUnknownChannel = errors.New("unknown channel")

// Lookup resolves a channel id to its descriptor; channels.Table.Lookup
// satisfies it.
type Lookup func(id string) (channels.Descriptor, bool)

// Batch resolves many channels with a bounded worker pool. The limit caps
// simultaneous in-flight resolutions; completion order is unspecified.
type Batch struct {
	resolver *Resolver
	lookup   Lookup
	limit    int
}

// NewBatch builds a Batch. A limit below one falls back to one worker.
func NewBatch(r *Resolver, lookup Lookup, limit int) *Batch {
	if limit < 1 {
		limit = 1
	}
	return &Batch{resolver: r, lookup: lookup, limit: limit}
}

// Resolve fans the resolver out over ids and returns one Result per unique
// id. Individual failures never affect sibling channels.
func (b *Batch) Resolve(ctx context.Context, ids []string) map[string]Result {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	workers := b.limit
	if len(unique) < workers {
		workers = len(unique)
	}

	jobs := make(chan string)
	results := make(chan Result)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				results <- b.resolveOne(ctx, id)
			}
		}()
	}
	go func() {
		for _, id := range unique {
			jobs <- id
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	out := make(map[string]Result, len(unique))
	for res := range results {
		out[res.ChannelID] = res
	}
	return out
}

func (b *Batch) resolveOne(ctx context.Context, id string) Result {
	ch, ok := b.lookup(id)
	if !ok {
		return Result{ChannelID: id, Err: ErrUnknownChannel}
	}
	return b.resolver.Resolve(ctx, ch)
}
