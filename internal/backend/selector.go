package backend

import (
	"github.com/flyx-media/streamresolver/internal/cdn"
	"github.com/flyx-media/streamresolver/internal/channels"
	"github.com/flyx-media/streamresolver/internal/extract"
	"github.com/flyx-media/streamresolver/internal/httpx"
)

// Selector derives the ordered strategy list for a channel. Ordering is
// fixed cheapest-first (direct, static-token, jwt-pow) so attempt trails
// are stable across runs.
type Selector struct {
	Client    httpx.Doer
	Extractor extract.Extractor
	CDN       cdn.Mapper

	// Keys, when set, is handed to the JWT+PoW strategy for eager key
	// retrieval.
	Keys KeyFetcher
}

// Select returns the strategies applicable to ch in preference order. A
// channel with no backend parameters yields an empty list.
func (s Selector) Select(ch channels.Descriptor) []Strategy {
	var out []Strategy
	if ch.Direct != nil {
		out = append(out, Direct{Client: s.Client})
	}
	if ch.Token != nil {
		out = append(out, StaticToken{Client: s.Client, Extractor: s.Extractor})
	}
	if ch.JWT != nil {
		out = append(out, JWTPoW{Client: s.Client, Extractor: s.Extractor, CDN: s.CDN, Keys: s.Keys})
	}
	return out
}
