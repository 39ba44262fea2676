package backend

import (
	"context"

	"github.com/flyx-media/streamresolver/internal/channels"
	"github.com/flyx-media/streamresolver/internal/httpx"
)

// Direct is the no-auth strategy: the channel has a static playlist URL and
// the only check is the playlist marker.
type Direct struct {
	Client httpx.Doer
}

func (Direct) Name() string { return NameDirect }

func (s Direct) Resolve(ctx context.Context, ch channels.Descriptor) (*StreamDescriptor, error) {
	p := ch.Direct
	if p == nil {
		return nil, failure(NameDirect, FailParse, "channel %s has no direct parameters", ch.ID)
	}
	if _, fail := fetchPlaylist(ctx, s.Client, NameDirect, p.URL); fail != nil {
		return nil, fail
	}
	return &StreamDescriptor{URL: p.URL, Backend: NameDirect}, nil
}
