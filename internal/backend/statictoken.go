package backend

import (
	"context"
	"strings"

	"github.com/flyx-media/streamresolver/internal/channels"
	"github.com/flyx-media/streamresolver/internal/extract"
	"github.com/flyx-media/streamresolver/internal/httpx"
)

// StaticToken fetches the channel's intermediary page, pulls the
// short-lived token out of it, and fills the configured stream URL
// template.
type StaticToken struct {
	Client    httpx.Doer
	Extractor extract.Extractor
}

func (StaticToken) Name() string { return NameStaticToken }

func (s StaticToken) Resolve(ctx context.Context, ch channels.Descriptor) (*StreamDescriptor, error) {
	p := ch.Token
	if p == nil {
		return nil, failure(NameStaticToken, FailParse, "channel %s has no token parameters", ch.ID)
	}

	page, err := httpx.GetBody(ctx, s.Client, p.PageURL, nil)
	if err != nil {
		return nil, classify(NameStaticToken, err)
	}
	ext, err := s.Extractor.FromPage(string(page))
	if err != nil {
		return nil, failure(NameStaticToken, FailParse, "page extraction: %v", err)
	}
	if ext.Token == "" {
		return nil, failure(NameStaticToken, FailParse, "no token in intermediary page")
	}

	streamURL := strings.ReplaceAll(p.Template, "{token}", ext.Token)
	if _, fail := fetchPlaylist(ctx, s.Client, NameStaticToken, streamURL); fail != nil {
		return nil, fail
	}
	return &StreamDescriptor{URL: streamURL, Backend: NameStaticToken}, nil
}
