package backend

import (
	"bufio"
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/flyx-media/streamresolver/internal/cdn"
	"github.com/flyx-media/streamresolver/internal/channels"
	"github.com/flyx-media/streamresolver/internal/extract"
	"github.com/flyx-media/streamresolver/internal/httpx"
)

// KeyFetcher is the collaborator that authorizes and retrieves decryption
// keys when a playlist turns out to be encrypted.
type KeyFetcher interface {
	Fetch(ctx context.Context, location, bearer string) ([]byte, error)
}

// JWTPoW is the heaviest strategy: intermediary page → JWT → CDN mapping →
// playlist, with key-location normalization when the stream is encrypted.
type JWTPoW struct {
	Client    httpx.Doer
	Extractor extract.Extractor
	CDN       cdn.Mapper

	// Keys enables eager key retrieval during resolution. A failed key
	// fetch degrades the result to a partial success instead of failing
	// the attempt: the stream may still be usable to a caller that
	// tolerates a missing key.
	Keys KeyFetcher
}

func (JWTPoW) Name() string { return NameJWTPoW }

func (s JWTPoW) Resolve(ctx context.Context, ch channels.Descriptor) (*StreamDescriptor, error) {
	p := ch.JWT
	if p == nil {
		return nil, failure(NameJWTPoW, FailParse, "channel %s has no jwt parameters", ch.ID)
	}

	page, err := httpx.GetBody(ctx, s.Client, p.PageURL, nil)
	if err != nil {
		return nil, classify(NameJWTPoW, err)
	}
	ext, err := s.Extractor.FromPage(string(page))
	if err != nil {
		return nil, failure(NameJWTPoW, FailParse, "page extraction: %v", err)
	}
	if ext.JWT == "" {
		return nil, failure(NameJWTPoW, FailParse, "no jwt in intermediary page")
	}

	channelKey, fail := s.channelKey(p, ext)
	if fail != nil {
		return nil, fail
	}

	streamURL := s.CDN.StreamURL(p.ServerKey, channelKey)
	playlist, fail := fetchPlaylist(ctx, s.Client, NameJWTPoW, streamURL)
	if fail != nil {
		return nil, fail
	}

	desc := &StreamDescriptor{URL: streamURL, Backend: NameJWTPoW}
	keyURI := playlistKeyURI(playlist)
	if keyURI == "" {
		return desc, nil
	}

	location, err := normalizeKeyLocation(streamURL, keyURI)
	if err != nil {
		return nil, failure(NameJWTPoW, FailParse, "key uri %q: %v", keyURI, err)
	}
	desc.Encrypted = true
	desc.KeyLocation = location
	desc.AuthToken = ext.JWT

	if s.Keys != nil {
		key, keyErr := s.Keys.Fetch(ctx, location, ext.JWT)
		if keyErr != nil {
			desc.KeyErr = keyErr
		} else {
			desc.Key = key
		}
	}
	return desc, nil
}

// channelKey resolves the channel key: table parameter first, then the
// page, then the JWT payload itself.
func (s JWTPoW) channelKey(p *channels.JWTParams, ext extract.Extraction) (string, *AttemptFailure) {
	if p.ChannelKey != "" {
		return p.ChannelKey, nil
	}
	if ext.ChannelKey != "" {
		return ext.ChannelKey, nil
	}
	key, err := extract.DecodeJWTChannelKey(ext.JWT)
	if err != nil || key == "" {
		return "", failure(NameJWTPoW, FailParse, "no channel key in page or jwt payload")
	}
	return key, nil
}

// playlistKeyURI returns the URI of the first #EXT-X-KEY line carrying one,
// or empty when the playlist is clear.
func playlistKeyURI(playlist []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(playlist))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "#EXT-X-KEY:") {
			continue
		}
		if strings.Contains(line, "METHOD=NONE") {
			return ""
		}
		const marker = `URI="`
		start := strings.Index(line, marker)
		if start < 0 {
			continue
		}
		rest := line[start+len(marker):]
		end := strings.IndexByte(rest, '"')
		if end < 0 {
			continue
		}
		return rest[:end]
	}
	return ""
}

// normalizeKeyLocation resolves a possibly-relative key URI against the
// stream URL into the absolute canonical location.
func normalizeKeyLocation(streamURL, keyURI string) (string, error) {
	base, err := url.Parse(streamURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(keyURI)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}
