// Package cdn maps the server key carried in a channel's JWT parameters to
// the edge host that actually serves its playlist.
package cdn

import (
	"fmt"
	"strings"
)

const defaultDomain = "flyx-edge.net"

// knownEdges pins server keys whose edge hosts deviate from the generic
// pattern. Learned from observed traffic; unknown keys fall through to
// the template.
var knownEdges = map[string]string{
	"wind": "windnew",
	"zeko": "zekonew",
	"nfs":  "nfsnew",
	"dokko1": "dokko1new",
}

// Mapper resolves server keys to stream URLs. The zero value uses the
// default domain and the pinned edge table.
type Mapper struct {
	// Domain overrides the edge domain; empty means the default.
	Domain string

	// BaseURL overrides scheme and host entirely, bypassing the edge
	// table. Used when probing a nonstandard edge.
	BaseURL string
}

func (m Mapper) domain() string {
	if m.Domain != "" {
		return m.Domain
	}
	return defaultDomain
}

// EdgeHost returns the edge host serving the given server key.
func (m Mapper) EdgeHost(serverKey string) string {
	if sub, ok := knownEdges[serverKey]; ok {
		return sub + "." + m.domain()
	}
	return fmt.Sprintf("%s-new.%s", serverKey, m.domain())
}

// StreamURL builds the playlist URL for a server key / channel key pair.
func (m Mapper) StreamURL(serverKey, channelKey string) string {
	if m.BaseURL != "" {
		return fmt.Sprintf("%s/%s/%s/mono.m3u8", strings.TrimSuffix(m.BaseURL, "/"), serverKey, channelKey)
	}
	return fmt.Sprintf("https://%s/%s/%s/mono.m3u8", m.EdgeHost(serverKey), serverKey, channelKey)
}
