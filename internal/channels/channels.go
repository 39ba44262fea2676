// Package channels holds the static mapping from logical channel ids to
// backend-specific parameters. Tables are loaded once and shared read-only
// for the lifetime of a resolution run.
package channels

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DirectParams configure the no-auth backend: a static playlist URL.
type DirectParams struct {
	URL string `yaml:"url"`
}

// TokenParams configure the static-token backend. Template is the stream
// URL pattern with a {token} placeholder filled from the intermediary page.
type TokenParams struct {
	PageURL  string `yaml:"page_url"`
	Template string `yaml:"template"`
}

// JWTParams configure the JWT+PoW backend. ChannelKey may be empty, in
// which case it is recovered from the JWT payload at resolution time.
type JWTParams struct {
	PageURL    string `yaml:"page_url"`
	ServerKey  string `yaml:"server_key"`
	ChannelKey string `yaml:"channel_key"`
}

// Descriptor is one channel's immutable parameter bag. At least one backend
// section must be present.
type Descriptor struct {
	ID     string        `yaml:"id"`
	Direct *DirectParams `yaml:"direct,omitempty"`
	Token  *TokenParams  `yaml:"token,omitempty"`
	JWT    *JWTParams    `yaml:"jwt,omitempty"`
}

// Table is the loaded channel set.
type Table struct {
	byID map[string]Descriptor
}

type tableFile struct {
	Channels []Descriptor `yaml:"channels"`
}

// Parse decodes a YAML channel table and validates every entry.
func Parse(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("channel table: %w", err)
	}
	t := &Table{byID: make(map[string]Descriptor, len(f.Channels))}
	for i, d := range f.Channels {
		if err := validate(d); err != nil {
			return nil, fmt.Errorf("channel table entry %d: %w", i, err)
		}
		if _, dup := t.byID[d.ID]; dup {
			return nil, fmt.Errorf("channel table entry %d: duplicate id %q", i, d.ID)
		}
		t.byID[d.ID] = d
	}
	return t, nil
}

// Load reads and parses a channel table file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// NewTable builds a table from already-validated descriptors; used by tests
// and embedding callers.
func NewTable(descriptors ...Descriptor) (*Table, error) {
	t := &Table{byID: make(map[string]Descriptor, len(descriptors))}
	for _, d := range descriptors {
		if err := validate(d); err != nil {
			return nil, err
		}
		t.byID[d.ID] = d
	}
	return t, nil
}

// Lookup returns the descriptor for id.
func (t *Table) Lookup(id string) (Descriptor, bool) {
	d, ok := t.byID[id]
	return d, ok
}

// IDs returns all channel ids in sorted order.
func (t *Table) IDs() []string {
	ids := make([]string, 0, len(t.byID))
	for id := range t.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len reports the number of channels in the table.
func (t *Table) Len() int { return len(t.byID) }

func validate(d Descriptor) error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("missing channel id")
	}
	if d.Direct == nil && d.Token == nil && d.JWT == nil {
		return fmt.Errorf("channel %q: no backend parameters", d.ID)
	}
	if d.Direct != nil && strings.TrimSpace(d.Direct.URL) == "" {
		return fmt.Errorf("channel %q: direct backend missing url", d.ID)
	}
	if d.Token != nil {
		if strings.TrimSpace(d.Token.PageURL) == "" {
			return fmt.Errorf("channel %q: token backend missing page_url", d.ID)
		}
		if !strings.Contains(d.Token.Template, "{token}") {
			return fmt.Errorf("channel %q: token backend template missing {token} placeholder", d.ID)
		}
	}
	if d.JWT != nil {
		if strings.TrimSpace(d.JWT.PageURL) == "" {
			return fmt.Errorf("channel %q: jwt backend missing page_url", d.ID)
		}
		if strings.TrimSpace(d.JWT.ServerKey) == "" {
			return fmt.Errorf("channel %q: jwt backend missing server_key", d.ID)
		}
	}
	return nil
}
