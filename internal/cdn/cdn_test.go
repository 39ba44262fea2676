package cdn

import "testing"

func TestEdgeHostKnownKey(t *testing.T) {
	m := Mapper{}
	if got := m.EdgeHost("wind"); got != "windnew.flyx-edge.net" {
		t.Fatalf("EdgeHost(wind) = %q", got)
	}
}

func TestEdgeHostFallbackTemplate(t *testing.T) {
	m := Mapper{}
	if got := m.EdgeHost("mystery"); got != "mystery-new.flyx-edge.net" {
		t.Fatalf("EdgeHost(mystery) = %q", got)
	}
}

func TestStreamURLBaseOverride(t *testing.T) {
	m := Mapper{BaseURL: "http://127.0.0.1:9999/"}
	want := "http://127.0.0.1:9999/wind/premium769/mono.m3u8"
	if got := m.StreamURL("wind", "premium769"); got != want {
		t.Fatalf("StreamURL() = %q, want %q", got, want)
	}
}

func TestStreamURL(t *testing.T) {
	m := Mapper{Domain: "cdn.example.org"}
	want := "https://zekonew.cdn.example.org/zeko/premium769/mono.m3u8"
	if got := m.StreamURL("zeko", "premium769"); got != want {
		t.Fatalf("StreamURL() = %q, want %q", got, want)
	}
}
