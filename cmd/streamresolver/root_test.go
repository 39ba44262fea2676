package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTable(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "channels.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write table: %v", err)
	}
	return path
}

func TestChannelsCommand(t *testing.T) {
	path := writeTable(t, `
channels:
  - id: sports-1
    direct:
      url: https://static.example.net/sports-1/index.m3u8
  - id: news-24
    direct:
      url: https://static.example.net/news-24/index.m3u8
`)
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs([]string{"channels", "--channels", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := out.String(); got != "news-24\nsports-1\n" {
		t.Fatalf("output = %q", got)
	}
}

func TestResolveCommandSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("#EXTM3U\n"))
	}))
	defer srv.Close()

	path := writeTable(t, `
channels:
  - id: sports-1
    direct:
      url: `+srv.URL+`/sports-1/index.m3u8
`)
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs([]string{"resolve", "sports-1", "--channels", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "direct") {
		t.Fatalf("output missing backend name:\n%s", out.String())
	}
}

func TestResolveCommandFailureExitsNonZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	path := writeTable(t, `
channels:
  - id: sports-1
    direct:
      url: `+srv.URL+`/sports-1/index.m3u8
`)
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"resolve", "sports-1", "--channels", path})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for unresolved channel")
	}
}

func TestBatchCommandMixedOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "sports-1") {
			w.Write([]byte("#EXTM3U\n"))
			return
		}
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	path := writeTable(t, `
channels:
  - id: sports-1
    direct:
      url: `+srv.URL+`/sports-1/index.m3u8
  - id: news-24
    direct:
      url: `+srv.URL+`/news-24/index.m3u8
`)
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"batch", "sports-1", "news-24", "--channels", path})
	err := cmd.Execute()
	if err == nil {
		t.Fatalf("expected error when one channel fails")
	}
	if !strings.Contains(err.Error(), "1 of 2") {
		t.Fatalf("error = %v", err)
	}
	if !strings.Contains(out.String(), "sports-1") || !strings.Contains(out.String(), "news-24") {
		t.Fatalf("output missing channels:\n%s", out.String())
	}
}
