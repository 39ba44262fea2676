package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetBodySetsDefaultUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewClient(srv.Client())
	body, err := GetBody(context.Background(), c, srv.URL, nil)
	if err != nil {
		t.Fatalf("GetBody() error = %v", err)
	}
	if string(body) != "ok" {
		t.Fatalf("GetBody() = %q, want ok", body)
	}
	if gotUA != defaultUserAgent {
		t.Fatalf("user agent = %q, want default", gotUA)
	}
}

func TestGetBodyStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := GetBody(context.Background(), NewClient(srv.Client()), srv.URL, nil)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("GetBody() error = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", statusErr.StatusCode)
	}
}

func TestGetBodyExtraHeaders(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("#EXTM3U"))
	}))
	defer srv.Close()

	hdr := http.Header{}
	hdr.Set("Authorization", "Bearer abc")
	if _, err := GetBody(context.Background(), NewClient(srv.Client()), srv.URL, hdr); err != nil {
		t.Fatalf("GetBody() error = %v", err)
	}
	if gotAuth != "Bearer abc" {
		t.Fatalf("authorization header = %q", gotAuth)
	}
}

func TestRateLimiterHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	// Burst of one at a very low rate: the first call drains the bucket,
	// the second must give up when its context expires.
	c := NewClient(srv.Client(), WithRateLimit(0.001))
	if _, err := GetBody(context.Background(), c, srv.URL, nil); err != nil {
		t.Fatalf("first GetBody() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := GetBody(ctx, c, srv.URL, nil)
	if err == nil {
		t.Fatalf("expected rate-limited call to fail under an expired context")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("rate-limited call blocked past its context deadline")
	}
}
