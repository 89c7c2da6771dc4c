package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPostJSONSendsHeadersAndDecodes(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("X-API-KEY") != "secret" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("User-Agent") != defaultUserAgent {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}

		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"echo": payload["q"]})
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), time.Second)
	header := http.Header{}
	header.Set("X-API-KEY", "secret")

	var resp struct {
		Echo string `json:"echo"`
	}
	if err := client.PostJSON(context.Background(), srv.URL, header, map[string]any{"q": "wave"}, &resp); err != nil {
		t.Fatalf("PostJSON returned error: %v", err)
	}
	if resp.Echo != "wave" {
		t.Fatalf("unexpected echo %q", resp.Echo)
	}
}

func TestGetReturnsStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.Client(), time.Second).Get(context.Background(), srv.URL, nil)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusTooManyRequests || statusErr.Body != "quota exceeded" {
		t.Fatalf("unexpected status error: %+v", statusErr)
	}
}

func TestCallIsBoundedByTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	started := time.Now()
	_, err := NewClient(srv.Client(), 50*time.Millisecond).Get(context.Background(), srv.URL, nil)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if elapsed := time.Since(started); elapsed > 3*time.Second {
		t.Fatalf("call was not bounded, took %v", elapsed)
	}
}
