package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testConfig(baseURL string) Config {
	cfg := DefaultConfig(baseURL)
	cfg.Retry = fastRetryConfig()
	return cfg
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{}, zerolog.Nop())
	if err == nil {
		t.Fatal("Expected error for missing base URL")
	}
}

func TestNew_FillsDefaults(t *testing.T) {
	c, err := New(Config{BaseURL: "http://example.org"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if c.config.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", c.config.Timeout)
	}
	if c.config.Retry.MaxAttempts != 4 {
		t.Errorf("Retry.MaxAttempts = %d, want 4", c.config.Retry.MaxAttempts)
	}
}

func TestGet_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("f") != "json" {
			t.Errorf("Expected f=json query parameter, got %q", r.URL.RawQuery)
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Expected Accept header, got %q", r.Header.Get("Accept"))
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"features":[]}`))
	}))
	defer server.Close()

	c, err := New(testConfig(server.URL), zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	query := url.Values{}
	query.Set("f", "json")
	body, err := c.Get(context.Background(), "/0/query", query)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(body) != `{"features":[]}` {
		t.Errorf("Unexpected body: %s", body)
	}
}

func TestGet_RetriesServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"features":[]}`))
	}))
	defer server.Close()

	c, _ := New(testConfig(server.URL), zerolog.Nop())

	body, err := c.Get(context.Background(), "/0/query", nil)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(body) == 0 {
		t.Error("Expected body after successful retry")
	}
	if calls.Load() != 3 {
		t.Errorf("Expected 3 requests, got %d", calls.Load())
	}
}

func TestGet_RetriesClientError(t *testing.T) {
	// The surveillance service sheds load with 4xx; those must be retried too.
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c, _ := New(testConfig(server.URL), zerolog.Nop())

	if _, err := c.Get(context.Background(), "/0/query", nil); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected 2 requests, got %d", calls.Load())
	}
}

func TestGet_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c, _ := New(testConfig(server.URL), zerolog.Nop())

	_, err := c.Get(context.Background(), "/0/query", nil)
	if err == nil {
		t.Fatal("Expected error after exhausted retries")
	}
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
	if calls.Load() != 4 {
		t.Errorf("Expected 4 requests (full retry budget), got %d", calls.Load())
	}
}

func TestGet_TimeoutIsTransient(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			time.Sleep(200 * time.Millisecond)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Timeout = 50 * time.Millisecond
	c, _ := New(cfg, zerolog.Nop())

	if _, err := c.Get(context.Background(), "/0/query", nil); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected timeout then retry (2 requests), got %d", calls.Load())
	}
}

func TestGet_NetworkErrorExhausts(t *testing.T) {
	// Point at a closed server to force connection errors.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	c, _ := New(testConfig(server.URL), zerolog.Nop())

	_, err := c.Get(context.Background(), "/0/query", nil)
	if err == nil {
		t.Fatal("Expected error for unreachable server")
	}
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
}
