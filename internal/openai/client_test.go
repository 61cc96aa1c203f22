package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func chatPayload(content string) []byte {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return b
}

func TestCompleteReturnsContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(chatPayload("Nf3 develops the knight."))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "test-key")
	out, err := c.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "Nf3 develops the knight." {
		t.Fatalf("content = %q", out)
	}
}

func TestCompleteRetriesOn503(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(chatPayload("ok"))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "k", WithRetry(3))
	out, err := c.Complete(context.Background(), "s", "u")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "ok" || calls.Load() != 2 {
		t.Fatalf("out=%q calls=%d", out, calls.Load())
	}
}

func TestCompleteDoesNotRetry400(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "k", WithRetry(3))
	_, err := c.Complete(context.Background(), "s", "u")
	if !errors.Is(err, ErrExternalService) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestBackoffDurationGrowth(t *testing.T) {
	if backoffDuration(1) != 100*time.Millisecond {
		t.Fatalf("attempt 1 = %v", backoffDuration(1))
	}
	if backoffDuration(3) != 400*time.Millisecond {
		t.Fatalf("attempt 3 = %v", backoffDuration(3))
	}
	if backoffDuration(10) != backoffDuration(6) {
		t.Fatalf("backoff must cap at attempt 6")
	}
}

func TestShouldRetryStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		if !shouldRetryStatus(code) {
			t.Fatalf("status %d should retry", code)
		}
	}
	for _, code := range []int{200, 400, 401, 404} {
		if shouldRetryStatus(code) {
			t.Fatalf("status %d must not retry", code)
		}
	}
}
