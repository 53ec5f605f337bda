package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ward/internal/retry"
)

func fastCaller(t *testing.T) *retry.Caller {
	t.Helper()
	return retry.New(
		[]time.Duration{time.Millisecond, time.Millisecond},
		retry.WithSleeper(func(context.Context, time.Duration) error { return nil }),
	)
}

func TestCompleteJSONSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header = %q", got)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL, Model: "test"},
		WithCaller(fastCaller(t)))

	content, err := client.CompleteJSON(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if content != `{"ok":true}` {
		t.Fatalf("content = %q", content)
	}
}

func TestCompleteJSONRetriesRateLimit(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"rate limit"}}`))
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"{}"}}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Model: "m"},
		WithCaller(fastCaller(t)))

	if _, err := client.CompleteJSON(context.Background(), "s", "u"); err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want retry then success", calls)
	}
}

func TestCompleteJSONFatalNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Model: "m"},
		WithCaller(fastCaller(t)))

	_, err := client.CompleteJSON(context.Background(), "s", "u")
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want no retries on 401", calls)
	}
}

func TestCompleteJSONRequiresPrompts(t *testing.T) {
	client := NewClient(Config{APIKey: "k", Model: "m"})
	if _, err := client.CompleteJSON(context.Background(), "", "u"); err == nil {
		t.Fatal("expected error for empty system prompt")
	}
	if _, err := client.CompleteJSON(context.Background(), "s", ""); err == nil {
		t.Fatal("expected error for empty user prompt")
	}
}

func TestDecodeJSON(t *testing.T) {
	type out struct {
		OK bool `json:"ok"`
	}

	cases := []string{
		`{"ok":true}`,
		"```json\n{\"ok\":true}\n```",
		"Here is the result:\n{\"ok\":true}",
	}
	for _, content := range cases {
		var v out
		if err := DecodeJSON(content, &v); err != nil {
			t.Errorf("DecodeJSON(%q): %v", content, err)
			continue
		}
		if !v.OK {
			t.Errorf("DecodeJSON(%q): ok not set", content)
		}
	}

	var v out
	if err := DecodeJSON("no json here", &v); err == nil {
		t.Fatal("expected error for non-JSON content")
	}
	if err := DecodeJSON("", &v); err == nil || !strings.Contains(err.Error(), "empty") {
		t.Fatalf("expected empty-content error, got %v", err)
	}
}
