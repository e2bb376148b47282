package llm

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

func completionBody(content string) string {
	payload := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
	encoded, _ := json.Marshal(payload)
	return string(encoded)
}

func newTestClient(baseURL string, attempts int) *Client {
	return NewClient(
		Config{APIKey: "test-key", BaseURL: baseURL, Model: "test-model", RetryAttempts: attempts},
		WithRetryBackoff(time.Millisecond, 2*time.Millisecond),
		WithSleeper(func(time.Duration) {}),
	)
}

func TestGenerateReturnsTextAndUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		_, _ = w.Write([]byte(completionBody("a quiet courtyard scene")))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 1)
	resp, err := client.Generate(context.Background(), "describe the scene", Params{MaxTokens: 100})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text != "a quiet courtyard scene" {
		t.Fatalf("unexpected text %q", resp.Text)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Fatalf("unexpected usage %+v", resp.Usage)
	}
	if resp.ResponseTime <= 0 {
		t.Fatal("expected positive response time")
	}
}

func TestGenerateRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(completionBody("recovered")))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	resp, err := client.Generate(context.Background(), "prompt", Params{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text != "recovered" {
		t.Fatalf("unexpected text %q", resp.Text)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestGenerateAuthFailureNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	_, err := client.Generate(context.Background(), "prompt", Params{})
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("auth failure should not retry, got %d attempts", calls.Load())
	}
}

func TestGenerateRateLimitClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 2)
	_, err := client.Generate(context.Background(), "prompt", Params{})
	if !errors.Is(err, ErrRateLimit) {
		t.Fatalf("expected ErrRateLimit, got %v", err)
	}
}

func TestGenerateMissingAPIKey(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:0", Model: "m"})
	_, err := client.Generate(context.Background(), "prompt", Params{})
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication for missing key, got %v", err)
	}
}

func TestDecodeJSONVariants(t *testing.T) {
	type target struct {
		Mood string `json:"mood"`
	}
	cases := []struct {
		name    string
		payload string
		want    string
		wantErr bool
	}{
		{"plain", `{"mood":"tense"}`, "tense", false},
		{"fenced", "```json\n{\"mood\":\"calm\"}\n```", "calm", false},
		{"prose prefix", `Here is the result: {"mood":"happy"} hope it helps`, "happy", false},
		{"empty", "", "", true},
		{"garbage", "not json at all", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got target
			err := DecodeJSON(tc.payload, &got)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeJSON: %v", err)
			}
			if got.Mood != tc.want {
				t.Fatalf("mood = %q, want %q", got.Mood, tc.want)
			}
		})
	}
}
