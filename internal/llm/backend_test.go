package llm

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"newslens/internal/errs"
	"newslens/internal/feed"
)

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New("anthropic", "claude-3-haiku-20240307", "", 0)
	var cfgErr *errs.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError for empty key, got %v", err)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New("cohere", "command", "key", 0)
	var cfgErr *errs.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError for unknown provider, got %v", err)
	}
}

func TestNewKnownProviders(t *testing.T) {
	for _, provider := range []string{"anthropic", "openai", "gemini"} {
		backend, err := New(provider, "model", "key", 0)
		if err != nil {
			t.Fatalf("New(%q) error: %v", provider, err)
		}
		if backend.Name() != provider {
			t.Errorf("Name() = %q, want %q", backend.Name(), provider)
		}
	}
}

func TestAnthropicSynthesizeParsesUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Error("missing x-api-key header")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"text": "the synthesis"}},
			"usage":   map[string]int{"input_tokens": 2000, "output_tokens": 500},
		})
	}))
	defer srv.Close()

	b := &anthropicBackend{
		model: "claude-3-haiku-20240307", apiKey: "test-key",
		maxTokens: 100, baseURL: srv.URL, client: srv.Client(),
	}

	text, usage, err := b.Synthesize(context.Background(), []feed.Item{{Title: "x"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "the synthesis" {
		t.Errorf("text = %q", text)
	}
	if usage.InputTokens != 2000 || usage.OutputTokens != 500 {
		t.Errorf("usage = %+v", usage)
	}
	want := Cost("anthropic", "claude-3-haiku-20240307", 2000, 500)
	if math.Abs(usage.Cost-want) > 1e-12 {
		t.Errorf("cost = %f, want %f", usage.Cost, want)
	}
}

func TestAnthropicRateLimitClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	b := &anthropicBackend{model: "m", apiKey: "k", maxTokens: 10, baseURL: srv.URL, client: srv.Client()}
	_, _, err := b.Synthesize(context.Background(), nil)

	var synthErr *errs.SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("expected SynthesisError, got %v", err)
	}
	if synthErr.Kind != errs.KindRateLimit {
		t.Errorf("kind = %v, want rate_limit", synthErr.Kind)
	}
}

func TestAnthropicBackendErrorClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	b := &anthropicBackend{model: "m", apiKey: "k", maxTokens: 10, baseURL: srv.URL, client: srv.Client()}
	_, _, err := b.Synthesize(context.Background(), nil)

	var synthErr *errs.SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("expected SynthesisError, got %v", err)
	}
	if synthErr.Kind != errs.KindBackend {
		t.Errorf("kind = %v, want backend", synthErr.Kind)
	}
}

func TestConnectivityClassification(t *testing.T) {
	// Closed server: connection refused.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	b := &anthropicBackend{
		model: "m", apiKey: "k", maxTokens: 10, baseURL: url,
		client: &http.Client{Timeout: time.Second},
	}
	_, _, err := b.Synthesize(context.Background(), nil)

	var synthErr *errs.SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("expected SynthesisError, got %v", err)
	}
	if synthErr.Kind != errs.KindConnectivity {
		t.Errorf("kind = %v, want connectivity", synthErr.Kind)
	}
}

func TestAnthropicCheapYesNoSetsZeroTemperature(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"text": "YES"}},
			"usage":   map[string]int{"input_tokens": 5, "output_tokens": 1},
		})
	}))
	defer srv.Close()

	b := &anthropicBackend{model: "m", apiKey: "k", maxTokens: 4096, baseURL: srv.URL, client: srv.Client()}
	resp, err := b.CheapYesNo(context.Background(), "Is this relevant?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp != "YES" {
		t.Errorf("response = %q", resp)
	}
	if temp, ok := body["temperature"].(float64); !ok || temp != 0 {
		t.Errorf("temperature = %v, want 0", body["temperature"])
	}
	if maxTokens, _ := body["max_tokens"].(float64); int(maxTokens) != yesNoMaxTokens {
		t.Errorf("max_tokens = %v, want %d", body["max_tokens"], yesNoMaxTokens)
	}
}

func TestOpenAISynthesizeParsesUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("missing bearer token")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "openai synthesis"}},
			},
			"usage": map[string]int{"prompt_tokens": 1500, "completion_tokens": 400},
		})
	}))
	defer srv.Close()

	b := &openaiBackend{
		model: "gpt-4o-mini", apiKey: "test-key",
		maxTokens: 100, baseURL: srv.URL, client: srv.Client(),
	}
	text, usage, err := b.Synthesize(context.Background(), []feed.Item{{Title: "x"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "openai synthesis" {
		t.Errorf("text = %q", text)
	}
	if usage.InputTokens != 1500 || usage.OutputTokens != 400 {
		t.Errorf("usage = %+v", usage)
	}
}

func TestGeminiEstimatesTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{
					"parts": []map[string]string{{"text": "gemini synthesis"}},
				}},
			},
		})
	}))
	defer srv.Close()

	b := &geminiBackend{
		model: "gemini-1.5-flash", apiKey: "test-key",
		maxTokens: 100, baseURL: srv.URL, client: srv.Client(),
	}
	text, usage, err := b.Synthesize(context.Background(), []feed.Item{{Title: "x", Summary: "something"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "gemini synthesis" {
		t.Errorf("text = %q", text)
	}
	if usage.OutputTokens != estimateTokens("gemini synthesis") {
		t.Errorf("output tokens = %d, want estimate %d", usage.OutputTokens, estimateTokens("gemini synthesis"))
	}
	if usage.InputTokens == 0 {
		t.Error("expected estimated input tokens")
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := estimateTokens("12345678"); got != 2 {
		t.Errorf("estimateTokens = %d, want 2", got)
	}
	if got := estimateTokens(""); got != 0 {
		t.Errorf("estimateTokens of empty = %d, want 0", got)
	}
}
