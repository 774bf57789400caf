// Package llm provides the synthesis backends. All variants expose the
// same capability pair: one expensive synthesis call over a whole batch,
// and a cheap yes/no call used by the relevance filter.
package llm

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"context"

	"newslens/internal/errs"
	"newslens/internal/feed"
)

// DefaultMaxTokens is the generation budget for a synthesis call.
const DefaultMaxTokens = 4096

// yesNoMaxTokens is the generation budget for a relevance check.
const yesNoMaxTokens = 10

// charsPerToken is the estimate used when a backend does not report exact
// token counts.
const charsPerToken = 4

// Usage reports what a synthesis call consumed.
type Usage struct {
	InputTokens  int
	OutputTokens int
	Cost         float64
}

// Backend is a synthesis backend. Implementations differ only in wire
// protocol, model-name space, and pricing.
type Backend interface {
	Name() string
	Synthesize(ctx context.Context, items []feed.Item) (string, Usage, error)
	CheapYesNo(ctx context.Context, prompt string) (string, error)
}

// New creates a backend by provider name.
func New(provider, model, apiKey string, maxTokens int) (Backend, error) {
	if apiKey == "" {
		return nil, &errs.ConfigError{
			Key:     strings.ToUpper(provider) + "_API_KEY",
			Message: fmt.Sprintf("%s API key not found in environment", provider),
		}
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	client := &http.Client{Timeout: 120 * time.Second}

	switch provider {
	case "anthropic":
		return &anthropicBackend{model: model, apiKey: apiKey, maxTokens: maxTokens, client: client}, nil
	case "openai":
		return &openaiBackend{model: model, apiKey: apiKey, maxTokens: maxTokens, client: client}, nil
	case "gemini":
		return &geminiBackend{model: model, apiKey: apiKey, maxTokens: maxTokens, client: client}, nil
	default:
		return nil, &errs.ConfigError{Key: "llm.provider", Message: fmt.Sprintf("unknown provider: %s", provider)}
	}
}

// estimateTokens approximates a token count for backends that do not
// report usage.
func estimateTokens(text string) int {
	return len(text) / charsPerToken
}

func connectivityErr(backend string, err error) error {
	return &errs.SynthesisError{Backend: backend, Kind: errs.KindConnectivity, Err: err}
}

func statusErr(backend string, status int, body string) error {
	kind := errs.KindBackend
	if status == http.StatusTooManyRequests {
		kind = errs.KindRateLimit
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return &errs.SynthesisError{
		Backend: backend,
		Kind:    kind,
		Err:     fmt.Errorf("API returned %d: %s", status, body),
	}
}

func unexpectedErr(backend string, err error) error {
	return &errs.SynthesisError{Backend: backend, Kind: errs.KindUnexpected, Err: err}
}
