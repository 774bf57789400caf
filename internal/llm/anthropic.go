package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"newslens/internal/feed"
)

const anthropicBaseURL = "https://api.anthropic.com"

// anthropicBackend talks to the Anthropic Messages API.
type anthropicBackend struct {
	model     string
	apiKey    string
	maxTokens int
	baseURL   string
	client    *http.Client
}

func (b *anthropicBackend) Name() string { return "anthropic" }

func (b *anthropicBackend) Synthesize(ctx context.Context, items []feed.Item) (string, Usage, error) {
	prompt := BuildSynthesisPrompt(items)
	text, usage, err := b.generate(ctx, prompt, b.maxTokens, nil)
	if err != nil {
		return "", Usage{}, err
	}
	usage.Cost = Cost("anthropic", b.model, usage.InputTokens, usage.OutputTokens)
	return text, usage, nil
}

func (b *anthropicBackend) CheapYesNo(ctx context.Context, prompt string) (string, error) {
	zero := 0.0
	text, _, err := b.generate(ctx, prompt, yesNoMaxTokens, &zero)
	return text, err
}

func (b *anthropicBackend) generate(ctx context.Context, prompt string, maxTokens int, temperature *float64) (string, Usage, error) {
	body := map[string]any{
		"model":      b.model,
		"max_tokens": maxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	if temperature != nil {
		body["temperature"] = *temperature
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", Usage{}, unexpectedErr("anthropic", fmt.Errorf("marshaling request: %w", err))
	}

	base := b.baseURL
	if base == "" {
		base = anthropicBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/v1/messages", bytes.NewReader(data))
	if err != nil {
		return "", Usage{}, unexpectedErr("anthropic", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", b.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", Usage{}, connectivityErr("anthropic", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", Usage{}, statusErr("anthropic", resp.StatusCode, string(respBody))
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", Usage{}, unexpectedErr("anthropic", fmt.Errorf("decoding response: %w", err))
	}
	if len(result.Content) == 0 {
		return "", Usage{}, unexpectedErr("anthropic", fmt.Errorf("empty content in response"))
	}

	return result.Content[0].Text, Usage{
		InputTokens:  result.Usage.InputTokens,
		OutputTokens: result.Usage.OutputTokens,
	}, nil
}
