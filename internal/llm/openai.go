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

const openaiBaseURL = "https://api.openai.com"

// openaiBackend talks to the OpenAI chat completions API.
type openaiBackend struct {
	model     string
	apiKey    string
	maxTokens int
	baseURL   string
	client    *http.Client
}

func (b *openaiBackend) Name() string { return "openai" }

func (b *openaiBackend) Synthesize(ctx context.Context, items []feed.Item) (string, Usage, error) {
	prompt := BuildSynthesisPrompt(items)
	text, usage, err := b.generate(ctx, prompt, b.maxTokens, nil)
	if err != nil {
		return "", Usage{}, err
	}
	usage.Cost = Cost("openai", b.model, usage.InputTokens, usage.OutputTokens)
	return text, usage, nil
}

func (b *openaiBackend) CheapYesNo(ctx context.Context, prompt string) (string, error) {
	zero := 0.0
	text, _, err := b.generate(ctx, prompt, yesNoMaxTokens, &zero)
	return text, err
}

func (b *openaiBackend) generate(ctx context.Context, prompt string, maxTokens int, temperature *float64) (string, Usage, error) {
	body := map[string]any{
		"model": b.model,
		"messages": []map[string]string{
			{"role": "system", "content": "You are an expert news analyst specializing in multi-source analysis and synthesis."},
			{"role": "user", "content": prompt},
		},
		"max_tokens": maxTokens,
	}
	if temperature != nil {
		body["temperature"] = *temperature
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", Usage{}, unexpectedErr("openai", fmt.Errorf("marshaling request: %w", err))
	}

	base := b.baseURL
	if base == "" {
		base = openaiBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/v1/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", Usage{}, unexpectedErr("openai", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return "", Usage{}, connectivityErr("openai", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", Usage{}, statusErr("openai", resp.StatusCode, string(respBody))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", Usage{}, unexpectedErr("openai", fmt.Errorf("decoding response: %w", err))
	}
	if len(result.Choices) == 0 {
		return "", Usage{}, unexpectedErr("openai", fmt.Errorf("no choices in response"))
	}

	return result.Choices[0].Message.Content, Usage{
		InputTokens:  result.Usage.PromptTokens,
		OutputTokens: result.Usage.CompletionTokens,
	}, nil
}
