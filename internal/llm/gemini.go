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

const geminiBaseURL = "https://generativelanguage.googleapis.com"

// geminiBackend talks to the Google Generative Language API. Gemini does
// not return usage counts on every response, so token counts are estimated
// from text length.
type geminiBackend struct {
	model     string
	apiKey    string
	maxTokens int
	baseURL   string
	client    *http.Client
}

func (b *geminiBackend) Name() string { return "gemini" }

func (b *geminiBackend) Synthesize(ctx context.Context, items []feed.Item) (string, Usage, error) {
	prompt := BuildSynthesisPrompt(items)
	text, err := b.generate(ctx, prompt, b.maxTokens, nil)
	if err != nil {
		return "", Usage{}, err
	}
	usage := Usage{
		InputTokens:  estimateTokens(prompt),
		OutputTokens: estimateTokens(text),
	}
	usage.Cost = Cost("gemini", b.model, usage.InputTokens, usage.OutputTokens)
	return text, usage, nil
}

func (b *geminiBackend) CheapYesNo(ctx context.Context, prompt string) (string, error) {
	zero := 0.0
	return b.generate(ctx, prompt, yesNoMaxTokens, &zero)
}

func (b *geminiBackend) generate(ctx context.Context, prompt string, maxTokens int, temperature *float64) (string, error) {
	genConfig := map[string]any{"maxOutputTokens": maxTokens}
	if temperature != nil {
		genConfig["temperature"] = *temperature
	}
	body := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": prompt}}},
		},
		"generationConfig": genConfig,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", unexpectedErr("gemini", fmt.Errorf("marshaling request: %w", err))
	}

	base := b.baseURL
	if base == "" {
		base = geminiBaseURL
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", base, b.model, b.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", unexpectedErr("gemini", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", connectivityErr("gemini", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", statusErr("gemini", resp.StatusCode, string(respBody))
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", unexpectedErr("gemini", fmt.Errorf("decoding response: %w", err))
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", unexpectedErr("gemini", fmt.Errorf("empty candidates in response"))
	}

	return result.Candidates[0].Content.Parts[0].Text, nil
}
