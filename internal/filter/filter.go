// Package filter decides, per item, whether it belongs in the batch for a
// topic. It tries a semantic check through the synthesis backend first and
// degrades to a deterministic keyword heuristic on any backend failure.
package filter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"newslens/internal/feed"
	"newslens/internal/llm"
)

const (
	excerptSentences = 3
	excerptMaxWords  = 100
)

// Filter is a topic relevance filter. A nil backend means the keyword
// heuristic is the only tier.
type Filter struct {
	topic   string
	backend llm.Backend
	log     *slog.Logger
}

// New creates a relevance filter for a topic.
func New(topic string, backend llm.Backend, log *slog.Logger) *Filter {
	if log == nil {
		log = slog.Default()
	}
	return &Filter{topic: topic, backend: backend, log: log}
}

// Matches reports whether the item is relevant to the topic. It never
// fails: semantic-tier errors degrade to the keyword heuristic, and an
// empty topic matches everything.
func (f *Filter) Matches(ctx context.Context, item feed.Item) bool {
	if strings.TrimSpace(f.topic) == "" {
		return true
	}

	if f.backend != nil {
		relevant, err := f.semantic(ctx, item)
		if err == nil {
			f.log.Debug("relevance decision", "basis", "semantic", "relevant", relevant, "title", item.Title)
			return relevant
		}
		f.log.Debug("semantic check failed, using keyword heuristic", "error", err, "title", item.Title)
	}

	relevant := KeywordMatch(f.topic, item.Title+" "+item.Summary)
	f.log.Debug("relevance decision", "basis", "keyword", "relevant", relevant, "title", item.Title)
	return relevant
}

// semantic asks the backend a strict yes/no question about a short excerpt
// of the item. The response is relevant iff it starts with "YES".
func (f *Filter) semantic(ctx context.Context, item feed.Item) (bool, error) {
	excerpt := Excerpt(item.Summary)
	if excerpt == "" {
		excerpt = item.Title
	}

	prompt := fmt.Sprintf(
		"Does the following text discuss or relate to the topic %q? Answer with only YES or NO.\n\nText: %s",
		f.topic, excerpt,
	)
	response, err := f.backend.CheapYesNo(ctx, prompt)
	if err != nil {
		return false, err
	}
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(response)), "YES"), nil
}

// Excerpt builds a short extract from a summary: the first three
// sentence-delimited segments joined with periods, capped at 100 words.
// Pure function of its input.
func Excerpt(summary string) string {
	segments := strings.FieldsFunc(summary, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	var kept []string
	for _, s := range segments {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		kept = append(kept, s)
		if len(kept) == excerptSentences {
			break
		}
	}
	if len(kept) == 0 {
		return ""
	}

	text := strings.Join(kept, ". ")
	words := strings.Fields(text)
	if len(words) > excerptMaxWords {
		text = strings.Join(words[:excerptMaxWords], " ") + "..."
	}
	return text
}

// KeywordMatch is the deterministic fallback: lower-case the topic and the
// searchable text, count topic words appearing as substrings, and match
// when at least half of them (minimum one) are present. A topic with no
// words matches everything.
func KeywordMatch(topic, text string) bool {
	keywords := strings.Fields(strings.ToLower(topic))
	if len(keywords) == 0 {
		return true
	}

	text = strings.ToLower(text)
	matched := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			matched++
		}
	}

	threshold := len(keywords) / 2
	if threshold < 1 {
		threshold = 1
	}
	return matched >= threshold
}
