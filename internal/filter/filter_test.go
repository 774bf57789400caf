package filter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"newslens/internal/feed"
	"newslens/internal/llm"
	"newslens/internal/logging"
)

type mockBackend struct {
	response string
	err      error
	calls    int
}

func (m *mockBackend) Name() string { return "mock" }

func (m *mockBackend) Synthesize(_ context.Context, _ []feed.Item) (string, llm.Usage, error) {
	return m.response, llm.Usage{}, m.err
}

func (m *mockBackend) CheapYesNo(_ context.Context, _ string) (string, error) {
	m.calls++
	return m.response, m.err
}

func TestMatchesEmptyTopicAcceptsEverything(t *testing.T) {
	f := New("", &mockBackend{response: "NO"}, logging.Discard())
	if !f.Matches(context.Background(), feed.Item{Title: "anything"}) {
		t.Error("empty topic should match every item")
	}
}

func TestMatchesSemanticYes(t *testing.T) {
	backend := &mockBackend{response: "YES"}
	f := New("climate", backend, logging.Discard())

	item := feed.Item{Title: "Unrelated title", Summary: "Nothing in common."}
	if !f.Matches(context.Background(), item) {
		t.Error("expected semantic YES to accept the item")
	}
	if backend.calls != 1 {
		t.Errorf("expected 1 backend call, got %d", backend.calls)
	}
}

func TestMatchesSemanticYesWithTrailingText(t *testing.T) {
	f := New("climate", &mockBackend{response: "  yes, it is related"}, logging.Discard())
	if !f.Matches(context.Background(), feed.Item{Title: "x"}) {
		t.Error("expected YES-prefixed response to accept")
	}
}

func TestMatchesSemanticNo(t *testing.T) {
	f := New("climate", &mockBackend{response: "NO"}, logging.Discard())
	item := feed.Item{Title: "climate summit", Summary: "climate climate climate"}
	if f.Matches(context.Background(), item) {
		t.Error("semantic NO must win even when keywords would match")
	}
}

func TestMatchesDegradesToKeywordOnBackendError(t *testing.T) {
	backend := &mockBackend{err: errors.New("rate limited")}
	f := New("climate", backend, logging.Discard())

	relevant := feed.Item{Title: "Climate summit opens", Summary: "Leaders discuss emissions."}
	irrelevant := feed.Item{Title: "Sports roundup", Summary: "Match results from the weekend."}

	if !f.Matches(context.Background(), relevant) {
		t.Error("keyword fallback should accept item mentioning the topic")
	}
	if f.Matches(context.Background(), irrelevant) {
		t.Error("keyword fallback should reject item without topic words")
	}
}

func TestMatchesNilBackendUsesKeywords(t *testing.T) {
	f := New("climate policy", nil, logging.Discard())
	item := feed.Item{Title: "New climate report", Summary: ""}
	if !f.Matches(context.Background(), item) {
		t.Error("one of two keywords present should meet the threshold")
	}
}

func TestExcerptFirstThreeSentences(t *testing.T) {
	summary := "First sentence. Second one! Third here? Fourth is dropped."
	got := Excerpt(summary)
	want := "First sentence. Second one. Third here"
	if got != want {
		t.Errorf("Excerpt() = %q, want %q", got, want)
	}
}

func TestExcerptEmpty(t *testing.T) {
	if got := Excerpt(""); got != "" {
		t.Errorf("Excerpt(\"\") = %q, want empty", got)
	}
	if got := Excerpt("..."); got != "" {
		t.Errorf("Excerpt of only delimiters = %q, want empty", got)
	}
}

func TestExcerptCapsAtHundredWords(t *testing.T) {
	long := strings.Repeat("word ", 150)
	got := Excerpt(long)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected truncated excerpt to end with ellipsis, got %q", got[len(got)-10:])
	}
	if n := len(strings.Fields(strings.TrimSuffix(got, "..."))); n != 100 {
		t.Errorf("expected 100 words before ellipsis, got %d", n)
	}
}

func TestExcerptDeterministic(t *testing.T) {
	summary := "Alpha beta. Gamma delta. Epsilon zeta. Eta theta."
	first := Excerpt(summary)
	for i := 0; i < 5; i++ {
		if got := Excerpt(summary); got != first {
			t.Fatalf("Excerpt not deterministic: %q vs %q", got, first)
		}
	}
}

func TestKeywordMatchThreshold(t *testing.T) {
	tests := []struct {
		name  string
		topic string
		text  string
		want  bool
	}{
		{"single word present", "climate", "the climate is changing", true},
		{"single word absent", "climate", "sports news today", false},
		{"half of four words", "climate change policy summit", "the climate summit opened", true},
		{"one of four words", "climate change policy summit", "the summit opened", false},
		{"case insensitive", "CLIMATE", "Climate talks resume", true},
		{"empty topic", "", "anything", true},
		{"substring match", "econ", "economic outlook", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KeywordMatch(tt.topic, tt.text); got != tt.want {
				t.Errorf("KeywordMatch(%q, %q) = %v, want %v", tt.topic, tt.text, got, tt.want)
			}
		})
	}
}
