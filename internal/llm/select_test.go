package llm

import (
	"errors"
	"testing"

	"newslens/internal/errs"
)

func TestSelectRequestedAvailable(t *testing.T) {
	name, substituted, err := Select("openai", []string{"anthropic", "openai", "gemini"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "openai" || substituted {
		t.Errorf("got (%q, %v), want (openai, false)", name, substituted)
	}
}

func TestSelectSubstitutesFirstAvailable(t *testing.T) {
	name, substituted, err := Select("anthropic", []string{"openai", "gemini"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "openai" || !substituted {
		t.Errorf("got (%q, %v), want (openai, true)", name, substituted)
	}
}

func TestSelectNoneAvailable(t *testing.T) {
	_, _, err := Select("anthropic", nil)
	if err == nil {
		t.Fatal("expected error with no available backends")
	}
	var cfgErr *errs.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %T", err)
	}
}

func TestSelectDeterministic(t *testing.T) {
	available := []string{"gemini", "openai"}
	first, _, _ := Select("missing", available)
	for i := 0; i < 10; i++ {
		got, _, _ := Select("missing", available)
		if got != first {
			t.Fatalf("selection not deterministic: %q vs %q", got, first)
		}
	}
}
