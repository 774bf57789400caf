package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := parse(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("provider = %q, want openai", cfg.LLM.Provider)
	}
	if cfg.LLM.MaxTokens != 4096 {
		t.Errorf("max_tokens = %d, want 4096", cfg.LLM.MaxTokens)
	}
	if len(cfg.LLM.Priority) != 3 {
		t.Errorf("priority = %v", cfg.LLM.Priority)
	}
	if cfg.Fetch.MaxItemsPerSource != 10 {
		t.Errorf("max_items_per_source = %d, want 10", cfg.Fetch.MaxItemsPerSource)
	}
	if len(cfg.Sources.Default) != 3 {
		t.Errorf("default sources = %d, want 3", len(cfg.Sources.Default))
	}
	if len(cfg.Sources.International) != 5 {
		t.Errorf("international sources = %d, want 5", len(cfg.Sources.International))
	}
	if len(cfg.Sources.Tech) != 3 {
		t.Errorf("tech sources = %d, want 3", len(cfg.Sources.Tech))
	}
}

func TestParsePartialOverride(t *testing.T) {
	cfg, err := parse([]byte("llm:\n  provider: gemini\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLM.Provider != "gemini" {
		t.Errorf("provider = %q, want gemini", cfg.LLM.Provider)
	}
	// Untouched sections keep their defaults.
	if cfg.Fetch.MaxItemsPerSource != 10 {
		t.Errorf("max_items_per_source = %d, want 10", cfg.Fetch.MaxItemsPerSource)
	}
	if len(cfg.Sources.Default) != 3 {
		t.Errorf("default sources = %d, want 3", len(cfg.Sources.Default))
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := parse([]byte("llm: [broken")); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestSourcesByCategory(t *testing.T) {
	cfg, _ := parse(nil)

	if got := cfg.SourcesByCategory("default"); len(got) != 3 {
		t.Errorf("default = %d sources", len(got))
	}
	if got := cfg.SourcesByCategory("tech"); len(got) != 3 {
		t.Errorf("tech = %d sources", len(got))
	}
	if got := cfg.SourcesByCategory("all"); len(got) != 11 {
		t.Errorf("all = %d sources, want 11", len(got))
	}
	// Unknown category falls back to default.
	if got := cfg.SourcesByCategory("bogus"); len(got) != 3 {
		t.Errorf("unknown category = %d sources, want 3", len(got))
	}

	sources := cfg.SourcesByCategory("default")
	if sources[0].Name == "" || sources[0].URL == "" {
		t.Errorf("source fields not populated: %+v", sources[0])
	}
}

func TestAvailableProviders(t *testing.T) {
	cfg, _ := parse(nil)

	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	if got := cfg.AvailableProviders(); len(got) != 0 {
		t.Errorf("expected none available, got %v", got)
	}

	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("GEMINI_API_KEY", "g-test")
	got := cfg.AvailableProviders()
	if len(got) != 2 {
		t.Fatalf("available = %v, want 2", got)
	}
	// Priority order, not env-set order.
	if got[0] != "openai" || got[1] != "gemini" {
		t.Errorf("available order = %v, want [openai gemini]", got)
	}
}

func TestProviderConfig(t *testing.T) {
	cfg, _ := parse(nil)
	t.Setenv("ANTHROPIC_API_KEY", "key-123")

	model, apiKey, ok := cfg.ProviderConfig("anthropic")
	if !ok {
		t.Fatal("expected anthropic to be configured")
	}
	if model != "claude-3-haiku-20240307" {
		t.Errorf("model = %q", model)
	}
	if apiKey != "key-123" {
		t.Errorf("apiKey = %q", apiKey)
	}

	if _, _, ok := cfg.ProviderConfig("cohere"); ok {
		t.Error("unknown provider must not be configured")
	}
}

func TestResolveConfigPathExplicitMissing(t *testing.T) {
	if _, err := ResolveConfigPath("/does/not/exist.yaml"); err == nil {
		t.Error("expected error for missing explicit path")
	}
}

func TestResolveConfigPathExplicit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("llm:\n  provider: gemini\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ResolveConfigPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != path {
		t.Errorf("resolved = %q, want %q", got, path)
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Sources.Default) == 0 {
		t.Error("expected embedded default sources")
	}
}

func TestDirOverrides(t *testing.T) {
	cfg, _ := parse([]byte("output:\n  data_dir: /tmp/nl-data\n"))
	if cfg.GetDataDir() != "/tmp/nl-data" {
		t.Errorf("data dir = %q", cfg.GetDataDir())
	}
	if cfg.GetOutputDir() != filepath.Join("/tmp/nl-data", "outputs") {
		t.Errorf("output dir = %q", cfg.GetOutputDir())
	}
	if cfg.GetLogDir() != filepath.Join("/tmp/nl-data", "logs") {
		t.Errorf("log dir = %q", cfg.GetLogDir())
	}
}
