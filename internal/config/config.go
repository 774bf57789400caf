// Package config loads and validates newslens configuration from YAML,
// with environment variables supplying credentials.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"newslens/internal/feed"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Sources Sources `yaml:"sources"`
	LLM     LLM     `yaml:"llm"`
	Fetch   Fetch   `yaml:"fetch"`
	Output  Output  `yaml:"output"`
	Logging Logging `yaml:"logging"`
}

type Sources struct {
	Default       []Feed `yaml:"default"`
	International []Feed `yaml:"international"`
	Tech          []Feed `yaml:"tech"`
}

type Feed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type LLM struct {
	Provider  string              `yaml:"provider"`
	Priority  []string            `yaml:"priority"`
	MaxTokens int                 `yaml:"max_tokens"`
	Providers map[string]Provider `yaml:"providers"`
}

type Provider struct {
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

type Fetch struct {
	MaxItemsPerSource int  `yaml:"max_items_per_source"`
	FullText          bool `yaml:"full_text"`
}

type Output struct {
	DataDir   string `yaml:"data_dir"`
	OutputDir string `yaml:"output_dir"`
	LogDir    string `yaml:"log_dir"`
	Format    string `yaml:"format"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for newslens.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "newslens")
}

// DataDir returns the XDG data directory for newslens.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "newslens")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/newslens/config.yaml > ./config.yaml.
// An empty path with no file found means the embedded defaults apply.
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", nil
}

// Load reads and parses a config YAML file. An empty path loads the
// embedded defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return parse(DefaultConfigYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults first so a
// partial file only overrides what it names.
func parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(DefaultConfigYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// SourcesByCategory returns the feeds for a category: default,
// international, tech, or all. Unknown categories fall back to default.
func (c *Config) SourcesByCategory(category string) []feed.Source {
	var feeds []Feed
	switch category {
	case "international":
		feeds = c.Sources.International
	case "tech":
		feeds = c.Sources.Tech
	case "all":
		feeds = append(feeds, c.Sources.Default...)
		feeds = append(feeds, c.Sources.International...)
		feeds = append(feeds, c.Sources.Tech...)
	default:
		feeds = c.Sources.Default
	}

	sources := make([]feed.Source, 0, len(feeds))
	for _, f := range feeds {
		sources = append(sources, feed.Source{Name: f.Name, URL: f.URL})
	}
	return sources
}

// AvailableProviders returns provider names whose API key environment
// variable is set, in configured priority order.
func (c *Config) AvailableProviders() []string {
	var available []string
	for _, name := range c.LLM.Priority {
		p, ok := c.LLM.Providers[name]
		if !ok {
			continue
		}
		if os.Getenv(p.APIKeyEnv) != "" {
			available = append(available, name)
		}
	}
	return available
}

// ProviderConfig returns the model and API key for a provider.
func (c *Config) ProviderConfig(name string) (model, apiKey string, ok bool) {
	p, found := c.LLM.Providers[name]
	if !found {
		return "", "", false
	}
	return p.Model, os.Getenv(p.APIKeyEnv), true
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// GetOutputDir returns the directory for rendered reports.
func (c *Config) GetOutputDir() string {
	if c.Output.OutputDir != "" {
		return c.Output.OutputDir
	}
	return filepath.Join(c.GetDataDir(), "outputs")
}

// GetLogDir returns the directory for metrics and log files.
func (c *Config) GetLogDir() string {
	if c.Output.LogDir != "" {
		return c.Output.LogDir
	}
	return filepath.Join(c.GetDataDir(), "logs")
}

// Validate returns a list of configuration problems. Empty means valid.
func (c *Config) Validate() []string {
	var problems []string

	if len(c.AvailableProviders()) == 0 {
		var envs []string
		for _, name := range c.LLM.Priority {
			if p, ok := c.LLM.Providers[name]; ok {
				envs = append(envs, p.APIKeyEnv)
			}
		}
		problems = append(problems, fmt.Sprintf("no LLM API keys found; set at least one of: %v", envs))
	}

	if len(c.Sources.Default) == 0 {
		problems = append(problems, "no default sources configured")
	}

	for _, dir := range []string{c.GetDataDir(), c.GetOutputDir(), c.GetLogDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create directory %s: %v", dir, err))
		}
	}

	return problems
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
