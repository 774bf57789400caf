package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"newslens/internal/config"
	"newslens/internal/errs"
	"newslens/internal/feed"
	"newslens/internal/filter"
	"newslens/internal/llm"
	"newslens/internal/logging"
	"newslens/internal/metrics"
	"newslens/internal/pipeline"
	"newslens/internal/render"
	"newslens/internal/store"
	"newslens/internal/term"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	out        = term.NewPrinter()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if ctx.Err() != nil {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "newslens",
	Short:         "Multi-source news aggregation and LLM synthesis",
	Long:          "newslens fetches news from RSS sources, filters by topic, and synthesizes a comparative analysis through an LLM backend.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config-file", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(selftestCmd)
	rootCmd.AddCommand(configCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("newslens", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/newslens/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			out.Print("Config already exists: %s", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		out.Success("Created config: %s", target)
		out.Print("Edit it to configure feeds and provider models; API keys come from the environment.")
		return nil
	},
}

// --- analyze command ---

var (
	analyzeSources   []string
	analyzeCategory  string
	analyzeProvider  string
	analyzeNoStorage bool
	analyzeNoOutput  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [topic]",
	Short: "Fetch, filter, and synthesize news into a comparative analysis",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic := ""
		if len(args) > 0 {
			topic = args[0]
		}

		sources := resolveSources()
		if len(sources) == 0 {
			out.Error("No sources configured")
			return &errs.ConfigError{Key: "sources", Message: "no sources configured"}
		}

		backend, err := buildBackend()
		if err != nil {
			out.Error("%v", err)
			return err
		}

		log := logging.New(logLevel())
		sess := metrics.NewSession()

		pipe := &pipeline.Pipeline{
			Fetcher:    buildFetcher(log),
			Backend:    backend,
			Metrics:    sess,
			MetricsDir: cfg.GetLogDir(),
			Log:        log,
		}

		if topic != "" {
			pipe.Filter = filter.New(topic, backend, log)
		}

		if !analyzeNoStorage {
			db, err := openStore()
			if err != nil {
				out.Warning("Storage unavailable: %v", err)
			} else {
				defer db.Close()
				pipe.Storage = db
			}
		}
		if !analyzeNoOutput {
			pipe.Renderer = render.NewWriter(cfg.GetOutputDir(), render.Format(cfg.Output.Format))
		}

		if topic != "" {
			out.Info("Analyzing %q across %d sources with %s...", topic, len(sources), backend.Name())
		} else {
			out.Info("Analyzing %d sources with %s...", len(sources), backend.Name())
		}

		result, err := pipe.Run(cmd.Context(), sources, topic)
		printRunErrors(result)
		if err != nil {
			out.Error("Analysis failed: %v", err)
			return err
		}

		out.Header("Synthesis")
		out.Print("%s", result.Synthesis)

		out.Header("Run")
		out.Print("Items analyzed:  %d", result.ItemsProcessed)
		out.Print("Duration:        %s", result.Duration.Round(time.Millisecond))
		if result.StorageID != "" {
			out.Print("Stored as:       %s", result.StorageID)
		}
		if result.OutputPath != "" {
			out.Print("Report:          %s", result.OutputPath)
		}

		printSessionSummary(sess.Summary())
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringSliceVarP(&analyzeSources, "source", "s", nil, "Source URL (repeatable, overrides category)")
	analyzeCmd.Flags().StringVarP(&analyzeCategory, "category", "c", "default", "Source category: default, international, tech, all")
	analyzeCmd.Flags().StringVarP(&analyzeProvider, "provider", "p", "", "LLM provider: anthropic, openai, gemini")
	analyzeCmd.Flags().BoolVar(&analyzeNoStorage, "no-storage", false, "Skip persisting the analysis")
	analyzeCmd.Flags().BoolVar(&analyzeNoOutput, "no-output", false, "Skip writing the report file")
}

// --- sources command ---

var sourcesCategory string

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured news sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		sources := cfg.SourcesByCategory(sourcesCategory)
		if len(sources) == 0 {
			out.Print("No sources in category %q", sourcesCategory)
			return nil
		}

		table := term.NewTable([]string{"Name", "URL"})
		for _, s := range sources {
			table.AddRow([]string{s.Name, s.URL})
		}
		table.Render()
		return nil
	},
}

func init() {
	sourcesCmd.Flags().StringVarP(&sourcesCategory, "category", "c", "all", "Source category: default, international, tech, all")
}

// --- history command ---

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored analyses, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		summaries, err := db.ListAll()
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			out.Print("No stored analyses. Run 'newslens analyze' first.")
			return nil
		}
		if historyLimit > 0 && len(summaries) > historyLimit {
			summaries = summaries[:historyLimit]
		}

		table := term.NewTable([]string{"Identifier", "Topic", "Items", "Created"})
		for _, s := range summaries {
			topic := s.Topic
			if topic == "" {
				topic = "-"
			}
			table.AddRow([]string{s.Identifier, topic, fmt.Sprintf("%d", s.ItemCount), s.CreatedAt})
		}
		table.Render()
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Maximum entries to show")
}

// --- show command ---

var showCmd = &cobra.Command{
	Use:   "show <identifier>",
	Short: "Print a stored analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		analysis, err := db.Load(args[0])
		if err != nil {
			return err
		}
		if analysis == nil {
			return fmt.Errorf("analysis %q not found", args[0])
		}

		title := "News Analysis"
		if analysis.Topic != "" {
			title = fmt.Sprintf("News Analysis: %s", analysis.Topic)
		}
		out.Header(title)
		out.Print("Created:  %s", analysis.CreatedAt)
		out.Print("Items:    %d", analysis.ItemCount)
		out.Print("Sources:  %s", strings.Join(analysis.Sources, ", "))
		if analysis.SessionID != "" {
			out.Print("Session:  %s", analysis.SessionID)
		}
		out.Print("")
		out.Print("%s", analysis.Synthesis)
		return nil
	},
}

// --- selftest command ---

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Validate configuration and exercise one source and the LLM backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		problems := cfg.Validate()
		if len(problems) > 0 {
			for _, p := range problems {
				out.Error("%s", p)
			}
			return &errs.ConfigError{Key: "config", Message: "configuration invalid"}
		}
		out.Success("Configuration valid")

		backend, err := buildBackend()
		if err != nil {
			out.Error("%v", err)
			return err
		}

		out.Info("Testing %s backend...", backend.Name())
		resp, err := backend.CheapYesNo(cmd.Context(), "Reply with only the word YES.")
		if err != nil {
			out.Error("Backend check failed: %v", err)
			return err
		}
		out.Success("Backend responded: %s", strings.TrimSpace(resp))

		sources := cfg.SourcesByCategory("default")
		log := logging.New(logLevel())
		fetcher := buildFetcher(log)

		out.Info("Fetching %s...", sources[0].URL)
		items, err := fetcher.Fetch(cmd.Context(), sources[0])
		if err != nil {
			out.Error("Fetch failed: %v", err)
			return err
		}
		out.Success("Fetched %d items from %s", len(items), sources[0].Name)
		return nil
	},
}

// --- config command ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out.Header("Configuration")
		out.Print("Provider:         %s", cfg.LLM.Provider)
		out.Print("Priority:         %s", strings.Join(cfg.LLM.Priority, ", "))
		out.Print("Max tokens:       %d", cfg.LLM.MaxTokens)
		out.Print("Items per source: %d", cfg.Fetch.MaxItemsPerSource)
		out.Print("Data directory:   %s", cfg.GetDataDir())
		out.Print("Output directory: %s", cfg.GetOutputDir())
		out.Print("Log directory:    %s", cfg.GetLogDir())

		out.Header("API Keys")
		for _, name := range cfg.LLM.Priority {
			p, ok := cfg.LLM.Providers[name]
			if !ok {
				continue
			}
			if os.Getenv(p.APIKeyEnv) != "" {
				out.Print("%-10s %s (set)", name, p.APIKeyEnv)
			} else {
				out.Print("%-10s %s (NOT SET)", name, p.APIKeyEnv)
			}
		}

		available := cfg.AvailableProviders()
		out.Print("")
		if len(available) == 0 {
			out.Warning("No providers available")
		} else {
			out.Print("Available providers: %s", strings.Join(available, ", "))
		}
		return nil
	},
}

// --- helpers ---

func logLevel() string {
	if verbose {
		return "DEBUG"
	}
	return cfg.Logging.Level
}

// resolveSources turns --source flags or the --category flag into the
// fetch list; explicit URLs win.
func resolveSources() []feed.Source {
	if len(analyzeSources) > 0 {
		sources := make([]feed.Source, 0, len(analyzeSources))
		for _, u := range analyzeSources {
			sources = append(sources, feed.Source{URL: u})
		}
		return sources
	}
	return cfg.SourcesByCategory(analyzeCategory)
}

// buildBackend selects a provider by availability and constructs its
// backend. A requested but unavailable provider falls back to the first
// available one with a warning.
func buildBackend() (llm.Backend, error) {
	requested := analyzeProvider
	if requested == "" {
		requested = cfg.LLM.Provider
	}

	name, substituted, err := llm.Select(requested, cfg.AvailableProviders())
	if err != nil {
		return nil, err
	}
	if substituted {
		out.Warning("Provider %q unavailable, using %q", requested, name)
	}

	model, apiKey, ok := cfg.ProviderConfig(name)
	if !ok {
		return nil, &errs.ConfigError{Key: "llm.providers", Message: fmt.Sprintf("provider %q not configured", name)}
	}
	return llm.New(name, model, apiKey, cfg.LLM.MaxTokens)
}

func buildFetcher(log *slog.Logger) *feed.RSSFetcher {
	var content *feed.ContentFetcher
	if cfg.Fetch.FullText {
		content = feed.NewContentFetcher(0, log)
	}
	return feed.NewRSSFetcher(cfg.Fetch.MaxItemsPerSource, content, log)
}

func openStore() (*store.DB, error) {
	dbPath := filepath.Join(cfg.GetDataDir(), "newslens.db")
	return store.Open(dbPath)
}

func printRunErrors(result *pipeline.RunResult) {
	for _, e := range result.Errors {
		if e.Source != "" {
			out.Warning("[%s] %s: %s", e.Phase, e.Source, e.Message)
		} else {
			out.Warning("[%s] %s", e.Phase, e.Message)
		}
	}
}

func printSessionSummary(s metrics.Summary) {
	out.Header("Session " + s.SessionID)
	table := term.NewTable([]string{"Metric", "Value"})
	table.AddRow([]string{"Operations", fmt.Sprintf("%d", s.Operations)})
	table.AddRow([]string{"Errors", fmt.Sprintf("%d", s.Errors)})
	table.AddRow([]string{"Items", fmt.Sprintf("%d", s.TotalItems)})
	table.AddRow([]string{"Total cost", fmt.Sprintf("$%.6f", s.TotalCost)})
	if s.AvgFetchTime > 0 {
		table.AddRow([]string{"Avg fetch", s.AvgFetchTime.Round(time.Millisecond).String()})
	}
	if s.AvgProcTime > 0 {
		table.AddRow([]string{"Avg synthesis", s.AvgProcTime.Round(time.Millisecond).String()})
	}
	for backend, cost := range s.CostByBackend {
		table.AddRow([]string{"Cost " + backend, fmt.Sprintf("$%.6f", cost)})
	}
	table.Render()
}
