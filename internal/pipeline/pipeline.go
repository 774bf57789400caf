// Package pipeline orchestrates one aggregation run: fetch all sources
// with per-source failure isolation, filter, synthesize through exactly
// one backend, then best-effort persist and render.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"newslens/internal/errs"
	"newslens/internal/feed"
	"newslens/internal/llm"
	"newslens/internal/metrics"
)

const defaultFetchWorkers = 4

// Fetcher pulls validated items from one source. It must return either a
// non-empty item list or an error, never an empty success.
type Fetcher interface {
	Fetch(ctx context.Context, src feed.Source) ([]feed.Item, error)
}

// Storage persists a completed run.
type Storage interface {
	Save(items []feed.Item, synthesis string, meta Metadata) (string, error)
}

// Renderer writes a human-readable report and returns its location.
type Renderer interface {
	Render(synthesis string, meta Metadata) (string, error)
}

// RelevanceFilter decides, per item, whether it belongs in the batch.
type RelevanceFilter interface {
	Matches(ctx context.Context, item feed.Item) bool
}

// Pipeline holds the collaborators for a run. Fetcher, Backend, and
// Metrics are required; Storage, Renderer, and Filter are optional and
// skipped silently when nil.
type Pipeline struct {
	Fetcher      Fetcher
	Backend      llm.Backend
	Storage      Storage
	Renderer     Renderer
	Filter       RelevanceFilter
	Metrics      *metrics.Session
	MetricsDir   string
	Log          *slog.Logger
	FetchWorkers int
}

// fetchOutcome holds one source's result, indexed so the batch can be
// flattened in requested-source order regardless of fetch interleaving.
type fetchOutcome struct {
	items []feed.Item
	err   error
}

// Run executes the pipeline for the given sources and optional topic.
// The returned RunResult is never nil and always carries a duration;
// metrics are flushed exactly once on every exit path.
func (p *Pipeline) Run(ctx context.Context, sources []feed.Source, topic string) (*RunResult, error) {
	start := time.Now()
	log := p.Log
	if log == nil {
		log = slog.Default()
	}

	result := &RunResult{Topic: topic}
	for _, s := range sources {
		result.Sources = append(result.Sources, s.URL)
	}

	defer func() {
		result.Duration = time.Since(start)
		if p.Metrics != nil && p.MetricsDir != "" {
			if _, err := p.Metrics.Flush(p.MetricsDir); err != nil {
				log.Warn("failed to flush metrics", "error", err)
			}
		}
	}()

	if p.Backend == nil {
		return result, &errs.AggregatorError{Phase: "setup", Err: fmt.Errorf("no synthesis backend configured")}
	}
	if p.Fetcher == nil {
		return result, &errs.AggregatorError{Phase: "setup", Err: fmt.Errorf("no fetcher configured")}
	}
	if len(sources) == 0 {
		return result, &errs.AggregatorError{Phase: "setup", Err: fmt.Errorf("no sources supplied")}
	}

	log.Info("starting pipeline", "topic", topic, "sources", len(sources))

	batch, failed := p.fetchAll(ctx, sources, topic, result, log)
	if len(batch) == 0 {
		err := &errs.FetchError{
			Source: "all_sources",
			Err:    fmt.Errorf("no items collected from any source (failed: %v)", failed),
		}
		if p.Metrics != nil {
			p.Metrics.RecordError("fetch", err.Error())
		}
		log.Error("fetch phase failed", "error", err)
		return result, err
	}
	result.ItemsProcessed = len(batch)
	log.Info("fetch phase complete", "items", len(batch), "sources_ok", len(sources)-len(failed), "sources_failed", len(failed))

	synthesis, err := p.synthesize(ctx, batch, result, log)
	if err != nil {
		return result, err
	}
	result.Synthesis = synthesis
	result.Success = true

	meta := Metadata{
		Topic:         topic,
		ItemCount:     len(batch),
		FailedSources: failed,
		GeneratedAt:   time.Now(),
	}
	meta.Sources = append(meta.Sources, result.Sources...)
	if p.Metrics != nil {
		meta.SessionID = p.Metrics.ID()
	}

	p.persist(batch, synthesis, meta, result, log)
	p.render(synthesis, meta, result, log)

	log.Info("pipeline complete", "items", result.ItemsProcessed, "errors", len(result.Errors))
	return result, nil
}

// fetchAll fetches every source with a bounded worker pool. One source's
// failure never cancels its siblings; failures are recorded on the result
// and the failed source list is returned alongside the flattened batch.
func (p *Pipeline) fetchAll(ctx context.Context, sources []feed.Source, topic string, result *RunResult, log *slog.Logger) ([]feed.Item, []string) {
	outcomes := make([]fetchOutcome, len(sources))

	g := new(errgroup.Group)
	workers := p.FetchWorkers
	if workers <= 0 {
		workers = defaultFetchWorkers
	}
	g.SetLimit(workers)

	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			fetchStart := time.Now()
			items, err := p.Fetcher.Fetch(ctx, src)
			dur := time.Since(fetchStart)
			if err != nil {
				outcomes[i] = fetchOutcome{err: err}
				if p.Metrics != nil {
					p.Metrics.RecordFetchError(src.URL, err, dur)
				}
				log.Warn("source fetch failed", "source", src.URL, "error", err)
				return nil
			}
			outcomes[i] = fetchOutcome{items: items}
			if p.Metrics != nil {
				p.Metrics.RecordFetch(src.URL, len(items), dur)
			}
			log.Info("source fetched", "source", src.URL, "items", len(items), "duration", dur)
			return nil
		})
	}
	g.Wait()

	var batch []feed.Item
	var failed []string
	for i, src := range sources {
		if outcomes[i].err != nil {
			failed = append(failed, src.URL)
			result.Errors = append(result.Errors, PhaseError{
				Phase:   "fetch",
				Source:  src.URL,
				Message: outcomes[i].err.Error(),
			})
			continue
		}
		for _, item := range outcomes[i].items {
			if topic != "" && p.Filter != nil && !p.Filter.Matches(ctx, item) {
				continue
			}
			batch = append(batch, item)
		}
	}
	return batch, failed
}

// synthesize issues the single synthesis call for the run. Any failure
// here is fatal; there is no mid-run fallback to another backend.
func (p *Pipeline) synthesize(ctx context.Context, batch []feed.Item, result *RunResult, log *slog.Logger) (string, error) {
	log.Info("synthesis phase starting", "backend", p.Backend.Name(), "items", len(batch))
	synthStart := time.Now()

	text, usage, err := p.Backend.Synthesize(ctx, batch)
	dur := time.Since(synthStart)
	if err == nil && strings.TrimSpace(text) == "" {
		err = &errs.SynthesisError{
			Backend: p.Backend.Name(),
			Kind:    errs.KindUnexpected,
			Err:     fmt.Errorf("backend returned empty synthesis"),
		}
	}
	if err != nil {
		result.Errors = append(result.Errors, PhaseError{Phase: "process", Message: err.Error()})
		if p.Metrics != nil {
			p.Metrics.RecordError("process", err.Error())
		}
		log.Error("synthesis phase failed", "backend", p.Backend.Name(), "error", err)
		return "", err
	}

	if p.Metrics != nil {
		p.Metrics.RecordSynthesis(p.Backend.Name(), usage.InputTokens, usage.OutputTokens, usage.Cost, dur)
	}
	log.Info("synthesis phase complete", "backend", p.Backend.Name(),
		"input_tokens", usage.InputTokens, "output_tokens", usage.OutputTokens,
		"cost", usage.Cost, "duration", dur)
	return text, nil
}

// persist saves the run if storage is configured. Failures are recorded
// but never abort later phases or flip success.
func (p *Pipeline) persist(batch []feed.Item, synthesis string, meta Metadata, result *RunResult, log *slog.Logger) {
	if p.Storage == nil {
		return
	}
	id, err := p.Storage.Save(batch, synthesis, meta)
	if err != nil {
		result.Errors = append(result.Errors, PhaseError{Phase: "storage", Message: err.Error()})
		if p.Metrics != nil {
			p.Metrics.RecordError("storage", err.Error())
		}
		log.Warn("storage phase failed", "error", err)
		return
	}
	result.StorageID = id
	log.Info("storage phase complete", "id", id)
}

// render generates the output report if a renderer is configured, with the
// same non-fatal policy as persist.
func (p *Pipeline) render(synthesis string, meta Metadata, result *RunResult, log *slog.Logger) {
	if p.Renderer == nil {
		return
	}
	path, err := p.Renderer.Render(synthesis, meta)
	if err != nil {
		result.Errors = append(result.Errors, PhaseError{Phase: "output", Message: err.Error()})
		if p.Metrics != nil {
			p.Metrics.RecordError("output", err.Error())
		}
		log.Warn("output phase failed", "error", err)
		return
	}
	result.OutputPath = path
	log.Info("output phase complete", "path", path)
}
