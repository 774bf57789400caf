// Package metrics accumulates per-session operation timings, token counts
// and costs, and flushes them to a JSON record at session end. All writers
// serialize on one mutex; phases running concurrently must not lose
// updates.
package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Operation is one recorded unit of work.
type Operation struct {
	Type      string  `json:"type"`
	Source    string  `json:"source,omitempty"`
	Backend   string  `json:"backend,omitempty"`
	ItemCount int     `json:"item_count,omitempty"`
	Tokens    int     `json:"tokens,omitempty"`
	Cost      float64 `json:"cost,omitempty"`
	Duration  float64 `json:"duration_seconds"`
	Timestamp string  `json:"timestamp"`
}

// ErrorRecord is one recorded failure.
type ErrorRecord struct {
	Type      string  `json:"type"`
	Source    string  `json:"source,omitempty"`
	Message   string  `json:"message"`
	Duration  float64 `json:"duration_seconds,omitempty"`
	Timestamp string  `json:"timestamp"`
}

// Summary is a read-only snapshot for end-of-run reporting.
type Summary struct {
	SessionID     string
	Operations    int
	Errors        int
	TotalItems    int
	TotalCost     float64
	CostByBackend map[string]float64
	AvgFetchTime  time.Duration
	AvgProcTime   time.Duration
}

// Session accumulates metrics for one run.
type Session struct {
	mu sync.Mutex

	id         string
	start      time.Time
	operations []Operation
	errors     []ErrorRecord
	costs      map[string]float64
	totalCost  float64
	totalItems int
	fetchTimes []time.Duration
	procTimes  []time.Duration
	flushed    bool
}

// NewSession starts a metrics session with a fresh identifier.
func NewSession() *Session {
	now := time.Now()
	return &Session{
		id:    fmt.Sprintf("%s_%s", now.Format("20060102_150405"), uuid.NewString()[:8]),
		start: now,
		costs: make(map[string]float64),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// RecordFetch records a successful source fetch.
func (s *Session) RecordFetch(source string, itemCount int, dur time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operations = append(s.operations, Operation{
		Type:      "fetch",
		Source:    source,
		ItemCount: itemCount,
		Duration:  dur.Seconds(),
		Timestamp: time.Now().Format(time.RFC3339),
	})
	s.fetchTimes = append(s.fetchTimes, dur)
	s.totalItems += itemCount
}

// RecordFetchError records a failed source fetch.
func (s *Session) RecordFetchError(source string, err error, dur time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, ErrorRecord{
		Type:      "fetch",
		Source:    source,
		Message:   err.Error(),
		Duration:  dur.Seconds(),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// RecordSynthesis records a synthesis call with its usage and cost.
func (s *Session) RecordSynthesis(backend string, inputTokens, outputTokens int, cost float64, dur time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operations = append(s.operations, Operation{
		Type:      "process",
		Backend:   backend,
		Tokens:    inputTokens + outputTokens,
		Cost:      cost,
		Duration:  dur.Seconds(),
		Timestamp: time.Now().Format(time.RFC3339),
	})
	s.procTimes = append(s.procTimes, dur)
	s.costs[backend] += cost
	s.totalCost += cost
}

// RecordError records a non-fetch failure by kind.
func (s *Session) RecordError(kind, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, ErrorRecord{
		Type:      kind,
		Message:   message,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// snapshot is the JSON shape written at flush time.
type snapshot struct {
	SessionID     string             `json:"session_id"`
	SessionStart  string             `json:"session_start"`
	SessionEnd    string             `json:"session_end"`
	Operations    []Operation        `json:"operations"`
	Errors        []ErrorRecord      `json:"errors"`
	TotalCost     float64            `json:"total_cost"`
	CostByBackend map[string]float64 `json:"cost_by_backend"`
	TotalItems    int                `json:"total_items"`
}

// Flush writes the session record to dir exactly once and returns its
// path. Later calls are no-ops returning the empty path.
func (s *Session) Flush(dir string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flushed {
		return "", nil
	}
	s.flushed = true

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating metrics directory: %w", err)
	}

	snap := snapshot{
		SessionID:     s.id,
		SessionStart:  s.start.Format(time.RFC3339),
		SessionEnd:    time.Now().Format(time.RFC3339),
		Operations:    s.operations,
		Errors:        s.errors,
		TotalCost:     s.totalCost,
		CostByBackend: s.costs,
		TotalItems:    s.totalItems,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling metrics: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("metrics_%s.json", s.id))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing metrics: %w", err)
	}
	return path, nil
}

// Summary returns a snapshot for console reporting.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	costs := make(map[string]float64, len(s.costs))
	for k, v := range s.costs {
		costs[k] = v
	}
	return Summary{
		SessionID:     s.id,
		Operations:    len(s.operations),
		Errors:        len(s.errors),
		TotalItems:    s.totalItems,
		TotalCost:     s.totalCost,
		CostByBackend: costs,
		AvgFetchTime:  avg(s.fetchTimes),
		AvgProcTime:   avg(s.procTimes),
	}
}

func avg(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return total / time.Duration(len(durations))
}
