package pipeline

import "time"

// PhaseError is one recorded, non-fatal failure from a pipeline phase.
type PhaseError struct {
	Phase   string `json:"phase"`
	Source  string `json:"source,omitempty"`
	Message string `json:"message"`
}

// RunResult is the structured outcome of one orchestrator invocation.
// It is created at run start, mutated through the phases, and returned at
// the end; Errors is append-only and Duration is always set.
type RunResult struct {
	Success        bool
	Topic          string
	Sources        []string
	ItemsProcessed int
	Errors         []PhaseError
	Synthesis      string
	StorageID      string
	OutputPath     string
	Duration       time.Duration
}

// Metadata describes a completed (or attempted) run for the storage and
// output collaborators.
type Metadata struct {
	Topic         string
	Sources       []string
	ItemCount     int
	FailedSources []string
	SessionID     string
	GeneratedAt   time.Time
}
