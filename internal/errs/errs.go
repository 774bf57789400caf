// Package errs defines the error kinds shared across the pipeline.
// Per-source fetch failures and storage/output failures are recorded and
// survived; configuration and synthesis failures abort the run.
package errs

import "fmt"

// ConfigError reports missing or invalid configuration. Always fatal.
type ConfigError struct {
	Key     string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error (%s): %s", e.Key, e.Message)
}

// FetchError reports a failure fetching a single source.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch from %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SynthesisKind classifies backend failures.
type SynthesisKind int

const (
	KindUnexpected SynthesisKind = iota
	KindRateLimit
	KindConnectivity
	KindBackend
)

func (k SynthesisKind) String() string {
	switch k {
	case KindRateLimit:
		return "rate_limit"
	case KindConnectivity:
		return "connectivity"
	case KindBackend:
		return "backend"
	default:
		return "unexpected"
	}
}

// SynthesisError reports a failed backend call. Always fatal for the run.
type SynthesisError struct {
	Backend string
	Kind    SynthesisKind
	Err     error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed (%s, %s): %v", e.Backend, e.Kind, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// StorageError reports a failed storage operation. Never fatal.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// OutputError reports a failed render operation. Never fatal.
type OutputError struct {
	Err error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("output generation failed: %v", e.Err)
}

func (e *OutputError) Unwrap() error { return e.Err }

// AggregatorError wraps any failure crossing a phase boundary so callers
// have a single catch-all kind.
type AggregatorError struct {
	Phase string
	Err   error
}

func (e *AggregatorError) Error() string {
	return fmt.Sprintf("aggregator failed during %s: %v", e.Phase, e.Err)
}

func (e *AggregatorError) Unwrap() error { return e.Err }
