package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes crossing the core boundary.
var (
	// ErrConfiguration indicates invalid startup or call-time configuration
	// (bad chunk parameters, missing credentials). Never retried.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrInvalidInput indicates empty or malformed caller input. Never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrProviderUnavailable indicates a transient network failure reaching
	// the embedding provider. Eligible for bounded retry with backoff.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")

	// ErrStoreUnavailable indicates a transient network failure reaching
	// the vector store. Eligible for bounded retry with backoff.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrRateLimited indicates the backend rejected the call due to rate or
	// quota limits. Callers should surface an explicit "try again shortly"
	// message rather than a generic failure.
	ErrRateLimited = errors.New("rate limited")

	// ErrDimensionMismatch indicates an embedding dimension that does not
	// match the index configuration. Fatal, never coerced.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrUnsupportedType indicates a MIME type the extractor cannot handle.
	ErrUnsupportedType = errors.New("unsupported file type")
)

// PartialBatchError reports an upsert that failed after some batches were
// already committed. Batch is 1-based; Committed counts records written
// before the failing batch. There is no rollback: callers may retry the
// whole document because ids are deterministic overwrites.
type PartialBatchError struct {
	Batch     int
	Committed int
	Err       error
}

func (e *PartialBatchError) Error() string {
	return fmt.Sprintf("upsert batch %d failed after %d records committed: %v", e.Batch, e.Committed, e.Err)
}

func (e *PartialBatchError) Unwrap() error { return e.Err }

// Stage identifies where in the ingestion pipeline a failure occurred.
type Stage string

const (
	StageChunk Stage = "chunk"
	StageEmbed Stage = "embed"
	StageStore Stage = "store"
)

// StageError wraps a pipeline failure with the stage it occurred in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// IsRateLimited reports whether err is (or wraps) a rate-limit condition.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsRetryable reports whether err represents a transient condition that a
// bounded retry with backoff may resolve. Validation and configuration
// failures are deterministic and never retryable.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, ErrRateLimited)
}
