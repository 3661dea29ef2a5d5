// Copyright (c) 2025 Neomantra Corp

package nexus

import "fmt"

var (
	ErrUnknownEventType = fmt.Errorf("unknown event type")
	ErrMalformedEvent   = fmt.Errorf("event payload missing for its type")
	ErrWriterClosed     = fmt.Errorf("writer is closed")
	ErrWriterFailed     = fmt.Errorf("writer failed on a prior I/O error")
	ErrReaderClosed     = fmt.Errorf("reader is closed")
	ErrNoMetadata       = fmt.Errorf("file carries no event log metadata")
	ErrNotPartitionPath = fmt.Errorf("path is not a canonical partition path")
)

// ValidationError reports a single broken invariant for one event.
// It is counted and logged, never fatal.
type ValidationError struct {
	Invariant string // short invariant name, e.g. "seq_order"
	Reason    string // human-readable detail citing the offending value
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed [%s]: %s", e.Invariant, e.Reason)
}

func rejectf(invariant string, format string, args ...any) *ValidationError {
	return &ValidationError{Invariant: invariant, Reason: fmt.Sprintf(format, args...)}
}
