package services

import (
	"errors"
	"fmt"
)

// Dataset service errors
var (
	// ErrDatasetNotReady matches every NotReadyError.
	ErrDatasetNotReady = errors.New("dataset not ready")

	// ErrInvalidQuery wraps a rejected sort key or direction.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrSourceStatus is returned when an HTTP source answers non-2xx.
	ErrSourceStatus = errors.New("unexpected source status")

	// ErrNoSummaries is returned when a source directory holds no daily
	// summary files.
	ErrNoSummaries = errors.New("no summary files found")

	// ErrHeaderMismatch is returned when daily summaries in one directory
	// do not share a header.
	ErrHeaderMismatch = errors.New("summary header differs from the first file")
)

// NotReadyError reports that queries cannot be answered yet. Cause holds
// the last load error when State is StateFailed.
type NotReadyError struct {
	State State
	Cause error
}

func (e *NotReadyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("dataset %s: %v", e.State, e.Cause)
	}
	return fmt.Sprintf("dataset %s", e.State)
}

// Is reports whether target is ErrDatasetNotReady.
func (e *NotReadyError) Is(target error) bool {
	return target == ErrDatasetNotReady
}

func (e *NotReadyError) Unwrap() error {
	return e.Cause
}
