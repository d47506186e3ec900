package fastmks

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrEmptySet is returned when a reference or query set has no points.
	ErrEmptySet = errors.New("point set is empty")

	// ErrNoCandidates is returned when a filter leaves no candidate
	// reference points.
	ErrNoCandidates = errors.New("no candidate references available")
)

// ErrKTooLarge indicates that k exceeds the number of available reference
// points. It is only returned when strict-k mode is configured; the default
// behavior truncates k instead.
type ErrKTooLarge struct {
	K         int
	Available int
}

func (e *ErrKTooLarge) Error() string {
	return fmt.Sprintf("k %d exceeds available references %d", e.K, e.Available)
}

// ErrDimensionMismatch indicates a query/reference dimensionality mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}
