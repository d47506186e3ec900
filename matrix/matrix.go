// Package matrix provides column-major point containers for fastmks.
//
// A Matrix holds n points of dimension d; points are addressed by column
// index only and are never copied through the search core. Both a dense
// layout and a CSC sparse layout are provided, exposing the same Vector
// view so kernels evaluate identically against either storage.
package matrix

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySet is returned when a container is constructed with no points.
	ErrEmptySet = errors.New("matrix: point set is empty")

	// ErrZeroDimension is returned when a container is constructed with
	// zero-dimensional points.
	ErrZeroDimension = errors.New("matrix: point dimension is zero")
)

// ErrShapeMismatch indicates that the supplied backing data does not match
// the declared shape.
type ErrShapeMismatch struct {
	Rows int
	Cols int
	Len  int
}

func (e *ErrShapeMismatch) Error() string {
	return fmt.Sprintf("matrix: data length %d does not match shape %dx%d", e.Len, e.Rows, e.Cols)
}

// ErrBadIndex indicates an out-of-range sparse row index.
type ErrBadIndex struct {
	Row  int
	Rows int
}

func (e *ErrBadIndex) Error() string {
	return fmt.Sprintf("matrix: row index %d out of range [0,%d)", e.Row, e.Rows)
}

// Matrix is an immutable-after-build, column-major point container.
// Column j is the j-th point.
type Matrix interface {
	// Rows returns the point dimension.
	Rows() int
	// Cols returns the number of points.
	Cols() int
	// ColView returns a read-only view of point j.
	ColView(j int) Vector
}

// Vector is a read-only view of a single point. Implementations cache the
// self inner product at container build time, so SelfDot is O(1).
type Vector interface {
	// Len returns the nominal dimension.
	Len() int
	// At returns the i-th coordinate.
	At(i int) float64
	// Dot returns the inner product with other. Dense/dense, sparse/sparse
	// and mixed combinations are all supported.
	Dot(other Vector) float64
	// SelfDot returns the cached inner product of the vector with itself.
	SelfDot() float64
}
