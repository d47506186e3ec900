// Package kernel defines the similarity functions used by fastmks and the
// pseudo-metric they induce.
//
// A Kernel is a positive-semidefinite similarity function; larger values
// mean more similar. Every positive-semidefinite kernel induces a true
// metric via the polarization identity
//
//	d(a, b) = sqrt(K(a,a) + K(b,b) - 2*K(a,b))
//
// which is what lets a metric search tree index points for a kernel
// maximization objective. The induced metric is exposed as a pure function
// composed with the kernel rather than baked into any tree type, so
// alternate kernels plug in without touching tree code.
package kernel

import (
	"math"

	"github.com/hupe1980/fastmks/matrix"
)

// Kernel is a symmetric, positive-semidefinite similarity function.
// Implementations must evaluate identically (up to floating-point rounding)
// for dense and sparse vector views.
type Kernel interface {
	// Evaluate returns the kernel value K(a, b).
	Evaluate(a, b matrix.Vector) float64
}

// Normalizer is an optional interface reporting that K(x, x) == 1 for all x.
// Normalized kernels admit a tighter search bound than the generic
// Cauchy-Schwarz one.
type Normalizer interface {
	Normalized() bool
}

// IsNormalized reports whether k declares itself normalized.
func IsNormalized(k Kernel) bool {
	n, ok := k.(Normalizer)
	return ok && n.Normalized()
}

// InducedDistance returns the metric distance between a and b induced by k.
// Negative radicands from floating-point rounding are clamped to zero.
func InducedDistance(k Kernel, a, b matrix.Vector) float64 {
	d := k.Evaluate(a, a) + k.Evaluate(b, b) - 2*k.Evaluate(a, b)
	if d <= 0 {
		return 0
	}
	return math.Sqrt(d)
}

// Metric adapts a kernel to a plain distance function over a point
// container, suitable for building a metric tree.
type Metric struct {
	kernel Kernel
	points matrix.Matrix
}

// NewMetric creates a Metric over points under k.
func NewMetric(k Kernel, points matrix.Matrix) *Metric {
	return &Metric{kernel: k, points: points}
}

// Distance returns the induced distance between points i and j.
func (m *Metric) Distance(i, j int) float64 {
	return InducedDistance(m.kernel, m.points.ColView(i), m.points.ColView(j))
}

// squaredDistance is the squared Euclidean distance in input space,
// used by the distance-based kernels. It relies on the cached self
// products, so it is cheap for both dense and sparse views.
func squaredDistance(a, b matrix.Vector) float64 {
	d := a.SelfDot() + b.SelfDot() - 2*a.Dot(b)
	if d < 0 {
		return 0
	}
	return d
}
