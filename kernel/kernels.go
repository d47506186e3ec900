package kernel

import (
	"math"

	"github.com/hupe1980/fastmks/matrix"
)

// Linear is the standard inner product kernel K(a, b) = <a, b>.
type Linear struct{}

// Evaluate implements Kernel.
func (Linear) Evaluate(a, b matrix.Vector) float64 { return a.Dot(b) }

// Polynomial is the kernel K(a, b) = (<a, b> + offset)^degree.
type Polynomial struct {
	Degree float64
	Offset float64
}

// NewPolynomial creates a Polynomial kernel with the given degree and a
// zero offset.
func NewPolynomial(degree float64) Polynomial {
	return Polynomial{Degree: degree}
}

// Evaluate implements Kernel.
func (p Polynomial) Evaluate(a, b matrix.Vector) float64 {
	return math.Pow(a.Dot(b)+p.Offset, p.Degree)
}

// Cosine is the kernel K(a, b) = <a, b> / (|a| |b|).
type Cosine struct{}

// Evaluate implements Kernel.
func (Cosine) Evaluate(a, b matrix.Vector) float64 {
	denom := math.Sqrt(a.SelfDot() * b.SelfDot())
	if denom == 0 {
		return 0
	}
	return a.Dot(b) / denom
}

// Normalized implements Normalizer.
func (Cosine) Normalized() bool { return true }

// Gaussian is the kernel K(a, b) = exp(-|a-b|^2 / (2 bw^2)).
type Gaussian struct {
	Bandwidth float64
}

// Evaluate implements Kernel.
func (g Gaussian) Evaluate(a, b matrix.Vector) float64 {
	return math.Exp(-squaredDistance(a, b) / (2 * g.Bandwidth * g.Bandwidth))
}

// Normalized implements Normalizer.
func (Gaussian) Normalized() bool { return true }

// Epanechnikov is the kernel K(a, b) = max(0, 1 - |a-b|^2 / bw^2).
type Epanechnikov struct {
	Bandwidth float64
}

// Evaluate implements Kernel.
func (e Epanechnikov) Evaluate(a, b matrix.Vector) float64 {
	v := 1 - squaredDistance(a, b)/(e.Bandwidth*e.Bandwidth)
	if v < 0 {
		return 0
	}
	return v
}

// Normalized implements Normalizer.
func (Epanechnikov) Normalized() bool { return true }

// Triangular is the kernel K(a, b) = max(0, 1 - |a-b| / bw).
type Triangular struct {
	Bandwidth float64
}

// Evaluate implements Kernel.
func (t Triangular) Evaluate(a, b matrix.Vector) float64 {
	v := 1 - math.Sqrt(squaredDistance(a, b))/t.Bandwidth
	if v < 0 {
		return 0
	}
	return v
}

// Normalized implements Normalizer.
func (Triangular) Normalized() bool { return true }

// HyperbolicTangent is the kernel K(a, b) = tanh(scale * <a, b> + offset).
//
// This kernel is not positive semidefinite for all parameter choices; the
// induced distance and hence the search bounds are only guaranteed sound
// for parameters where it is.
type HyperbolicTangent struct {
	Scale  float64
	Offset float64
}

// Evaluate implements Kernel.
func (h HyperbolicTangent) Evaluate(a, b matrix.Vector) float64 {
	return math.Tanh(h.Scale*a.Dot(b) + h.Offset)
}
