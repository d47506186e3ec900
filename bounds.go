package fastmks

import "math"

// The pruning bounds below are the single correctness-critical piece of
// the search: a bound that under-estimates the best achievable kernel
// value causes silently wrong results. Every bound here over-estimates
// (soundness over tightness).

// safeSqrt clamps small negative radicands from floating-point rounding.
func safeSqrt(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}

// pointNodeUpper bounds K(p, x) over all x in a subtree, given
// kv = K(p, rep), the subtree's furthest-descendant bound b, and
// norm = sqrt(K(p, p)). Writing the feature vector of x as the feature
// vector of rep plus a vector of length at most b, Cauchy-Schwarz gives
//
//	K(p, x) <= K(p, rep) + b * |p|
//
// For normalized kernels a tighter spherical-cap bound applies.
func (s *searchContext[K]) pointNodeUpper(kv, b, norm float64) float64 {
	if s.normalized {
		return normalizedUpper(kv, b)
	}
	return kv + b*norm
}

// nodePairUpper bounds K(q, r) over all q in the query subtree and r in
// the reference subtree. Expanding both feature vectors around their
// representatives:
//
//	K(q, r) <= K(qrep, rrep) + bq*|rrep| + br*|qrep| + bq*br
//
// For normalized kernels no value exceeds 1, so the bound is capped there.
func (s *searchContext[K]) nodePairUpper(kv, bq, br, normQ, normR float64) float64 {
	ub := kv + bq*normR + br*normQ + bq*br
	if s.normalized && ub > 1 {
		return 1
	}
	return ub
}

// normalizedUpper is the spherical-cap bound for kernels with
// K(x, x) == 1. All feature vectors lie on the unit sphere, where the
// induced metric and the angle are related by d^2 = 2 - 2 cos(theta). The
// subtree occupies a cap of half-angle acos(1 - b^2/2) around the
// representative, and the maximum kernel value against a point at angle
// theta from the representative is the cosine of the residual angle.
// Whenever the cap could contain the query direction the bound falls back
// to the maximum value 1, so it is never an under-estimate.
func normalizedUpper(kv, b float64) float64 {
	if b*b >= 4 {
		return 1 // cap spans the whole sphere
	}
	cosQ := math.Min(1, math.Max(-1, kv))
	capCos := 1 - b*b/2
	if cosQ >= capCos {
		return 1 // query direction inside the cap
	}
	return math.Cos(math.Acos(cosQ) - math.Acos(capCos))
}
