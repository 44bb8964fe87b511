// Package hrr implements Holographic Reduced Representation vector algebra:
// circular convolution for binding, circular correlation for unbinding, and
// the normalization/similarity helpers the retrieval layer builds on.
//
// All operations are pure and deterministic. Mismatched dimensions are a
// fatal input error, never silently padded or truncated.
package hrr

import (
	"fmt"
	"math"
	"math/rand"
)

// ErrDimensionMismatch is wrapped by every operation that receives vectors
// of unequal length.
var ErrDimensionMismatch = fmt.Errorf("hrr: vector dimension mismatch")

// Bind combines two vectors by circular convolution:
//
//	c[k] = sum_i a[i] * b[(k-i) mod d]
//
// The result distributes information about both inputs across every
// component, which is what makes the encoding holographic.
func Bind(a, b []float32) ([]float32, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}
	d := len(a)
	out := make([]float32, d)
	for k := 0; k < d; k++ {
		var sum float64
		for i := 0; i < d; i++ {
			j := k - i
			if j < 0 {
				j += d
			}
			sum += float64(a[i]) * float64(b[j])
		}
		out[k] = float32(sum)
	}
	return out, nil
}

// Unbind recovers an approximation of b from a binding c = Bind(a, b) via
// circular correlation, which is convolution with the index-reversed cue:
//
//	b'[k] = sum_i c[i] * a[(i-k) mod d]
//
// The recovery is approximate; similarity to the original improves with
// dimension.
func Unbind(c, a []float32) ([]float32, error) {
	if len(c) != len(a) {
		return nil, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(c), len(a))
	}
	d := len(c)
	out := make([]float32, d)
	for k := 0; k < d; k++ {
		var sum float64
		for i := 0; i < d; i++ {
			j := i - k
			if j < 0 {
				j += d
			}
			sum += float64(c[i]) * float64(a[j])
		}
		out[k] = float32(sum)
	}
	return out, nil
}

// Normalize scales v to unit norm. A zero-norm vector cannot be normalized;
// it is returned unchanged (copied) with degenerate=true rather than
// dividing by zero.
func Normalize(v []float32) (out []float32, degenerate bool) {
	out = append([]float32(nil), v...)
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return out, true
	}
	inv := 1 / math.Sqrt(norm)
	for i := range out {
		out[i] = float32(float64(out[i]) * inv)
	}
	return out, false
}

// Cosine returns the cosine similarity of a and b in [-1, 1]. It is defined
// as 0 when either vector has zero norm.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	// Guard against float drift past the mathematical range.
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}
	return sim, nil
}

// CosineFloat64 is Cosine for float64 tuples (emotion vectors).
func CosineFloat64(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}
	return sim, nil
}

// RandomUnitVector draws a vector of i.i.d. gaussian components scaled to
// unit norm. Dedicated rng keeps callers deterministic under a fixed seed.
func RandomUnitVector(rng *rand.Rand, d int) []float32 {
	v := make([]float32, d)
	for i := range v {
		v[i] = float32(rng.NormFloat64())
	}
	out, degenerate := Normalize(v)
	if degenerate {
		// Astronomically unlikely; retry rather than return a zero vector.
		return RandomUnitVector(rng, d)
	}
	return out
}

// Project derives a deterministic companion shape for a semantic vector:
// a seeded index permutation with sign flips, unit-normalized. Binding space
// stays decorrelated from raw embedding space while remaining a pure
// function of the input.
func Project(v []float32, seed int64) []float32 {
	d := len(v)
	if d == 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(d)
	out := make([]float32, d)
	for i, p := range perm {
		x := v[p]
		if rng.Intn(2) == 0 {
			x = -x
		}
		out[i] = x
	}
	normalized, _ := Normalize(out)
	return normalized
}
