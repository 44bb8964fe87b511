package hrr

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestBindUnbindRecovery(t *testing.T) {
	// Recovery quality is probabilistic over random vectors, so fix the
	// seed and check several pairs.
	rng := rand.New(rand.NewSource(42))
	const d = 256

	for trial := 0; trial < 10; trial++ {
		a := RandomUnitVector(rng, d)
		b := RandomUnitVector(rng, d)

		bound, err := Bind(a, b)
		if err != nil {
			t.Fatalf("Bind failed: %v", err)
		}
		recovered, err := Unbind(bound, a)
		if err != nil {
			t.Fatalf("Unbind failed: %v", err)
		}

		sim, err := Cosine(recovered, b)
		if err != nil {
			t.Fatalf("Cosine failed: %v", err)
		}
		if sim < 0.6 {
			t.Errorf("trial %d: recovered similarity %.4f, want >= 0.6", trial, sim)
		}

		// The recovered vector should resemble b far more than the
		// unrelated cue a.
		simA, _ := Cosine(recovered, a)
		if simA >= sim {
			t.Errorf("trial %d: recovery closer to cue (%.4f) than target (%.4f)", trial, simA, sim)
		}
	}
}

func TestBindDimensionMismatch(t *testing.T) {
	_, err := Bind(make([]float32, 8), make([]float32, 16))
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	_, err = Unbind(make([]float32, 8), make([]float32, 16))
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	_, err = Cosine(make([]float32, 8), make([]float32, 16))
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestBindDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	a := RandomUnitVector(rng, 64)
	b := RandomUnitVector(rng, 64)

	first, err := Bind(a, b)
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	second, err := Bind(a, b)
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("Bind not deterministic at index %d: %v != %v", i, first[i], second[i])
		}
	}
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4, 0}
	out, degenerate := Normalize(v)
	if degenerate {
		t.Fatal("non-zero vector reported degenerate")
	}
	var norm float64
	for _, x := range out {
		norm += float64(x) * float64(x)
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-5 {
		t.Errorf("normalized norm = %.6f, want 1", math.Sqrt(norm))
	}
	// Input must not be mutated.
	if v[0] != 3 || v[1] != 4 {
		t.Error("Normalize mutated its input")
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	out, degenerate := Normalize(make([]float32, 8))
	if !degenerate {
		t.Fatal("zero vector not reported degenerate")
	}
	for i, x := range out {
		if x != 0 {
			t.Fatalf("degenerate output changed at %d: %v", i, x)
		}
	}
}

func TestCosineBounds(t *testing.T) {
	a := []float32{1, 0}
	if sim, _ := Cosine(a, a); math.Abs(sim-1) > 1e-9 {
		t.Errorf("self similarity = %v, want 1", sim)
	}
	if sim, _ := Cosine(a, []float32{-1, 0}); math.Abs(sim+1) > 1e-9 {
		t.Errorf("opposite similarity = %v, want -1", sim)
	}
	if sim, _ := Cosine(a, []float32{0, 1}); sim != 0 {
		t.Errorf("orthogonal similarity = %v, want 0", sim)
	}
	// Zero norm yields 0, never NaN.
	if sim, _ := Cosine(a, make([]float32, 2)); sim != 0 {
		t.Errorf("zero-norm similarity = %v, want 0", sim)
	}
}

func TestProjectDeterministicUnitNorm(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	v := RandomUnitVector(rng, 128)

	p1 := Project(v, 99)
	p2 := Project(v, 99)
	for i := range p1 {
		if p1[i] != p2[i] {
			t.Fatalf("Project not deterministic at index %d", i)
		}
	}

	var norm float64
	for _, x := range p1 {
		norm += float64(x) * float64(x)
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-5 {
		t.Errorf("projected norm = %.6f, want 1", math.Sqrt(norm))
	}

	// Different seeds must decorrelate.
	p3 := Project(v, 100)
	sim, _ := Cosine(p1, p3)
	if sim > 0.5 {
		t.Errorf("different seeds too similar: %.4f", sim)
	}
}
