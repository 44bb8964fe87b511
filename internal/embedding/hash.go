package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashEngine is a deterministic offline embedder using feature hashing:
// each token maps to a bucket and sign derived from its FNV-64 hash, the
// token counts accumulate, and the result is unit-normalized. Texts that
// share vocabulary land near each other, which satisfies the dimensionality
// contract for conformance testing without any external service.
type HashEngine struct {
	dims int
}

// NewHashEngine creates a hash embedder with the given dimension.
func NewHashEngine(dimension int) *HashEngine {
	return &HashEngine{dims: dimension}
}

// Embed generates a deterministic embedding for text.
func (e *HashEngine) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float64, e.dims)
	for _, tok := range tokenize(text) {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()
		bucket := int(sum % uint64(e.dims))
		sign := 1.0
		if (sum>>32)&1 == 1 {
			sign = -1.0
		}
		vec[bucket] += sign
	}

	var norm float64
	for _, x := range vec {
		norm += x * x
	}
	out := make([]float32, e.dims)
	if norm == 0 {
		return out, nil
	}
	inv := 1 / math.Sqrt(norm)
	for i, x := range vec {
		out[i] = float32(x * inv)
	}
	return out, nil
}

// EmbedBatch generates embeddings for multiple texts.
func (e *HashEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the embedding dimensionality.
func (e *HashEngine) Dimensions() int { return e.dims }

// Name returns the engine name.
func (e *HashEngine) Name() string { return "hash" }

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
