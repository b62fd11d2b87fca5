package embed

import (
	"context"
	"math"
)

// deterministicEmbedder is the default provider: a reproducible hashing
// transform, not a learned representation. Byte-for-byte identical output for
// identical input and dimension.
type deterministicEmbedder struct {
	dimension int
}

var _ Embedder = (*deterministicEmbedder)(nil)

// NewDeterministic creates the hash-based embedder with the given dimension.
func NewDeterministic(dimension int) (Embedder, error) {
	if dimension <= 0 {
		return nil, ErrInvalidDimension
	}
	return &deterministicEmbedder{dimension: dimension}, nil
}

// EmbedText folds each character code (mod 97, scaled to [0,1)) into bucket
// index mod dimension, then L2-normalizes. Empty input is the only case that
// yields the zero vector (magnitude 0, nothing to normalize).
func (d *deterministicEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, d.dimension)

	i := 0
	for _, r := range text {
		vec[i%d.dimension] += float32(int(r)%97) / 97.0
		i++
	}

	return normalize(vec), nil
}

// EmbedTexts embeds each text independently.
func (d *deterministicEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := d.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimension returns the configured vector length.
func (d *deterministicEmbedder) Dimension() int {
	return d.dimension
}

// normalize scales a vector to unit length in place. A zero vector stays zero.
func normalize(v []float32) []float32 {
	var magnitude float64
	for _, val := range v {
		magnitude += float64(val) * float64(val)
	}
	magnitude = math.Sqrt(magnitude)

	if magnitude == 0 {
		return v
	}

	for i, val := range v {
		v[i] = float32(float64(val) / magnitude)
	}
	return v
}
