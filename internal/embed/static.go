package embed

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// StaticEmbedder is a deterministic, offline embedder used by tests and by
// builds that run without a model endpoint. Vectors are derived from token
// hashes, so identical text always maps to the identical vector.
type StaticEmbedder struct {
	dims int
}

// NewStaticEmbedder creates a static embedder with the given dimension.
func NewStaticEmbedder(dims int) *StaticEmbedder {
	if dims <= 0 {
		dims = 64
	}
	return &StaticEmbedder{dims: dims}
}

// Verify interface implementation at compile time.
var _ Embedder = (*StaticEmbedder)(nil)

// Embed returns a deterministic unit vector for text.
func (s *StaticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, s.dims)
	sum := sha256.Sum256([]byte(text))
	// Expand the digest into dims pseudo-random components.
	seed := binary.BigEndian.Uint64(sum[:8])
	state := seed
	for i := range vec {
		state = state*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(state>>32))/float32(math.MaxInt32) - 1
	}
	normalize(vec)
	return vec, nil
}

// EmbedBatch embeds each text independently.
func (s *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string, _ int) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the vector dimension.
func (s *StaticEmbedder) Dimensions() int {
	return s.dims
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
