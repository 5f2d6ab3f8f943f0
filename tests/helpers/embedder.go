package helpers

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// EmbedDim is the dimension of FakeEmbedder vectors.
const EmbedDim = 128

// FakeEmbedder is a deterministic bag-of-words embedder. Tokens are hashed
// into buckets and the count vector is L2-normalized, so texts sharing words
// score high under cosine similarity and disjoint texts score zero. Identical
// text always yields the identical vector.
type FakeEmbedder struct {
	// Fail forces Embed to return an error.
	Fail bool
}

func (f *FakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.Fail {
		return nil, fmt.Errorf("embedding failed")
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}

	vec := make([]float32, EmbedDim)
	for _, token := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%EmbedDim]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

func (f *FakeEmbedder) Dimension() int { return EmbedDim }

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}
