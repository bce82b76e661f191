// Package embedding implements C3: a fixed-dimension, deterministic,
// unit-normalized text embedder (spec §4.3).
package embedding

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"gonum.org/v1/gonum/floats"
)

// Embedder maps text to a D-dimensional unit vector using a fixed,
// offline-selected scheme: a deterministic feature-hashing / random
// projection over word tokens. It has no shared mutable state beyond a
// thread-safe memoization cache (spec §4.3, §5), so query and chunk
// embeddings always go through the same scheme and comparisons are
// meaningful.
type Embedder struct {
	dim   int
	cache *lru.Cache // normalized text -> []float64, purely an optimization
}

// New builds an Embedder for dimension dim (384 in the reference) with an
// LRU memoization cache of the given size. cacheSize <= 0 disables caching.
func New(dim, cacheSize int) (*Embedder, error) {
	e := &Embedder{dim: dim}
	if cacheSize > 0 {
		c, err := lru.New(cacheSize)
		if err != nil {
			return nil, err
		}
		e.cache = c
	}
	return e, nil
}

// Dimension returns D, the fixed embedding dimension.
func (e *Embedder) Dimension() int { return e.dim }

// Embed maps text to a unit vector: ‖embed(text)‖₂ = 1 ± 1e-5 (spec §4.3).
// Deterministic for the same input; independent of any other in-flight
// request.
func (e *Embedder) Embed(text string) []float64 {
	if e.cache != nil {
		if v, ok := e.cache.Get(text); ok {
			return v.([]float64)
		}
	}

	vec := make([]float64, e.dim)
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		words = []string{""}
	}

	for _, w := range words {
		idx, sign := hashWord(w, e.dim)
		vec[idx] += sign
	}
	// Mix in character bigrams so near-duplicate words (plurals, simple
	// typos) still land close together in the embedding space.
	for i := 0; i+1 < len(text); i++ {
		bigram := text[i : i+2]
		idx, sign := hashWord(bigram, e.dim)
		vec[idx] += sign * 0.25
	}

	norm := floats.Norm(vec, 2)
	if norm > 0 {
		floats.Scale(1.0/norm, vec)
	} else {
		vec[0] = 1.0
	}

	if e.cache != nil {
		e.cache.Add(text, vec)
	}
	return vec
}

// hashWord derives a deterministic (dimension index, sign) pair for a token,
// the feature-hashing trick used to turn an unbounded vocabulary into a
// fixed-width vector.
func hashWord(word string, dim int) (int, float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(word))
	sum := h.Sum64()

	idx := int(sum % uint64(dim))

	var signBytes [8]byte
	binary.BigEndian.PutUint64(signBytes[:], sum)
	sign := 1.0
	if signBytes[0]&1 == 1 {
		sign = -1.0
	}
	return idx, sign
}

// Norm reports the L2 norm of v, exposed for property tests (spec §8
// embedding unit-norm law).
func Norm(v []float64) float64 {
	return floats.Norm(v, 2)
}

// ApproxEqual reports whether a and b differ by no more than eps, used to
// check the 1±1e-5 unit-norm tolerance.
func ApproxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}
