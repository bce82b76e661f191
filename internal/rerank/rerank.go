// Package rerank implements C6: pure geometric re-scoring, floor, dedup,
// and stable sort over a candidate pool (spec §4.6). No learned model —
// spec §1 Non-goals excludes one.
package rerank

import "sort"

// Lookup resolves a chunk_id to its stored vector, used to recompute
// similarity against the query vector (spec §4.6 step 1). Implementations
// are expected to be backed by vectorstore.Store.Lookup.
type Lookup func(chunkID string) (vector []float64, ok bool)

// Candidate is one pool entry prior to re-ranking: it may be a duplicate of
// another candidate (same chunk_id from a different shard/variant search)
// and carries no similarity of its own — Rerank computes one via Lookup.
type Candidate struct {
	ChunkID  string
	Content  string
	Metadata map[string]interface{}
}

// Result is one re-ranked, deduplicated output item.
type Result struct {
	ChunkID    string
	Content    string
	Metadata   map[string]interface{}
	Similarity float64
}

// CosineFunc computes cosine similarity between two vectors of equal length.
type CosineFunc func(a, b []float64) float64

// Rerank implements spec §4.6's five steps: re-score via lookup, floor,
// exact-dedup keeping the first occurrence, stable descending sort, and an
// optional per-source_document diversity cap.
//
// droppedNoLookup counts candidates dropped because lookup missed (spec
// §4.6 step 1: "if lookup misses, drop the candidate (and emit a warning
// event)") — the caller logs/emits the warning; this function just reports
// the count so callers don't have to re-derive it.
func Rerank(query []float64, candidates []Candidate, lookup Lookup, cosine CosineFunc, floor float64, diversityMaxPerDoc int) (results []Result, droppedNoLookup int) {
	seen := make(map[string]bool, len(candidates))
	scored := make([]Result, 0, len(candidates))

	for _, c := range candidates {
		if seen[c.ChunkID] {
			continue // exact-dedup: keep first occurrence
		}

		vec, ok := lookup(c.ChunkID)
		if !ok {
			droppedNoLookup++
			continue
		}
		seen[c.ChunkID] = true

		sim := cosine(query, vec)
		if sim < floor {
			continue
		}

		scored = append(scored, Result{
			ChunkID:    c.ChunkID,
			Content:    c.Content,
			Metadata:   c.Metadata,
			Similarity: sim,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if diversityMaxPerDoc > 0 {
		scored = applyDiversity(scored, diversityMaxPerDoc)
	}

	return scored, droppedNoLookup
}

// applyDiversity caps the number of results per source_document metadata
// field (spec §4.6 step 5, "configurable; default off in the base contract").
func applyDiversity(results []Result, maxPerDoc int) []Result {
	counts := make(map[string]int)
	out := make([]Result, 0, len(results))
	for _, r := range results {
		doc, _ := r.Metadata["source_document"].(string)
		if counts[doc] >= maxPerDoc {
			continue
		}
		counts[doc]++
		out = append(out, r)
	}
	return out
}
