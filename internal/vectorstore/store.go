package vectorstore

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

type shard struct {
	chunkIDs []string
	vectors  [][]float64
	records  map[string]*Record
}

// Store is the department-sharded vector index. It is built once (from
// LoadArtifacts or NewStore) and is safe for unlimited concurrent readers
// thereafter; there is no writer path at steady state (spec §4.4, §5).
type Store struct {
	shards map[string]*shard
	lookup map[string]*Record // embedding lookup, chunk_id -> record, spanning all departments
}

// NewStore builds a Store from a flat list of records, partitioning them
// into per-department shards.
func NewStore(records []Record) *Store {
	s := &Store{
		shards: make(map[string]*shard),
		lookup: make(map[string]*Record),
	}
	for i := range records {
		rec := records[i]
		sh, ok := s.shards[rec.Metadata.Department]
		if !ok {
			sh = &shard{records: make(map[string]*Record)}
			s.shards[rec.Metadata.Department] = sh
		}
		sh.chunkIDs = append(sh.chunkIDs, rec.ChunkID)
		sh.vectors = append(sh.vectors, toFloat64(rec.Vector))
		sh.records[rec.ChunkID] = &rec
		s.lookup[rec.ChunkID] = &rec
	}
	return s
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// Search returns up to k approximate nearest neighbors of queryVector within
// department's shard by cosine similarity. If the shard is missing, it
// returns an empty slice and never errors (spec §4.4).
func (s *Store) Search(queryVector []float64, department string, k int) []SearchResult {
	sh, ok := s.shards[department]
	if !ok {
		return nil
	}

	results := make([]SearchResult, 0, len(sh.chunkIDs))
	for i, vec := range sh.vectors {
		sim := cosineSimilarity(queryVector, vec)
		rec := sh.records[sh.chunkIDs[i]]
		results = append(results, SearchResult{
			ChunkID:    rec.ChunkID,
			Content:    rec.Content,
			Metadata:   rec.Metadata,
			Similarity: sim,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

// Lookup returns the vector, content, and metadata for chunkID, or ok=false
// if the chunk is not present in the index (spec §4.4).
func (s *Store) Lookup(chunkID string) (*Record, bool) {
	rec, ok := s.lookup[chunkID]
	return rec, ok
}

// Stats reports total chunk count and per-department counts (spec §4.4).
func (s *Store) Stats() Stats {
	st := Stats{PerDepartmentCount: make(map[string]int)}
	for dept, sh := range s.shards {
		st.PerDepartmentCount[dept] = len(sh.chunkIDs)
		st.TotalChunks += len(sh.chunkIDs)
	}
	return st
}

// cosineSimilarity computes cosine similarity between unit vectors a and b,
// clamped to [-1, 1] (spec §4.4's "similarity ∈ [-1, 1]" guarantee — guards
// against floating-point drift pushing a value just outside the range).
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	sim := floats.Dot(a, b)
	if sim > 1 {
		sim = 1
	}
	if sim < -1 {
		sim = -1
	}
	return sim
}
