package rerank

import "testing"

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func fakeLookup(vectors map[string][]float64) Lookup {
	return func(chunkID string) ([]float64, bool) {
		v, ok := vectors[chunkID]
		return v, ok
	}
}

func TestRerankFloor(t *testing.T) {
	vectors := map[string][]float64{
		"A": {1, 0},
		"B": {0.9, 0.1},
		"C": {0, 1},
	}
	candidates := []Candidate{{ChunkID: "A"}, {ChunkID: "B"}, {ChunkID: "C"}}
	results, _ := Rerank([]float64{1, 0}, candidates, fakeLookup(vectors), dot, 0.5, 0)

	for _, r := range results {
		if r.Similarity < 0.5 {
			t.Errorf("result %s has similarity %f below floor 0.5", r.ChunkID, r.Similarity)
		}
	}
}

func TestRerankOrderAndUniqueness(t *testing.T) {
	vectors := map[string][]float64{
		"A": {1, 0},
		"B": {0.9, 0.1},
		"C": {0.5, 0.5},
	}
	candidates := []Candidate{
		{ChunkID: "C"}, {ChunkID: "A"}, {ChunkID: "B"}, {ChunkID: "A"}, // A duplicated
	}
	results, _ := Rerank([]float64{1, 0}, candidates, fakeLookup(vectors), dot, 0.0, 0)

	seen := map[string]bool{}
	for i, r := range results {
		if seen[r.ChunkID] {
			t.Errorf("duplicate chunk_id %s in rerank output", r.ChunkID)
		}
		seen[r.ChunkID] = true
		if i > 0 && results[i].Similarity > results[i-1].Similarity {
			t.Errorf("results not sorted descending at index %d: %v", i, results)
		}
	}
}

func TestRerankDropsMissingLookup(t *testing.T) {
	vectors := map[string][]float64{"A": {1, 0}}
	candidates := []Candidate{{ChunkID: "A"}, {ChunkID: "MISSING"}}
	results, dropped := Rerank([]float64{1, 0}, candidates, fakeLookup(vectors), dot, 0.0, 0)
	if dropped != 1 {
		t.Errorf("expected 1 dropped candidate, got %d", dropped)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result, got %d", len(results))
	}
}
