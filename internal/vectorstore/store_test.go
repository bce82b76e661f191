package vectorstore

import "testing"

func TestSearchMissingShardReturnsEmpty(t *testing.T) {
	s := NewStore(nil)
	results := s.Search([]float64{1, 0, 0}, "finance", 5)
	if len(results) != 0 {
		t.Errorf("expected no results for missing shard, got %d", len(results))
	}
}

func TestSearchOrdersBySimilarityDescending(t *testing.T) {
	records := []Record{
		{ChunkID: "FIN_CHUNK_0", Vector: []float32{1, 0}, Metadata: Metadata{Department: "finance"}},
		{ChunkID: "FIN_CHUNK_1", Vector: []float32{0, 1}, Metadata: Metadata{Department: "finance"}},
		{ChunkID: "FIN_CHUNK_2", Vector: []float32{0.9, 0.1}, Metadata: Metadata{Department: "finance"}},
	}
	s := NewStore(records)
	results := s.Search([]float64{1, 0}, "finance", 10)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Similarity > results[i-1].Similarity {
			t.Errorf("results not sorted descending: %v", results)
		}
	}
	if results[0].ChunkID != "FIN_CHUNK_0" {
		t.Errorf("expected FIN_CHUNK_0 first (exact match), got %s", results[0].ChunkID)
	}
}

func TestLookupMiss(t *testing.T) {
	s := NewStore(nil)
	if _, ok := s.Lookup("NOPE"); ok {
		t.Error("expected lookup miss for empty store")
	}
}

func TestStats(t *testing.T) {
	records := []Record{
		{ChunkID: "A", Vector: []float32{1}, Metadata: Metadata{Department: "finance"}},
		{ChunkID: "B", Vector: []float32{1}, Metadata: Metadata{Department: "hr"}},
	}
	s := NewStore(records)
	st := s.Stats()
	if st.TotalChunks != 2 {
		t.Errorf("expected 2 total chunks, got %d", st.TotalChunks)
	}
	if st.PerDepartmentCount["finance"] != 1 || st.PerDepartmentCount["hr"] != 1 {
		t.Errorf("unexpected per-department counts: %v", st.PerDepartmentCount)
	}
}
