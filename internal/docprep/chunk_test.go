package docprep

import "testing"

func TestChunkIndexesAreDistinctPerDocument(t *testing.T) {
	roles := RoleDepartmentMap{
		"finance_analyst": {"finance": true},
	}
	chunker := NewChunker(50, 5, "ordinal", roles)

	text := ""
	for i := 0; i < 20; i++ {
		text += "This paragraph discusses quarterly revenue performance in depth and detail for the finance department.\n\n"
	}

	ordinal := 0
	chunks := chunker.Chunk("finance_report.txt", "finance", text, &ordinal)

	seen := map[int]bool{}
	for _, c := range chunks {
		if seen[c.ChunkIndex] {
			t.Errorf("duplicate chunk_index %d for document", c.ChunkIndex)
		}
		seen[c.ChunkIndex] = true
		if !c.AllowedRoles["finance_analyst"] {
			t.Errorf("expected finance_analyst in allowed_roles for finance chunk, got %v", c.AllowedRoles)
		}
	}
}

func TestGeneralDepartmentHasEmptyAllowedRoles(t *testing.T) {
	roles := RoleDepartmentMap{"intern": {"general": true}}
	chunker := NewChunker(300, 50, "ordinal", roles)
	ordinal := 0
	chunks := chunker.Chunk("handbook.txt", "general", "Welcome to the company handbook.", &ordinal)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if len(chunks[0].AllowedRoles) != 0 {
		t.Errorf("general department chunk should have empty allowed_roles, got %v", chunks[0].AllowedRoles)
	}
}

func TestChunkIDSchemeContentHashStable(t *testing.T) {
	roles := RoleDepartmentMap{}
	chunker := NewChunker(300, 0, "content_hash", roles)
	o1, o2 := 0, 0
	c1 := chunker.Chunk("a.txt", "general", "identical content here", &o1)
	c2 := chunker.Chunk("b.txt", "general", "identical content here", &o2)
	if c1[0].ChunkID != c2[0].ChunkID {
		t.Errorf("content_hash scheme should produce identical ids for identical content, got %q and %q", c1[0].ChunkID, c2[0].ChunkID)
	}
}
