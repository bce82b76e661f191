// Package vectorstore implements C4: a department-sharded, read-only
// in-memory approximate-nearest-neighbor index of chunk vectors plus a
// parallel metadata store (spec §4.4).
package vectorstore

import "time"

// Metadata is the ChunkMetadata sidecar record (spec §3).
type Metadata struct {
	SourceDocument string          `json:"source_document"`
	Department     string          `json:"department"`
	ChunkIndex     int             `json:"chunk_index"`
	AllowedRoles   map[string]bool `json:"allowed_roles"`
	ExplicitDeny   map[string]bool `json:"explicit_deny"`
	SecurityLevel  string          `json:"security_level"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Record is a chunk together with its metadata and embedding, the unit the
// index builder (C2+C3) produces and C4 loads (spec §3).
type Record struct {
	ChunkID  string    `json:"chunk_id"`
	Content  string    `json:"content"`
	Metadata Metadata  `json:"metadata"`
	Vector   []float32 `json:"-"`
}

// SearchResult is one hit from Store.Search (spec §4.4).
type SearchResult struct {
	ChunkID    string
	Content    string
	Metadata   Metadata
	Similarity float64
}

// Stats reports index-wide counts (spec §4.4 stats()).
type Stats struct {
	TotalChunks       int
	PerDepartmentCount map[string]int
}
