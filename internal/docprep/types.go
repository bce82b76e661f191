package docprep

import "time"

// Chunk is a token-bounded text fragment derived from a source document
// (spec §3 Chunk + ChunkMetadata, merged into one record for convenience —
// C4 still stores/exposes them as described in §3's 1:1 invariant).
type Chunk struct {
	ChunkID        string
	Content        string
	TokenCount     int
	SourceDocument string
	Department     string
	ChunkIndex     int
	AllowedRoles   map[string]bool
	ExplicitDeny   map[string]bool
	SecurityLevel  string
	CreatedAt      time.Time
}

// RoleDepartmentMap maps a canonical role name to the set of departments it
// may read, configured alongside RBACConfig (spec §4.2 "from a role<->department
// mapping (configuration)").
type RoleDepartmentMap map[string]map[string]bool
