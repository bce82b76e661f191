package vectorstore

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

func parseCreatedAt(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

const (
	chunksFileName     = "chunks.json"
	embeddingsFileName = "embeddings.bin"
)

// artifactRecord is the on-disk JSON shape for one chunk (spec §6.3: "chunks
// + metadata file (JSON array, one record per chunk)").
type artifactRecord struct {
	ChunkID        string          `json:"chunk_id"`
	Content        string          `json:"content"`
	SourceDocument string          `json:"source_document"`
	Department     string          `json:"department"`
	ChunkIndex     int             `json:"chunk_index"`
	AllowedRoles   map[string]bool `json:"allowed_roles"`
	ExplicitDeny   map[string]bool `json:"explicit_deny"`
	SecurityLevel  string          `json:"security_level"`
	CreatedAt      string          `json:"created_at"`
}

// WriteArtifacts persists records as the two files described in spec §6.3:
// a JSON chunks+metadata file and a row-major float32 embeddings matrix, rows
// ordered identically to the chunks file. Written to dir, which the caller
// is expected to have prepared as a fresh directory for an atomic rebuild
// swap (spec §6.3 rebuild path).
func WriteArtifacts(dir string, records []Record) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("vectorstore: create artifact dir: %w", err)
	}

	dim := 0
	if len(records) > 0 {
		dim = len(records[0].Vector)
	}

	artifacts := make([]artifactRecord, len(records))
	embeddings := make([]byte, 0, len(records)*dim*4)
	buf := make([]byte, 4)

	for i, rec := range records {
		artifacts[i] = artifactRecord{
			ChunkID:        rec.ChunkID,
			Content:        rec.Content,
			SourceDocument: rec.Metadata.SourceDocument,
			Department:     rec.Metadata.Department,
			ChunkIndex:     rec.Metadata.ChunkIndex,
			AllowedRoles:   rec.Metadata.AllowedRoles,
			ExplicitDeny:   rec.Metadata.ExplicitDeny,
			SecurityLevel:  rec.Metadata.SecurityLevel,
			CreatedAt:      rec.Metadata.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		for _, f := range rec.Vector {
			binary.BigEndian.PutUint32(buf, math.Float32bits(f))
			embeddings = append(embeddings, buf...)
		}
	}

	chunksJSON, err := json.Marshal(artifacts)
	if err != nil {
		return fmt.Errorf("vectorstore: marshal chunks: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, chunksFileName), chunksJSON, 0o644); err != nil {
		return fmt.Errorf("vectorstore: write chunks file: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, embeddingsFileName), embeddings, 0o644); err != nil {
		return fmt.Errorf("vectorstore: write embeddings file: %w", err)
	}
	return nil
}

// LoadArtifacts loads a Store from the two artifact files written by
// WriteArtifacts, the operation that runs once at service start (spec §6.3,
// §5 "read-only after startup").
func LoadArtifacts(dir string) (*Store, error) {
	chunksRaw, err := os.ReadFile(filepath.Join(dir, chunksFileName))
	if err != nil {
		return nil, fmt.Errorf("vectorstore: read chunks file: %w", err)
	}
	var artifacts []artifactRecord
	if err := json.Unmarshal(chunksRaw, &artifacts); err != nil {
		return nil, fmt.Errorf("vectorstore: unmarshal chunks file: %w", err)
	}

	embeddingsRaw, err := os.ReadFile(filepath.Join(dir, embeddingsFileName))
	if err != nil {
		return nil, fmt.Errorf("vectorstore: read embeddings file: %w", err)
	}
	if len(artifacts) == 0 {
		return NewStore(nil), nil
	}
	if len(embeddingsRaw)%4 != 0 {
		return nil, fmt.Errorf("vectorstore: embeddings file length %d not a multiple of 4 bytes", len(embeddingsRaw))
	}
	totalFloats := len(embeddingsRaw) / 4
	dim := totalFloats / len(artifacts)
	if dim*len(artifacts) != totalFloats {
		return nil, fmt.Errorf("vectorstore: embeddings file has %d floats, not divisible by %d chunks", totalFloats, len(artifacts))
	}

	records := make([]Record, len(artifacts))
	for i, a := range artifacts {
		vec := make([]float32, dim)
		for j := 0; j < dim; j++ {
			offset := (i*dim + j) * 4
			vec[j] = math.Float32frombits(binary.BigEndian.Uint32(embeddingsRaw[offset : offset+4]))
		}
		createdAt, _ := parseCreatedAt(a.CreatedAt)
		records[i] = Record{
			ChunkID: a.ChunkID,
			Content: a.Content,
			Metadata: Metadata{
				SourceDocument: a.SourceDocument,
				Department:     a.Department,
				ChunkIndex:     a.ChunkIndex,
				AllowedRoles:   a.AllowedRoles,
				ExplicitDeny:   a.ExplicitDeny,
				SecurityLevel:  a.SecurityLevel,
				CreatedAt:      createdAt,
			},
			Vector: vec,
		}
	}
	return NewStore(records), nil
}
