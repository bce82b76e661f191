package vectorstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// EnsureSchema creates the durable record-of-truth table backing the index
// artifacts. The runtime query path never reads from this table (spec §6.3:
// the service loads the binary artifact into memory at startup) — it exists
// so the offline index builder has a queryable staging/audit copy of what
// was embedded, grounded on the teacher's rag_documents upsert pattern.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS chunk_records (
			chunk_id TEXT PRIMARY KEY,
			source_document TEXT NOT NULL,
			department TEXT NOT NULL,
			chunk_index INT NOT NULL,
			content TEXT NOT NULL,
			allowed_roles TEXT[] NOT NULL DEFAULT '{}',
			explicit_deny TEXT[] NOT NULL DEFAULT '{}',
			security_level TEXT NOT NULL DEFAULT 'standard',
			embedding vector NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("vectorstore: ensure schema: %w", err)
	}
	return nil
}

// PersistRecords upserts every record into chunk_records; the offline index
// builder calls it after writing and swapping in the flat artifact files
// that the runtime actually loads.
func PersistRecords(ctx context.Context, db *sql.DB, records []Record) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("vectorstore: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunk_records
			(chunk_id, source_document, department, chunk_index, content,
			 allowed_roles, explicit_deny, security_level, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (chunk_id) DO UPDATE SET
			content = EXCLUDED.content,
			allowed_roles = EXCLUDED.allowed_roles,
			explicit_deny = EXCLUDED.explicit_deny,
			security_level = EXCLUDED.security_level,
			embedding = EXCLUDED.embedding
	`)
	if err != nil {
		return fmt.Errorf("vectorstore: prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.ChunkID,
			rec.Metadata.SourceDocument,
			rec.Metadata.Department,
			rec.Metadata.ChunkIndex,
			rec.Content,
			pq.Array(keys(rec.Metadata.AllowedRoles)),
			pq.Array(keys(rec.Metadata.ExplicitDeny)),
			rec.Metadata.SecurityLevel,
			pgvector.NewVector(rec.Vector),
		)
		if err != nil {
			return fmt.Errorf("vectorstore: upsert chunk %s: %w", rec.ChunkID, err)
		}
	}

	return tx.Commit()
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
