package docprep

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Chunker splits prepared plain text into token-bounded, overlapping chunks
// and tags them with RBAC metadata (spec §4.2). It is offline/ingestion-only
// state: a target size, an overlap, and the role<->department mapping used
// for metadata tagging.
type Chunker struct {
	TargetTokens int
	OverlapTokens int
	IDScheme      string // "ordinal" or "content_hash" (SPEC_FULL §D.3)
	Roles         RoleDepartmentMap
}

// NewChunker builds a Chunker, clamping TargetTokens into [300, 512] per
// spec §4.2.
func NewChunker(targetTokens, overlapTokens int, idScheme string, roles RoleDepartmentMap) *Chunker {
	if targetTokens < 300 {
		targetTokens = 300
	}
	if targetTokens > 512 {
		targetTokens = 512
	}
	if idScheme == "" {
		idScheme = "ordinal"
	}
	return &Chunker{TargetTokens: targetTokens, OverlapTokens: overlapTokens, IDScheme: idScheme, Roles: roles}
}

// Chunk splits text (paragraph-first, per spec §4.2) into Chunks belonging to
// sourceDocument/department, numbering chunk_index from 0 within this call
// and global ordinals for chunk_id continuing from *globalOrdinal, which is
// advanced by one per chunk.
func (c *Chunker) Chunk(sourceDocument, department, text string, globalOrdinal *int) []Chunk {
	paragraphs := splitParagraphs(text)
	var packed []string
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		if current.Len() > 0 {
			packed = append(packed, strings.TrimSpace(current.String()))
			current.Reset()
			currentTokens = 0
		}
	}

	for _, p := range paragraphs {
		pTokens := CountTokens(p)
		if pTokens > c.TargetTokens {
			flush()
			packed = append(packed, sliceByTokens(p, c.TargetTokens)...)
			continue
		}
		if currentTokens+pTokens > c.TargetTokens && currentTokens > 0 {
			flush()
		}
		current.WriteString(p)
		current.WriteString("\n\n")
		currentTokens += pTokens
	}
	flush()

	packed = applyOverlap(packed, c.OverlapTokens)

	chunks := make([]Chunk, 0, len(packed))
	for i, content := range packed {
		chunkID := c.chunkID(department, *globalOrdinal, content)
		chunks = append(chunks, Chunk{
			ChunkID:        chunkID,
			Content:        content,
			TokenCount:     CountTokens(content),
			SourceDocument: sourceDocument,
			Department:     department,
			ChunkIndex:     i,
			AllowedRoles:   allowedRolesFor(department, c.Roles),
			ExplicitDeny:   map[string]bool{},
			SecurityLevel:  "standard",
			CreatedAt:      time.Now().UTC(),
		})
		*globalOrdinal++
	}
	return chunks
}

func (c *Chunker) chunkID(department string, ordinal int, content string) string {
	deptUpper := strings.ToUpper(department)
	if c.IDScheme == "content_hash" {
		sum := sha256.Sum256([]byte(normalizeForHash(content)))
		return fmt.Sprintf("%s_CHUNK_%s", deptUpper, hex.EncodeToString(sum[:])[:16])
	}
	return fmt.Sprintf("%s_CHUNK_%d", deptUpper, ordinal)
}

func normalizeForHash(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// allowedRolesFor computes allowed_roles as the union of roles whose
// department set includes this chunk's department (spec §4.2). "general"
// department chunks carry an empty allowed_roles set so C5's
// department+read-permission fallback (rule 6) grants every role with
// read:general, which every role is configured to have.
func allowedRolesFor(department string, roles RoleDepartmentMap) map[string]bool {
	if department == "general" {
		return map[string]bool{}
	}
	out := map[string]bool{}
	for role, depts := range roles {
		if depts[department] {
			out[role] = true
		}
	}
	return out
}

func splitParagraphs(text string) []string {
	raw := strings.Split(text, "\n\n")
	var out []string
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 && strings.TrimSpace(text) != "" {
		out = []string{strings.TrimSpace(text)}
	}
	return out
}

// sliceByTokens falls back to token-strided slicing for a single paragraph
// that alone exceeds the target size (spec §4.2).
func sliceByTokens(paragraph string, targetTokens int) []string {
	words := strings.Fields(paragraph)
	if len(words) == 0 {
		return nil
	}
	// word-approximated token scheme: ~1 token per word for this fallback,
	// consistent with CountTokens's order of magnitude.
	var out []string
	for i := 0; i < len(words); i += targetTokens {
		end := i + targetTokens
		if end > len(words) {
			end = len(words)
		}
		out = append(out, strings.Join(words[i:end], " "))
	}
	return out
}

// applyOverlap prepends a trailing fragment of each chunk to the next, so
// consecutive chunks share O tokens of context (spec §4.2).
func applyOverlap(chunks []string, overlapTokens int) []string {
	if overlapTokens <= 0 || len(chunks) < 2 {
		return chunks
	}
	out := make([]string, len(chunks))
	out[0] = chunks[0]
	for i := 1; i < len(chunks); i++ {
		prevWords := strings.Fields(chunks[i-1])
		start := len(prevWords) - overlapTokens
		if start < 0 {
			start = 0
		}
		overlap := strings.Join(prevWords[start:], " ")
		if overlap == "" {
			out[i] = chunks[i]
			continue
		}
		out[i] = overlap + " " + chunks[i]
	}
	return out
}
