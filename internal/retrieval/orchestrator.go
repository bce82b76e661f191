package retrieval

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"ragaccess/internal/apperr"
	"ragaccess/internal/audit"
	"ragaccess/internal/embedding"
	"ragaccess/internal/rbac"
	"ragaccess/internal/rerank"
	"ragaccess/internal/textnorm"
	"ragaccess/internal/vectorstore"
)

// Orchestrator executes spec §4.7's query operation. One instance is built
// at startup and shared by every request: its fields are all either
// immutable or safe for concurrent readers (spec §5).
type Orchestrator struct {
	Normalizer          *textnorm.Normalizer
	Embedder            *embedding.Embedder
	Store               *vectorstore.Store
	RBACConfig          *rbac.Config
	Audit               *audit.Sink
	SimilarityThreshold float64
	DiversityMaxPerDoc  int
	Logger              *zap.Logger
}

// poolEntry carries the department so RBAC and re-ranking have it available
// without a second lookup.
type poolEntry struct {
	chunkID  string
	content  string
	metadata vectorstore.Metadata
}

// Query executes spec §4.7 steps 1-11 in the authenticated identity's
// context.
func (o *Orchestrator) Query(ctx context.Context, identity Identity, rawQuery string, topK int) (*QueryResult, error) {
	if l := len(rawQuery); l < 1 || l > 1000 {
		return nil, apperr.Validation("query must be between 1 and 1000 characters")
	}
	if topK <= 0 {
		topK = 5
	}
	if topK < 1 || topK > 20 {
		return nil, apperr.Validation("top_k must be between 1 and 20")
	}

	engine := rbac.New(o.RBACConfig, identity.Roles)

	// Step 1-2.
	normalized := o.Normalizer.Normalize(rawQuery)
	variants := textnorm.GenerateVariants(normalized)

	// Step 3.
	accessible := engine.AccessibleDepartments()
	accessibleList := sortedKeys(accessible)
	if len(accessible) == 0 {
		return &QueryResult{
			Query:                 rawQuery,
			NormalizedQuery:       normalized,
			Results:               []ResultItem{},
			ConfidenceBand:        "very-low",
			AccessibleDepartments: accessibleList,
			Reason:                "no accessible departments",
		}, nil
	}

	// Step 4: candidate pool, one parallel search per (variant, department)
	// pair, so up to len(variants) x len(departments) searches run at once.
	pool, err := o.search(ctx, variants, accessibleList, topK)
	if err != nil {
		return nil, err
	}

	// Step 5: enforce RBAC at the chunk level (belt-and-braces, spec §4.7).
	allowed := make([]poolEntry, 0, len(pool))
	for _, p := range pool {
		m := rbac.ChunkMetadata{
			Department:   p.metadata.Department,
			AllowedRoles: p.metadata.AllowedRoles,
			ExplicitDeny: p.metadata.ExplicitDeny,
		}
		if engine.IsAllowed(m) {
			allowed = append(allowed, p)
		}
	}

	select {
	case <-ctx.Done():
		return nil, apperr.Timeout("request deadline exceeded before re-rank")
	default:
	}

	// Step 6-7.
	queryVec := o.Embedder.Embed(normalized)
	candidates := make([]rerank.Candidate, len(allowed))
	for i, p := range allowed {
		candidates[i] = rerank.Candidate{
			ChunkID: p.chunkID,
			Content: p.content,
			Metadata: map[string]interface{}{
				"source_document": p.metadata.SourceDocument,
				"department":      p.metadata.Department,
			},
		}
	}

	lookup := func(chunkID string) ([]float64, bool) {
		rec, ok := o.Store.Lookup(chunkID)
		if !ok {
			return nil, false
		}
		return toFloat64(rec.Vector), true
	}

	ranked, dropped := rerank.Rerank(queryVec, candidates, lookup, cosine, o.SimilarityThreshold, o.DiversityMaxPerDoc)
	if dropped > 0 {
		o.Logger.Warn("rerank dropped candidates with no embedding-lookup hit",
			zap.Int("dropped", dropped), zap.String("username", identity.Username))
	}

	// Step 8.
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	// Step 9.
	band := confidenceBand(meanSimilarity(ranked))

	results := make([]ResultItem, len(ranked))
	for i, r := range ranked {
		dept, _ := r.Metadata["department"].(string)
		doc, _ := r.Metadata["source_document"].(string)
		results[i] = ResultItem{
			ChunkID: r.ChunkID,
			Content: r.Content,
			Metadata: map[string]string{
				"source_document": doc,
				"department":      dept,
			},
			Similarity: r.Similarity,
		}
	}

	// Step 10.
	if o.Audit != nil {
		o.Audit.Emit(audit.Event{
			Kind:     audit.KindQueryCompleted,
			Username: identity.Username,
			Fields: map[string]interface{}{
				"variants_count": len(variants),
				"pool_size":      len(pool),
				"returned":       len(results),
			},
		})
	}

	// Step 11.
	return &QueryResult{
		Query:                 rawQuery,
		NormalizedQuery:       normalized,
		Results:               results,
		ConfidenceBand:        band,
		AccessibleDepartments: accessibleList,
	}, nil
}

// search runs the per-variant, per-department candidate pool build (spec
// §4.7 step 4). Each shard search is an independent goroutine; cancellation
// is checked before each shard search is started (spec §5). Store.Search has
// no error return, so there is no single-shard failure to log or skip, and
// the embedder itself has no failure mode in this implementation (it is
// pure/local), so there is no dependency-fatal path to surface here beyond
// context cancellation.
func (o *Orchestrator) search(ctx context.Context, variants []string, departments []string, topK int) ([]poolEntry, error) {
	type job struct {
		variant    string
		department string
	}
	var jobs []job
	for _, v := range variants {
		for _, d := range departments {
			jobs = append(jobs, job{variant: v, department: d})
		}
	}

	results := make([][]poolEntry, len(jobs))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i, j := range jobs {
		select {
		case <-ctx.Done():
			return nil, apperr.Timeout("request deadline exceeded during shard search")
		default:
		}

		wg.Add(1)
		go func(i int, j job) {
			defer wg.Done()

			qv := o.Embedder.Embed(j.variant)
			hits := o.Store.Search(qv, j.department, 2*topK)

			entries := make([]poolEntry, 0, len(hits))
			for _, h := range hits {
				entries = append(entries, poolEntry{chunkID: h.ChunkID, content: h.Content, metadata: h.Metadata})
			}

			mu.Lock()
			results[i] = entries
			mu.Unlock()
		}(i, j)
	}
	wg.Wait()

	var pool []poolEntry
	for _, r := range results {
		pool = append(pool, r...)
	}
	return pool, nil
}

func cosine(a, b []float64) float64 {
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	if dot > 1 {
		return 1
	}
	if dot < -1 {
		return -1
	}
	return dot
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func meanSimilarity(results []rerank.Result) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.Similarity
	}
	return sum / float64(len(results))
}

// confidenceBand maps average top-K similarity to the coarse qualitative
// label (spec §4.7 step 9).
func confidenceBand(avg float64) string {
	switch {
	case avg >= 0.70:
		return "high"
	case avg >= 0.50:
		return "medium"
	case avg >= 0.30:
		return "low"
	default:
		return "very-low"
	}
}

