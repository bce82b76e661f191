package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"ragaccess/internal/audit"
	"ragaccess/internal/auth"
	"ragaccess/internal/config"
	"ragaccess/internal/docprep"
	"ragaccess/internal/embedding"
	"ragaccess/internal/httpapi"
	"ragaccess/internal/rbac"
	"ragaccess/internal/retrieval"
	"ragaccess/internal/textnorm"
	"ragaccess/internal/vectorstore"
)

func main() {
	serveMode := flag.Bool("serve", true, "run the HTTP query service")
	reindex := flag.String("reindex", "", "rebuild the index from a source directory and exit")
	migrate := flag.Bool("migrate", false, "ensure database schema exists and exit")
	flag.Parse()

	logger, err := config.InitLogger(false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer config.Cleanup()
	cfg := config.Load(logger)

	ctx := context.Background()

	switch {
	case *reindex != "":
		runReindex(ctx, logger, cfg, *reindex)
	case *migrate:
		runMigrate(ctx, logger, cfg)
	case *serveMode:
		runServe(logger, cfg)
	}
}

func runMigrate(ctx context.Context, logger *zap.Logger, cfg *config.Config) {
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := auth.NewStore(db).EnsureSchema(ctx); err != nil {
		logger.Fatal("failed to ensure users schema", zap.Error(err))
	}
	if err := vectorstore.EnsureSchema(ctx, db); err != nil {
		logger.Fatal("failed to ensure chunk_records schema", zap.Error(err))
	}
	logger.Info("schema migration complete")
}

// runReindex implements spec §6.3's rebuild path: regenerate chunks +
// embeddings into a staging directory (<index path>.new), then remove the
// previous index directory and rename the staging directory into its place.
// The swap is these two steps, not a single atomic rename, and uses no
// symlink. srcDir holds
// <department>/<source-document> files named by extension
// (.txt/.csv/.md/.pdf).
func runReindex(ctx context.Context, logger *zap.Logger, cfg *config.Config, srcDir string) {
	roles, err := rbac.LoadConfigOrDefault(cfg.RBACConfigPath)
	if err != nil {
		logger.Fatal("failed to load rbac config", zap.Error(err))
	}
	roleDeptMap := docprep.RoleDepartmentMap{}
	for role, def := range roles.Roles {
		depts := map[string]bool{}
		for perm := range def.Permissions {
			if perm == "*" {
				continue
			}
			for d := range roles.Departments {
				if perm == "read:"+d {
					depts[d] = true
				}
			}
		}
		roleDeptMap[role] = depts
	}

	chunker := docprep.NewChunker(cfg.ChunkTargetTokens, cfg.ChunkOverlapTokens, cfg.ChunkIDScheme, roleDeptMap)
	embedder, err := embedding.New(cfg.EmbeddingDimension, 0)
	if err != nil {
		logger.Fatal("failed to build embedder", zap.Error(err))
	}

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		logger.Fatal("failed to read source directory", zap.Error(err))
	}

	var records []vectorstore.Record
	ordinal := 0
	for _, deptEntry := range entries {
		if !deptEntry.IsDir() {
			continue
		}
		department := deptEntry.Name()
		deptPath := filepath.Join(srcDir, department)
		files, err := os.ReadDir(deptPath)
		if err != nil {
			logger.Warn("failed to read department directory", zap.String("department", department), zap.Error(err))
			continue
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			path := filepath.Join(deptPath, f.Name())
			raw, err := os.ReadFile(path)
			if err != nil {
				logger.Warn("failed to read source document", zap.String("path", path), zap.Error(err))
				continue
			}
			text, err := docprep.Parse(formatFor(f.Name()), raw)
			if err != nil {
				logger.Warn("failed to parse source document", zap.String("path", path), zap.Error(err))
				continue
			}
			chunks := chunker.Chunk(f.Name(), department, text, &ordinal)
			for _, ch := range chunks {
				vec := embedder.Embed(ch.Content)
				records = append(records, vectorstore.Record{
					ChunkID: ch.ChunkID,
					Content: ch.Content,
					Metadata: vectorstore.Metadata{
						SourceDocument: ch.SourceDocument,
						Department:     ch.Department,
						ChunkIndex:     ch.ChunkIndex,
						AllowedRoles:   ch.AllowedRoles,
						ExplicitDeny:   ch.ExplicitDeny,
						SecurityLevel:  ch.SecurityLevel,
						CreatedAt:      ch.CreatedAt,
					},
					Vector: toFloat32(vec),
				})
			}
		}
	}

	stagingDir := cfg.IndexArtifactsPath + ".new"
	if err := vectorstore.WriteArtifacts(stagingDir, records); err != nil {
		logger.Fatal("failed to write index artifacts", zap.Error(err))
	}
	if err := os.RemoveAll(cfg.IndexArtifactsPath); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove previous index directory", zap.Error(err))
	}
	if err := os.Rename(stagingDir, cfg.IndexArtifactsPath); err != nil {
		logger.Fatal("failed to swap index directory", zap.Error(err))
	}

	// Mirror the rebuilt index into the durable Postgres record-of-truth
	// (spec §6.3); the runtime query path never reads this table back.
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()
	if err := vectorstore.EnsureSchema(ctx, db); err != nil {
		logger.Fatal("failed to ensure chunk_records schema", zap.Error(err))
	}
	if err := vectorstore.PersistRecords(ctx, db, records); err != nil {
		logger.Fatal("failed to persist chunk records", zap.Error(err))
	}

	logger.Info("reindex complete", zap.Int("chunks", len(records)))
}

func formatFor(filename string) docprep.Format {
	switch filepath.Ext(filename) {
	case ".csv":
		return docprep.FormatCSV
	case ".md":
		return docprep.FormatMarkdown
	case ".pdf":
		return docprep.FormatPDF
	default:
		return docprep.FormatText
	}
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func runServe(logger *zap.Logger, cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	userStore := auth.NewStore(db)

	sink, err := audit.NewSink(cfg.AuditSinkPath, logger)
	if err != nil {
		logger.Fatal("failed to open audit sink", zap.Error(err))
	}
	defer sink.Close()

	issuer, err := auth.NewTokenIssuer(cfg.SigningKey, cfg.SigningAlgorithm)
	if err != nil {
		logger.Fatal("failed to build token issuer", zap.Error(err))
	}
	authSvc := auth.NewService(userStore, issuer, sink, logger, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	store, err := vectorstore.LoadArtifacts(cfg.IndexArtifactsPath)
	if err != nil {
		logger.Fatal("failed to load index artifacts", zap.Error(err))
	}
	stats := store.Stats()
	logger.Info("loaded index", zap.Int("total_chunks", stats.TotalChunks))

	embedder, err := embedding.New(cfg.EmbeddingDimension, 4096)
	if err != nil {
		logger.Fatal("failed to build embedder", zap.Error(err))
	}

	rbacConfig, err := rbac.LoadConfigOrDefault(cfg.RBACConfigPath)
	if err != nil {
		logger.Fatal("failed to load rbac config", zap.Error(err))
	}

	orchestrator := &retrieval.Orchestrator{
		Normalizer:          textnorm.New(nil),
		Embedder:            embedder,
		Store:               store,
		RBACConfig:          rbacConfig,
		Audit:               sink,
		SimilarityThreshold: cfg.SimilarityThreshold,
		DiversityMaxPerDoc:  cfg.DiversityMaxPerDoc,
		Logger:              logger,
	}

	server := httpapi.NewServer(logger, authSvc, orchestrator, rbacConfig,
		cfg.MaxConcurrentRequest, cfg.RequestDeadlineQuery, cfg.RequestDeadlineLogin)

	logger.Info("starting ragaccess", zap.String("addr", cfg.HTTPAddr))
	if err := server.Start(ctx, cfg.HTTPAddr); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}
