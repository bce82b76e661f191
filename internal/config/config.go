// Package config loads process-wide configuration at startup.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds the application's configuration surface (spec §6.4).
type Config struct {
	EmbeddingDimension   int           `mapstructure:"EMBEDDING_DIMENSION"`
	SimilarityThreshold  float64       `mapstructure:"SIMILARITY_THRESHOLD"`
	TopKDefault          int           `mapstructure:"TOP_K_DEFAULT"`
	AccessTokenTTL       time.Duration `mapstructure:"ACCESS_TOKEN_TTL_SECONDS"`
	RefreshTokenTTL      time.Duration `mapstructure:"REFRESH_TOKEN_TTL_SECONDS"`
	SigningKey           string        `mapstructure:"SIGNING_KEY"`
	SigningAlgorithm     string        `mapstructure:"SIGNING_ALGORITHM"`
	ChunkTargetTokens    int           `mapstructure:"CHUNK_TARGET_TOKENS"`
	ChunkOverlapTokens   int           `mapstructure:"CHUNK_OVERLAP_TOKENS"`
	ChunkIDScheme        string        `mapstructure:"CHUNK_ID_SCHEME"`
	RBACConfigPath       string        `mapstructure:"RBAC_CONFIG_PATH"`
	IndexArtifactsPath   string        `mapstructure:"INDEX_ARTIFACTS_PATH"`
	RequestDeadlineQuery time.Duration `mapstructure:"REQUEST_DEADLINE_QUERY_MS"`
	RequestDeadlineLogin time.Duration `mapstructure:"REQUEST_DEADLINE_LOGIN_MS"`
	MaxConcurrentRequest int           `mapstructure:"MAX_CONCURRENT_REQUESTS"`
	AuditSinkPath        string        `mapstructure:"AUDIT_SINK_PATH"`
	DiversityMaxPerDoc   int           `mapstructure:"DIVERSITY_MAX_PER_DOCUMENT"`
	DatabaseURL          string        `mapstructure:"DATABASE_URL"`
	HTTPAddr             string        `mapstructure:"HTTP_ADDR"`
}

// Load reads config.yaml (searched in ".", "./config", "/etc/ragaccess"),
// overlays environment variables prefixed RAGACCESS_, and fills in defaults
// for anything unset. Failure to unmarshal is fatal at startup.
func Load(logger *zap.Logger) *Config {
	var cfg Config

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/ragaccess")
	viper.SetEnvPrefix("RAGACCESS")
	viper.AutomaticEnv()

	viper.SetDefault("EMBEDDING_DIMENSION", 384)
	viper.SetDefault("SIMILARITY_THRESHOLD", 0.30)
	viper.SetDefault("TOP_K_DEFAULT", 5)
	viper.SetDefault("ACCESS_TOKEN_TTL_SECONDS", 900)
	viper.SetDefault("REFRESH_TOKEN_TTL_SECONDS", 604800)
	viper.SetDefault("SIGNING_KEY", "dev-only-signing-key-change-me")
	viper.SetDefault("SIGNING_ALGORITHM", "HS256")
	viper.SetDefault("CHUNK_TARGET_TOKENS", 512)
	viper.SetDefault("CHUNK_OVERLAP_TOKENS", 50)
	viper.SetDefault("CHUNK_ID_SCHEME", "ordinal")
	viper.SetDefault("RBAC_CONFIG_PATH", "./config/rbac.yaml")
	viper.SetDefault("INDEX_ARTIFACTS_PATH", "./data/index")
	viper.SetDefault("REQUEST_DEADLINE_QUERY_MS", 30000)
	viper.SetDefault("REQUEST_DEADLINE_LOGIN_MS", 10000)
	viper.SetDefault("MAX_CONCURRENT_REQUESTS", 64)
	viper.SetDefault("AUDIT_SINK_PATH", "./data/audit")
	viper.SetDefault("DIVERSITY_MAX_PER_DOCUMENT", 0)
	viper.SetDefault("DATABASE_URL", "postgres://localhost:5432/ragaccess?sslmode=disable")
	viper.SetDefault("HTTP_ADDR", ":8080")

	if err := viper.ReadInConfig(); err != nil {
		if logger != nil {
			logger.Warn("no config file found, using defaults/env vars", zap.Error(err))
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		if logger != nil {
			logger.Fatal("unable to decode config into struct", zap.Error(err))
		} else {
			fmt.Fprintf(os.Stderr, "FATAL: unable to decode config: %v\n", err)
			os.Exit(1)
		}
	}

	// mapstructure decodes *_MS/*_SECONDS fields as plain durations (ns) via
	// time.Duration's default decode hook only when the source is already a
	// duration string; since config supplies plain integers, convert here.
	cfg.AccessTokenTTL = cfg.AccessTokenTTL * time.Second
	cfg.RefreshTokenTTL = cfg.RefreshTokenTTL * time.Second
	cfg.RequestDeadlineQuery = cfg.RequestDeadlineQuery * time.Millisecond
	cfg.RequestDeadlineLogin = cfg.RequestDeadlineLogin * time.Millisecond

	return &cfg
}
