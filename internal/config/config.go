package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Corpus and retrieval
	CorpusDir           string
	ChunkSize           int
	TopK                int
	EmbeddingsCachePath string
	RebuildEmbeddings   bool
	CacheVerifyCorpus   bool

	// Gemini
	GeminiAPIKey    string
	EmbeddingModel  string
	GenerationModel string
	GeminiTier      string
	EmbeddingRPM    int
	APITimeout      time.Duration

	// HTTP
	Port            string
	GinMode         string
	CORSOrigins     []string
	RateLimitReqs   int
	RateLimitWindow int
	// AdminToken guards the reindex endpoint; empty disables it.
	AdminToken string

	// ReindexCron schedules periodic rebuilds in the worker; empty disables it.
	ReindexCron string

	// Redis Configuration (optional: build lock, rate limit, rebuild queue)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// OpenTelemetry
	OTLPEndpoint string
	ServiceName  string
}

// ConfigurationError reports a missing or invalid setting detected at startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Field, e.Reason)
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		CorpusDir:           getEnv("CORPUS_DIR", "data_pdf"),
		ChunkSize:           getEnvInt("CHUNK_SIZE", 1000),
		TopK:                getEnvInt("TOP_K", 20),
		EmbeddingsCachePath: getEnv("EMBEDDINGS_CACHE_PATH", "embeddings.parquet"),
		RebuildEmbeddings:   getEnvBool("REBUILD_EMBEDDINGS", false),
		CacheVerifyCorpus:   getEnvBool("CACHE_VERIFY_CORPUS", false),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", os.Getenv("API_KEY")),
		EmbeddingModel:  getEnv("EMBEDDING_MODEL", "text-embedding-004"),
		GenerationModel: getEnv("GENERATION_MODEL", "gemini-2.0-flash"),
		GeminiTier:      getEnv("GEMINI_TIER", "free"),
		EmbeddingRPM:    getEnvInt("EMBEDDING_RPM", 1500),
		APITimeout:      time.Duration(getEnvInt("API_TIMEOUT_SECONDS", 30)) * time.Second,

		Port:            getEnv("PORT", "8080"),
		GinMode:         getEnv("GIN_MODE", "debug"),
		CORSOrigins:     strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),
		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),
		AdminToken:      getEnv("ADMIN_TOKEN", ""),

		ReindexCron: getEnv("REINDEX_CRON", ""),

		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:  getEnv("OTEL_SERVICE_NAME", "viola-chatbot"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings every binary needs before touching the corpus
// or the Gemini API.
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return &ConfigurationError{Field: "GEMINI_API_KEY", Reason: "is required - set it in .env file"}
	}
	if c.EmbeddingModel == "" {
		return &ConfigurationError{Field: "EMBEDDING_MODEL", Reason: "must not be empty"}
	}
	if c.GenerationModel == "" {
		return &ConfigurationError{Field: "GENERATION_MODEL", Reason: "must not be empty"}
	}
	if c.ChunkSize <= 0 {
		return &ConfigurationError{Field: "CHUNK_SIZE", Reason: "must be positive"}
	}
	if c.TopK <= 0 {
		return &ConfigurationError{Field: "TOP_K", Reason: "must be positive"}
	}
	if c.APITimeout <= 0 {
		return &ConfigurationError{Field: "API_TIMEOUT_SECONDS", Reason: "must be positive"}
	}
	return nil
}

// RedisEnabled reports whether the optional Redis-backed features are configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisURL != ""
}
