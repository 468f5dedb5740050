package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	// APIToken is the static bearer token required on /api/v1 routes.
	APIToken string `envconfig:"API_TOKEN" required:"true"`

	// Document processing
	ChunkWindow   int `envconfig:"CHUNK_WINDOW" default:"1000"`
	ChunkOverlap  int `envconfig:"CHUNK_OVERLAP" default:"200"`
	MaxDocumentMB int `envconfig:"MAX_DOCUMENT_MB" default:"50"`

	// Retrieval
	TopK         int     `envconfig:"TOP_K" default:"5"`
	MinRelevance float64 `envconfig:"MIN_RELEVANCE" default:"0.3"`

	// Embedding batching and retry
	EmbedBatchSize int           `envconfig:"EMBED_BATCH_SIZE" default:"100"`
	BackoffInitial time.Duration `envconfig:"BACKOFF_INITIAL" default:"500ms"`
	BackoffMax     time.Duration `envconfig:"BACKOFF_MAX_ELAPSED" default:"15s"`

	// Deadlines
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"120s"`
	QuestionTimeout time.Duration `envconfig:"QUESTION_TIMEOUT" default:"30s"`

	// CacheTTL evicts ingestion records (and their vectors) after this
	// duration. Zero keeps entries forever.
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"0"`
	EvictInterval time.Duration `envconfig:"EVICT_INTERVAL" default:"10m"`

	// Optional S3-compatible archive for raw downloaded documents
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"aura-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("AURA", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkWindow {
		return nil, fmt.Errorf("chunk overlap %d must be non-negative and smaller than window %d", cfg.ChunkOverlap, cfg.ChunkWindow)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// MaxDocumentBytes returns the download size cap in bytes.
func (c *Config) MaxDocumentBytes() int64 {
	return int64(c.MaxDocumentMB) * 1024 * 1024
}
