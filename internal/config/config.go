package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"mentanova-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	CohereAPIKey string `envconfig:"COHERE_API_KEY"`

	// Retrieval tuning. Defaults mirror the values the pipeline was evaluated
	// with; the threshold and RRF constant are deliberately configuration, not
	// constants.
	RetrievalTopK       int     `envconfig:"RETRIEVAL_TOP_K" default:"20"`
	SimilarityThreshold float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.7"`
	HybridAlpha         float64 `envconfig:"HYBRID_ALPHA" default:"0.7"`
	RRFK                int     `envconfig:"RRF_K" default:"60"`

	ExpandTopN      int `envconfig:"EXPAND_TOP_N" default:"5"`
	NeighborsBefore int `envconfig:"NEIGHBORS_BEFORE" default:"1"`
	NeighborsAfter  int `envconfig:"NEIGHBORS_AFTER" default:"1"`
	ExpandWorkers   int `envconfig:"EXPAND_WORKERS" default:"4"`

	RerankEnabled bool   `envconfig:"RERANK_ENABLED" default:"true"`
	RerankTopN    int    `envconfig:"RERANK_TOP_N" default:"8"`
	RerankModel   string `envconfig:"RERANK_MODEL" default:"rerank-english-v3.0"`

	MaxContextTokens int `envconfig:"MAX_CONTEXT_TOKENS" default:"12000"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("MENTANOVA", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
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

// Validate rejects tuning values the pipeline cannot work with.
func (c *Config) Validate() error {
	if c.HybridAlpha < 0 || c.HybridAlpha > 1 {
		return fmt.Errorf("HYBRID_ALPHA must be in [0,1], got %v", c.HybridAlpha)
	}
	if c.RRFK <= 0 {
		return fmt.Errorf("RRF_K must be positive, got %d", c.RRFK)
	}
	if c.RetrievalTopK <= 0 {
		return fmt.Errorf("RETRIEVAL_TOP_K must be positive, got %d", c.RetrievalTopK)
	}
	if c.MaxContextTokens <= 0 {
		return fmt.Errorf("MAX_CONTEXT_TOKENS must be positive, got %d", c.MaxContextTokens)
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasCohere() bool {
	return c.CohereAPIKey != ""
}
