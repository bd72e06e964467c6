package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// schemaVectorDimensions is the width of the vector column fixed by the
// migrations; the embedding dimensions setting must change in step with it.
const schemaVectorDimensions = 768

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"768"`
	ChatModel           string `envconfig:"CHAT_MODEL"`

	TwitterBearerToken string `envconfig:"TWITTER_BEARER_TOKEN"`

	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"800"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"200"`

	SearchTopK     int     `envconfig:"SEARCH_TOP_K" default:"5"`
	SearchMinScore float32 `envconfig:"SEARCH_MIN_SCORE" default:"0.75"`

	JobPollInterval time.Duration `envconfig:"JOB_POLL_INTERVAL" default:"5s"`

	SentryDSN string `envconfig:"SENTRY_DSN"`

	// Bootstrap: create initial user and API key on startup
	InitUserName string `envconfig:"INIT_USER_NAME"`
	InitAPIKey   string `envconfig:"INIT_API_KEY"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("RECOLLECT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// 25% overlap is the validated default ratio for cross-chunk continuity
	if cfg.ChunkOverlap*4 < cfg.ChunkSize {
		log.Printf("config: chunk overlap %d is below 25%% of chunk size %d", cfg.ChunkOverlap, cfg.ChunkSize)
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

func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk overlap must be non-negative and smaller than chunk size")
	}
	if c.SearchTopK <= 0 {
		return fmt.Errorf("search top k must be positive")
	}
	if c.EmbeddingDimensions != schemaVectorDimensions {
		return fmt.Errorf("embedding dimensions %d do not match the vector(%d) schema column; update the migrations together with this setting",
			c.EmbeddingDimensions, schemaVectorDimensions)
	}
	return nil
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
