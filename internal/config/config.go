package config

import (
	"flag"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	pkgRetry "github.com/futig/medrag/internal/pkg/retry"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr           string        `env:"SERVER_ADDR" envDefault:":8000"`
	ServerReadTimeout    time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	ServerWriteTimeout   time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"5m"`
	ServerIdleTimeout    time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	ServerRequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" envDefault:"3m"`

	// Retrieval pipeline
	RAGCfg RAGConfig `envPrefix:"RAG_"`

	// External service configurations
	EmbedderCfg EmbedderConfig `envPrefix:"EMBEDDER_"`
	IndexCfg    IndexConfig    `envPrefix:"INDEX_"`
	LLMCfg      LLMConfig      `envPrefix:"LLM_"`
	SessionCfg  SessionConfig  `envPrefix:"SESSION_"`

	// Database configuration (pgvector index)
	DatabaseURL         string        `env:"DATABASE_URL"`
	DBMaxConns          int           `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns          int           `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
	DBRunMigrations     bool          `env:"DB_RUN_MIGRATIONS" envDefault:"true"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS" envDefault:"false"`

	// Environment (set from flag, not from env var)
	Environment string
}

type RAGConfig struct {
	DefaultTopK      int           `env:"DEFAULT_TOP_K" envDefault:"4"`
	MaxTopK          int           `env:"MAX_TOP_K" envDefault:"20"`
	PreviewLength    int           `env:"PREVIEW_LENGTH" envDefault:"200"`
	RetrievalTimeout time.Duration `env:"RETRIEVAL_TIMEOUT" envDefault:"10s"`
}

type EmbedderConfig struct {
	HTTPClientConfig
	// Provider is one of: ollama, openai
	Provider string `env:"PROVIDER" envDefault:"ollama"`
	Model    string `env:"MODEL" envDefault:"mxbai-embed-large"`
}

type IndexConfig struct {
	// Provider is one of: pgvector, qdrant
	Provider string `env:"PROVIDER" envDefault:"pgvector"`

	PgvectorTable string `env:"PGVECTOR_TABLE" envDefault:"passages"`

	QdrantHost       string `env:"QDRANT_HOST" envDefault:"localhost"`
	QdrantPort       int    `env:"QDRANT_PORT" envDefault:"6334"`
	QdrantAPIKey     string `env:"QDRANT_API_KEY"`
	QdrantUseTLS     bool   `env:"QDRANT_USE_TLS" envDefault:"false"`
	QdrantCollection string `env:"QDRANT_COLLECTION" envDefault:"medical_book"`

	Retry pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type LLMConfig struct {
	HTTPClientConfig
	// Provider is one of: ollama, openai, anthropic, gemini
	Provider    string        `env:"PROVIDER" envDefault:"ollama"`
	Model       string        `env:"MODEL" envDefault:"mistral"`
	Temperature float32       `env:"TEMPERATURE" envDefault:"0.1"`
	MaxTokens   int           `env:"MAX_TOKENS" envDefault:"1024"`
	Timeout     time.Duration `env:"GENERATION_TIMEOUT" envDefault:"2m"`
	// MaxConns caps concurrent connections to the model server, 0 is unlimited
	MaxConns    int           `env:"MAX_CONNS" envDefault:"0"`
}

type SessionConfig struct {
	// Store is one of: redis, memory
	Store     string        `env:"STORE" envDefault:"redis"`
	TTL       time.Duration `env:"TTL" envDefault:"24h"`
	KeyPrefix string        `env:"KEY_PREFIX" envDefault:"medical_chat:"`

	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	RedisSSL      bool          `env:"REDIS_SSL" envDefault:"false"`
	RedisTimeout  time.Duration `env:"REDIS_TIMEOUT" envDefault:"3s"`

	Retry pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"5m"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"10s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"90s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"2m"`
	Token                 string        `env:"TOKEN"`
	Url                   string        `env:"SERVICE_URL"`
}

var (
	embedderProviders = []string{"ollama", "openai"}
	indexProviders    = []string{"pgvector", "qdrant"}
	llmProviders      = []string{"ollama", "openai", "anthropic", "gemini"}
	sessionStores     = []string{"redis", "memory"}
)

func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	return Load(*envFlag)
}

// Load reads the env file of the given environment and parses the process
// environment into a Config.
func Load(environment string) (*Config, error) {
	envFile := getEnvFile(environment)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Environment = environment

	// Validate configuration
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	var errors []string

	// Validate retrieval configuration
	if cfg.RAGCfg.MaxTopK < 1 || cfg.RAGCfg.MaxTopK > 100 {
		errors = append(errors, fmt.Sprintf("RAG_MAX_TOP_K must be between 1 and 100, got %d", cfg.RAGCfg.MaxTopK))
	}

	if cfg.RAGCfg.DefaultTopK < 1 || cfg.RAGCfg.DefaultTopK > cfg.RAGCfg.MaxTopK {
		errors = append(errors, fmt.Sprintf("RAG_DEFAULT_TOP_K must be between 1 and RAG_MAX_TOP_K(%d), got %d", cfg.RAGCfg.MaxTopK, cfg.RAGCfg.DefaultTopK))
	}

	if cfg.RAGCfg.PreviewLength < 0 {
		errors = append(errors, fmt.Sprintf("RAG_PREVIEW_LENGTH must not be negative, got %d", cfg.RAGCfg.PreviewLength))
	}

	// Validate generation configuration
	if cfg.LLMCfg.Temperature < 0 || cfg.LLMCfg.Temperature > 1 {
		errors = append(errors, fmt.Sprintf("LLM_TEMPERATURE must be between 0 and 1, got %.2f", cfg.LLMCfg.Temperature))
	}

	if cfg.LLMCfg.MaxConns < 0 {
		errors = append(errors, fmt.Sprintf("LLM_MAX_CONNS must not be negative, got %d", cfg.LLMCfg.MaxConns))
	}

	if cfg.SessionCfg.TTL <= 0 {
		errors = append(errors, fmt.Sprintf("SESSION_TTL must be positive, got %s", cfg.SessionCfg.TTL))
	}

	// Providers only matter when real connectors are used
	if !cfg.EnableMocks {
		if !slices.Contains(embedderProviders, cfg.EmbedderCfg.Provider) {
			errors = append(errors, fmt.Sprintf("EMBEDDER_PROVIDER must be one of %v, got %q", embedderProviders, cfg.EmbedderCfg.Provider))
		}

		if !slices.Contains(indexProviders, cfg.IndexCfg.Provider) {
			errors = append(errors, fmt.Sprintf("INDEX_PROVIDER must be one of %v, got %q", indexProviders, cfg.IndexCfg.Provider))
		}

		if cfg.IndexCfg.Provider == "pgvector" && cfg.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required for the pgvector index")
		}

		if !slices.Contains(llmProviders, cfg.LLMCfg.Provider) {
			errors = append(errors, fmt.Sprintf("LLM_PROVIDER must be one of %v, got %q", llmProviders, cfg.LLMCfg.Provider))
		}
	}

	if !slices.Contains(sessionStores, cfg.SessionCfg.Store) {
		errors = append(errors, fmt.Sprintf("SESSION_STORE must be one of %v, got %q", sessionStores, cfg.SessionCfg.Store))
	}

	// Validate Database configuration
	if cfg.DBMaxConns < 1 || cfg.DBMaxConns > 200 {
		errors = append(errors, fmt.Sprintf("DB_MAX_CONNS must be between 1 and 200, got %d", cfg.DBMaxConns))
	}

	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		errors = append(errors, fmt.Sprintf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS(%d), got %d", cfg.DBMaxConns, cfg.DBMinConns))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
