package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Image store backends
const (
	StoreFile = "file"
	StoreS3   = "s3"
)

// Config holds the application configuration
type Config struct {
	// Environment
	Environment string
	Port        string

	// LLM API Keys
	GeminiAPIKey string // Google Gemini API key (extraction, narration, images)
	OpenAIAPIKey string // OpenAI API key, only needed for gpt-* narration models

	// Models
	ExtractionModel   string
	NarrationModel    string
	ImageModel        string
	NarrationMaxWords int

	// Pipeline
	OutputDir    string
	FeaturesPath string // default feature file for the visualize command
	Concurrency  int

	// Image storage
	ImageStore string // "file" or "s3"
	S3Bucket   string
	S3Prefix   string
	AWSRegion  string

	// Feature cache (optional)
	RedisAddr       string
	FeatureCacheTTL time.Duration

	// Run history (optional)
	DatabaseURL string

	// HTTP server
	CORSOrigins []string
	MaxUploadMB int

	// Observability
	SentryDSN         string // Sentry DSN for error tracking
	LangfusePublicKey string // Langfuse public key
	LangfuseSecretKey string // Langfuse secret key
	LangfuseHost      string // Langfuse host URL (cloud or self-hosted)
	LangfuseEnabled   bool   // Feature flag for Langfuse
	MetricsEnabled    bool   // Publish CloudWatch metrics
}

// Load reads configuration from the environment
func Load() (*Config, error) {
	cfg := &Config{
		Environment:       getEnv("ENVIRONMENT", "development"),
		Port:              getEnv("PORT", "8080"),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		ExtractionModel:   getEnv("EXTRACTION_MODEL", "gemini-2.5-flash"),
		NarrationModel:    getEnv("NARRATION_MODEL", "gemini-2.5-flash"),
		ImageModel:        getEnv("IMAGE_MODEL", "gemini-2.0-flash-exp-image-generation"),
		OutputDir:         getEnv("OUTPUT_DIR", "images"),
		FeaturesPath:      getEnv("FEATURES_PATH", ""),
		ImageStore:        strings.ToLower(getEnv("IMAGE_STORE", StoreFile)),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3Prefix:          getEnv("S3_PREFIX", ""),
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		SentryDSN:         getEnv("SENTRY_DSN", ""),
		LangfusePublicKey: getEnv("LANGFUSE_PUBLIC_KEY", ""),
		LangfuseSecretKey: getEnv("LANGFUSE_SECRET_KEY", ""),
		LangfuseHost:      getEnv("LANGFUSE_HOST", "https://cloud.langfuse.com"),
		LangfuseEnabled:   getEnv("LANGFUSE_ENABLED", "false") == "true",
		MetricsEnabled:    getEnv("METRICS_ENABLED", "false") == "true",
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),
	}

	var err error
	if cfg.NarrationMaxWords, err = getInt("NARRATION_MAX_WORDS", 70); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = getInt("CONCURRENCY", 1); err != nil {
		return nil, err
	}
	if cfg.MaxUploadMB, err = getInt("MAX_UPLOAD_MB", 20); err != nil {
		return nil, err
	}
	if cfg.FeatureCacheTTL, err = getDuration("FEATURE_CACHE_TTL", 24*time.Hour); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks settings that would fail later in a less obvious way
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("CONCURRENCY must be at least 1, got %d", c.Concurrency)
	}
	if c.NarrationMaxWords < 1 {
		return fmt.Errorf("NARRATION_MAX_WORDS must be at least 1, got %d", c.NarrationMaxWords)
	}
	switch c.ImageStore {
	case StoreFile:
	case StoreS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when IMAGE_STORE=s3")
		}
	default:
		return fmt.Errorf("IMAGE_STORE must be %q or %q, got %q", StoreFile, StoreS3, c.ImageStore)
	}
	return nil
}

// RequireGemini reports a missing Gemini key
func (c *Config) RequireGemini() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	return nil
}

// IsProduction returns true in the production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// CacheEnabled returns true when a Redis address is configured
func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}

// HistoryEnabled returns true when a database URL is configured
func (c *Config) HistoryEnabled() bool {
	return c.DatabaseURL != ""
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
