package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"ENVIRONMENT", "PORT", "GEMINI_API_KEY", "OPENAI_API_KEY",
	"EXTRACTION_MODEL", "NARRATION_MODEL", "IMAGE_MODEL", "NARRATION_MAX_WORDS",
	"OUTPUT_DIR", "FEATURES_PATH", "CONCURRENCY", "IMAGE_STORE", "S3_BUCKET",
	"S3_PREFIX", "AWS_REGION", "REDIS_ADDR", "FEATURE_CACHE_TTL", "DATABASE_URL",
	"SENTRY_DSN", "LANGFUSE_PUBLIC_KEY", "LANGFUSE_SECRET_KEY", "LANGFUSE_HOST",
	"LANGFUSE_ENABLED", "METRICS_ENABLED", "CORS_ORIGINS", "MAX_UPLOAD_MB",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearEnv(t)
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "development", cfg.Environment)
		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, "gemini-2.5-flash", cfg.ExtractionModel)
		assert.Equal(t, "gemini-2.5-flash", cfg.NarrationModel)
		assert.Equal(t, "gemini-2.0-flash-exp-image-generation", cfg.ImageModel)
		assert.Equal(t, 70, cfg.NarrationMaxWords)
		assert.Equal(t, "images", cfg.OutputDir)
		assert.Equal(t, 1, cfg.Concurrency)
		assert.Equal(t, StoreFile, cfg.ImageStore)
		assert.Equal(t, 24*time.Hour, cfg.FeatureCacheTTL)
		assert.False(t, cfg.LangfuseEnabled)
		assert.False(t, cfg.CacheEnabled())
		assert.False(t, cfg.HistoryEnabled())
		assert.Equal(t, []string{"http://localhost:5173", "http://127.0.0.1:5173"}, cfg.CORSOrigins)
		assert.Equal(t, 20, cfg.MaxUploadMB)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("custom values", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GEMINI_API_KEY", "g-test")
		t.Setenv("NARRATION_MODEL", "gpt-4.1-mini")
		t.Setenv("NARRATION_MAX_WORDS", "40")
		t.Setenv("CONCURRENCY", "4")
		t.Setenv("IMAGE_STORE", "S3")
		t.Setenv("S3_BUCKET", "scores")
		t.Setenv("FEATURE_CACHE_TTL", "1h")
		t.Setenv("REDIS_ADDR", "localhost:6379")
		t.Setenv("LANGFUSE_ENABLED", "true")
		t.Setenv("CORS_ORIGINS", " https://scoreviz.app, ,http://localhost:3000 ")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "g-test", cfg.GeminiAPIKey)
		assert.Equal(t, "gpt-4.1-mini", cfg.NarrationModel)
		assert.Equal(t, 40, cfg.NarrationMaxWords)
		assert.Equal(t, 4, cfg.Concurrency)
		assert.Equal(t, StoreS3, cfg.ImageStore)
		assert.Equal(t, time.Hour, cfg.FeatureCacheTTL)
		assert.True(t, cfg.CacheEnabled())
		assert.True(t, cfg.LangfuseEnabled)
		assert.Equal(t, []string{"https://scoreviz.app", "http://localhost:3000"}, cfg.CORSOrigins)
		assert.NoError(t, cfg.Validate())
		assert.NoError(t, cfg.RequireGemini())
	})

	t.Run("invalid duration", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("FEATURE_CACHE_TTL", "invalid")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "FEATURE_CACHE_TTL")
	})

	t.Run("invalid integer", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CONCURRENCY", "notanumber")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "CONCURRENCY")
	})
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{Concurrency: 1, NarrationMaxWords: 70, ImageStore: StoreFile}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "zero concurrency", mutate: func(c *Config) { c.Concurrency = 0 }, wantErr: "CONCURRENCY"},
		{name: "zero words", mutate: func(c *Config) { c.NarrationMaxWords = 0 }, wantErr: "NARRATION_MAX_WORDS"},
		{name: "s3 without bucket", mutate: func(c *Config) { c.ImageStore = StoreS3 }, wantErr: "S3_BUCKET"},
		{name: "unknown store", mutate: func(c *Config) { c.ImageStore = "ftp" }, wantErr: "IMAGE_STORE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_RequireGemini(t *testing.T) {
	assert.Error(t, (&Config{}).RequireGemini())
	assert.True(t, (&Config{Environment: "production"}).IsProduction())
}
