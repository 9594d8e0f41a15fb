package main

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Conceptual-Machines/scoreviz/internal/config"
)

const (
	sentryFlushTimeout    = 2 * time.Second
	environmentProduction = "production"
)

// releaseVersion is set via ldflags during build
var releaseVersion = "dev"

// GetVersion returns the current release version
func GetVersion() string {
	return releaseVersion
}

var (
	flagOutputDir   string
	flagTemplates   string
	flagConcurrency int
)

var rootCmd = &cobra.Command{
	Use:   "scoreviz",
	Short: "Turn sheet music into narrated, accessible visualizations",
	Long: `scoreviz extracts musical features from a score with Gemini, then renders
each visualization template as a short narration and a generated image.`,
	Version:       releaseVersion,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	rootCmd.PersistentFlags().StringVar(&flagOutputDir, "output-dir", "", "directory for generated images (default $OUTPUT_DIR or images)")
	rootCmd.PersistentFlags().StringVar(&flagTemplates, "templates", "", "comma separated template names or aliases (default all)")
	rootCmd.PersistentFlags().IntVar(&flagConcurrency, "concurrency", 0, "templates processed in parallel (default $CONCURRENCY or 1)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the environment, applies command line overrides and starts Sentry.
// The returned func flushes Sentry and must be called before exit.
func loadConfig(cmd *cobra.Command) (*config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("output-dir") {
		cfg.OutputDir = flagOutputDir
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = flagConcurrency
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	return cfg, initSentry(cfg), nil
}

func initSentry(cfg *config.Config) func() {
	if cfg.SentryDSN == "" {
		log.Println("⚠️  Sentry not configured (SENTRY_DSN not set)")
		return func() {}
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		Release:          "scoreviz@" + releaseVersion,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
		EnableLogs:       true,
		Debug:            cfg.Environment != environmentProduction,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			// Filter out sensitive data
			if event.Request != nil {
				event.Request.Headers = filterSensitiveHeaders(event.Request.Headers)
			}
			return event
		},
	}); err != nil {
		log.Printf("Failed to initialize Sentry: %v", err)
		return func() {}
	}

	log.Printf("✅ Sentry initialized (environment: %s, release: %s)", cfg.Environment, releaseVersion)
	return func() { sentry.Flush(sentryFlushTimeout) }
}

func filterSensitiveHeaders(headers map[string]string) map[string]string {
	filtered := make(map[string]string)
	sensitiveKeys := map[string]bool{
		"authorization":  true,
		"cookie":         true,
		"x-api-key":      true,
		"x-goog-api-key": true,
	}

	for k, v := range headers {
		if sensitiveKeys[strings.ToLower(k)] {
			filtered[k] = "[REDACTED]"
		} else {
			filtered[k] = v
		}
	}
	return filtered
}
