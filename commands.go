package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Conceptual-Machines/scoreviz/internal/api"
	"github.com/Conceptual-Machines/scoreviz/internal/features"
	"github.com/Conceptual-Machines/scoreviz/internal/logger"
	"github.com/Conceptual-Machines/scoreviz/internal/services"
	"github.com/Conceptual-Machines/scoreviz/internal/templates"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
	featureFilePerm   = 0o644
)

var (
	runInput      string
	extractInput  string
	extractOut    string
	visualizeFile string
	servePort     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Extract features from a score and render every template",
	Long: `Upload a sheet music file, extract its musical features and render each
visualization template as a narration and an image.

Examples:
  scoreviz run --input sonata.pdf
  scoreviz run --input sonata.musicxml --templates glyph,spiral --output-dir out`,
	RunE: runRun,
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract the feature record of a score",
	Long: `Upload a sheet music file and write the extracted feature record as JSON.

Examples:
  scoreviz extract --input sonata.pdf --out sonata.json`,
	RunE: runExtract,
}

var visualizeCmd = &cobra.Command{
	Use:   "visualize",
	Short: "Render templates from an existing feature record",
	Long: `Read a feature record JSON file and render each visualization template.
A malformed feature file aborts before any template is processed.

Examples:
  scoreviz visualize --features sonata.json
  FEATURES_PATH=sonata.json scoreviz visualize --concurrency 3`,
	RunE: runVisualize,
}

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List the visualization templates in processing order",
	RunE:  runTemplates,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "sheet music file (pdf, musicxml, mxl, png, jpg)")
	_ = runCmd.MarkFlagRequired("input")

	extractCmd.Flags().StringVar(&extractInput, "input", "", "sheet music file")
	extractCmd.Flags().StringVar(&extractOut, "out", "", "write the record here instead of stdout")
	_ = extractCmd.MarkFlagRequired("input")

	visualizeCmd.Flags().StringVar(&visualizeFile, "features", "", "feature record JSON file (default $FEATURES_PATH)")

	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (default $PORT or 8080)")

	rootCmd.AddCommand(runCmd, extractCmd, visualizeCmd, templatesCmd, serveCmd)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, flush, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer flush()

	registry, err := selectTemplates()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.close()

	_, report, err := a.svc.ProcessSheet(ctx, runInput, services.VisualizeRequest{
		Registry: registry,
		Out:      cmd.OutOrStdout(),
	})
	if err != nil {
		logger.Error("Run failed", err, logger.Fields{"input": runInput})
		return err
	}

	logger.Info("Run complete", logger.Fields{"run_id": report.RunID, "saved": report.Saved, "failed": report.Failed})
	return nil
}

func runExtract(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, flush, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer flush()

	a, err := newApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.close()

	record, err := a.svc.Extract(ctx, extractInput)
	if err != nil {
		logger.Error("Feature extraction failed", err, logger.Fields{"input": extractInput})
		return err
	}

	if extractOut == "" {
		fmt.Fprintln(cmd.OutOrStdout(), record.Indented())
		return nil
	}
	if err := os.WriteFile(extractOut, []byte(record.Indented()+"\n"), featureFilePerm); err != nil {
		return fmt.Errorf("write feature record: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Feature record written to %s\n", extractOut)
	return nil
}

func runVisualize(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, flush, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer flush()

	path := visualizeFile
	if path == "" {
		path = cfg.FeaturesPath
	}
	if path == "" {
		return errors.New("a feature file is required (--features or FEATURES_PATH)")
	}

	// a malformed record is fatal before any collaborator is created
	record, err := features.Load(path)
	if err != nil {
		logger.Error("Cannot load feature record", err, logger.Fields{"path": path})
		return err
	}

	registry, err := selectTemplates()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.close()

	report, err := a.svc.Visualize(ctx, record, services.VisualizeRequest{
		Source:   path,
		Registry: registry,
		Out:      cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	logger.Info("Run complete", logger.Fields{"run_id": report.RunID, "saved": report.Saved, "failed": report.Failed})
	return nil
}

func runTemplates(cmd *cobra.Command, _ []string) error {
	registry, err := selectTemplates()
	if err != nil {
		return err
	}
	printTemplates(cmd, registry)
	return nil
}

func printTemplates(cmd *cobra.Command, registry *templates.Registry) {
	byName := map[string][]string{}
	for alias, name := range registry.Aliases() {
		byName[name] = append(byName[name], alias)
	}

	out := cmd.OutOrStdout()
	for i, name := range registry.Names() {
		aliases := byName[name]
		if len(aliases) == 0 {
			fmt.Fprintf(out, "%2d. %s\n", i+1, name)
			continue
		}
		sort.Strings(aliases)
		fmt.Fprintf(out, "%2d. %s (%s)\n", i+1, name, strings.Join(aliases, ", "))
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, flush, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer flush()
	if servePort != "" {
		cfg.Port = servePort
	}

	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.close()

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	deps := api.Dependencies{
		Visualizer:    a.svc,
		Registry:      templates.Builtin(),
		HealthChecks:  a.healthChecks(),
		SentryMetrics: a.sentryMetrics,
		Metrics:       a.cloudwatch,
		RunStats:      a.runStats,
	}
	if a.history != nil {
		deps.History = a.history
	}
	router := api.SetupRouter(cfg, deps, GetVersion())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", logger.Fields{"port": cfg.Port})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server", nil)
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
