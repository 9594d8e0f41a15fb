package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/Conceptual-Machines/scoreviz/internal/features"
	"github.com/Conceptual-Machines/scoreviz/internal/llm"
	"github.com/Conceptual-Machines/scoreviz/internal/observability"
	"github.com/Conceptual-Machines/scoreviz/internal/pipeline"
	"github.com/Conceptual-Machines/scoreviz/internal/prompt"
	"github.com/Conceptual-Machines/scoreviz/internal/storage"
	"github.com/Conceptual-Machines/scoreviz/internal/templates"
)

const traceName = "scoreviz.run"

// Extractor turns a sheet music file into a feature record
type Extractor interface {
	Extract(ctx context.Context, path string) (*features.Record, error)
}

// StoreFactory returns the image store for one run
type StoreFactory func(runID string) storage.ImageStore

// SharedStore uses the same store for every run
func SharedStore(store storage.ImageStore) StoreFactory {
	return func(string) storage.ImageStore { return store }
}

// RunScopedFileStores writes each run to <dir>/<run_id>
func RunScopedFileStores(dir string) StoreFactory {
	return func(runID string) storage.ImageStore {
		return storage.NewFileStore(filepath.Join(dir, runID))
	}
}

// RunScopedS3Stores writes each run under <prefix>/<run_id>
func RunScopedS3Stores(base *storage.S3Store) StoreFactory {
	return func(runID string) storage.ImageStore {
		return base.WithPrefix(runID)
	}
}

// VisualizationOptions tunes a VisualizationService
type VisualizationOptions struct {
	Concurrency int
	Disclaimer  string
	Observer    pipeline.Observer
	Langfuse    *observability.LangfuseClient
}

// VisualizationService wires extraction and the generation loop for the CLI and the API
type VisualizationService struct {
	extractor Extractor
	narrator  llm.TextGenerator
	imager    llm.MultimodalGenerator
	builder   *prompt.NarrationBuilder
	stores    StoreFactory
	opts      VisualizationOptions
}

// NewVisualizationService creates the service. extractor may be nil when only
// pre-extracted records are visualized.
func NewVisualizationService(
	extractor Extractor,
	narrator llm.TextGenerator,
	imager llm.MultimodalGenerator,
	builder *prompt.NarrationBuilder,
	stores StoreFactory,
	opts VisualizationOptions,
) *VisualizationService {
	return &VisualizationService{
		extractor: extractor,
		narrator:  narrator,
		imager:    imager,
		builder:   builder,
		stores:    stores,
		opts:      opts,
	}
}

// VisualizeRequest describes one run
type VisualizeRequest struct {
	RunID    string
	Source   string
	Registry *templates.Registry
	// Out receives console status lines
	Out io.Writer
}

// Disclaimer returns the text printed after each run
func (s *VisualizationService) Disclaimer() string {
	return s.opts.Disclaimer
}

// Extract runs feature extraction for a sheet music file
func (s *VisualizationService) Extract(ctx context.Context, path string) (*features.Record, error) {
	if s.extractor == nil {
		return nil, fmt.Errorf("feature extraction is not configured")
	}
	return s.extractor.Extract(ctx, path)
}

// ProcessSheet extracts features from path and then visualizes them
func (s *VisualizationService) ProcessSheet(ctx context.Context, path string, req VisualizeRequest) (*features.Record, *pipeline.Report, error) {
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	if req.Source == "" {
		req.Source = filepath.Base(path)
	}

	ctx, trace := s.startTrace(ctx, req)
	record, err := s.Extract(ctx, path)
	if err != nil {
		trace.Finish()
		return nil, nil, err
	}

	report, err := s.Visualize(ctx, record, req)
	return record, report, err
}

// Visualize runs the generation loop for an already extracted record
func (s *VisualizationService) Visualize(ctx context.Context, record *features.Record, req VisualizeRequest) (*pipeline.Report, error) {
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}

	ctx, trace := s.startTrace(ctx, req)

	processor := pipeline.NewProcessor(s.narrator, s.imager, s.stores(req.RunID), s.builder, pipeline.Options{
		Concurrency: s.opts.Concurrency,
		Out:         req.Out,
		Disclaimer:  s.opts.Disclaimer,
		Observer:    s.opts.Observer,
	})

	report, err := processor.Run(ctx, record, req.Registry, pipeline.RunInput{
		RunID:  req.RunID,
		Source: req.Source,
	})
	if err != nil {
		// OnRun never fires for a fatal run
		trace.Finish()
		return nil, err
	}
	return report, nil
}

// startTrace attaches a Langfuse run trace unless ctx already carries one
func (s *VisualizationService) startTrace(ctx context.Context, req VisualizeRequest) (context.Context, *observability.Trace) {
	if trace := observability.TraceFromContext(ctx); trace != nil {
		return ctx, trace
	}
	trace := s.opts.Langfuse.StartTrace(ctx, traceName, map[string]interface{}{
		"run_id": req.RunID,
		"source": req.Source,
	})
	return observability.WithTrace(ctx, trace), trace
}
