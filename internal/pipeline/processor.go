package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Conceptual-Machines/scoreviz/internal/features"
	"github.com/Conceptual-Machines/scoreviz/internal/llm"
	"github.com/Conceptual-Machines/scoreviz/internal/logger"
	"github.com/Conceptual-Machines/scoreviz/internal/prompt"
	"github.com/Conceptual-Machines/scoreviz/internal/storage"
	"github.com/Conceptual-Machines/scoreviz/internal/templates"
)

const separator = "======================================================="

var (
	// ErrNarrationCall wraps a failed narration request. It never fails a template.
	ErrNarrationCall = errors.New("narration call failed")
	// ErrImageCall wraps a failed image request
	ErrImageCall = errors.New("image call failed")
	// ErrNoImageData means the image call succeeded but returned no binary part
	ErrNoImageData = errors.New("no image data in response")
	// ErrStore wraps a failure to persist image bytes
	ErrStore = errors.New("image store failed")
	// ErrNoTemplates is returned when Run is given an empty registry
	ErrNoTemplates = errors.New("no templates to process")
)

// Options tunes a Processor
type Options struct {
	// Concurrency bounds parallel templates; values below 2 run strictly sequentially
	Concurrency int
	// Out receives console status lines; defaults to os.Stdout
	Out io.Writer
	// Disclaimer is printed once after every run; empty disables it
	Disclaimer string
	// Observer receives per-template and per-run callbacks; may be nil
	Observer Observer
}

// Processor runs the narration and image loop over a template registry
type Processor struct {
	narrator llm.TextGenerator
	imager   llm.MultimodalGenerator
	store    storage.ImageStore
	builder  *prompt.NarrationBuilder
	opts     Options
}

// NewProcessor wires the collaborators of the generation loop
func NewProcessor(
	narrator llm.TextGenerator,
	imager llm.MultimodalGenerator,
	store storage.ImageStore,
	builder *prompt.NarrationBuilder,
	opts Options,
) *Processor {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Processor{
		narrator: narrator,
		imager:   imager,
		store:    store,
		builder:  builder,
		opts:     opts,
	}
}

// RunInput identifies a run for reporting
type RunInput struct {
	// RunID is generated when empty
	RunID string
	// Source is the sheet music or feature file the record came from
	Source string
}

// Run processes every template in registry order. Only a malformed record or an
// empty registry is fatal; every per-template failure is recorded in the report.
func (p *Processor) Run(ctx context.Context, record *features.Record, registry *templates.Registry, in RunInput) (*Report, error) {
	if record == nil {
		return nil, fmt.Errorf("%w: record is nil", features.ErrMalformedRecord)
	}
	if registry == nil || registry.Len() == 0 {
		return nil, ErrNoTemplates
	}

	payload, err := record.JSON()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", features.ErrMalformedRecord, err)
	}

	runID := in.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	report := &Report{
		RunID:     runID,
		Source:    in.Source,
		Title:     record.Title(),
		StartedAt: time.Now(),
	}

	logger.Info("Visualization run started", logger.Fields{
		"run_id":      runID,
		"templates":   registry.Len(),
		"concurrency": p.opts.Concurrency,
	})

	list := registry.List()
	job := &job{runID: runID, record: record, payload: payload}
	if p.opts.Concurrency > 1 {
		report.Results = p.runConcurrent(ctx, job, list)
	} else {
		report.Results = p.runSequential(ctx, job, list)
	}

	p.printDisclaimer()

	report.Duration = time.Since(report.StartedAt)
	report.Disclaimer = p.opts.Disclaimer
	report.count()

	logger.Info("Visualization run finished", logger.Fields{
		"run_id":      runID,
		"saved":       report.Saved,
		"failed":      report.Failed,
		"duration_ms": report.Duration.Milliseconds(),
	})
	if p.opts.Observer != nil {
		p.opts.Observer.OnRun(ctx, report)
	}

	return report, nil
}

type job struct {
	runID   string
	record  *features.Record
	payload string
}

func (p *Processor) runSequential(ctx context.Context, j *job, list []templates.Template) []Result {
	results := make([]Result, len(list))
	for i, tmpl := range list {
		var out bytes.Buffer
		results[i] = p.process(ctx, j, tmpl, &out)
		p.flush(&out)
	}
	return results
}

// runConcurrent keeps each template's console lines together and flushes them in registry order
func (p *Processor) runConcurrent(ctx context.Context, j *job, list []templates.Template) []Result {
	results := make([]Result, len(list))
	outputs := make([]bytes.Buffer, len(list))

	g := new(errgroup.Group)
	g.SetLimit(p.opts.Concurrency)
	for i, tmpl := range list {
		g.Go(func() error {
			results[i] = p.process(ctx, j, tmpl, &outputs[i])
			return nil
		})
	}
	_ = g.Wait()

	for i := range outputs {
		p.flush(&outputs[i])
	}
	return results
}

// process drives one template through its states and never returns an error
func (p *Processor) process(ctx context.Context, j *job, tmpl templates.Template, out io.Writer) Result {
	startTime := time.Now()
	res := Result{Template: tmpl.Name, State: StatePending}
	res.advance(StatePending)

	fields := logger.Fields{"run_id": j.runID, "template": tmpl.Name}

	fmt.Fprintf(out, "\n%s\n", separator)
	fmt.Fprintf(out, "--- Visualization: %s ---\n", tmpl.Name)

	finish := func() Result {
		res.Duration = time.Since(startTime)
		if p.opts.Observer != nil {
			p.opts.Observer.OnTemplate(ctx, j.runID, res)
		}
		return res
	}

	// EXTRACTING
	res.advance(StateExtracting)
	if err := ctx.Err(); err != nil {
		res.fail(err)
		fmt.Fprintf(out, "ERROR: Skipped %s: %v\n", tmpl.Name, err)
		return finish()
	}

	summary, err := features.Summarize(j.record)
	if err != nil {
		res.fail(err)
		fmt.Fprintf(out, "ERROR: Failed to extract data for %s: %v\n", tmpl.Name, err)
		logger.Error("Summary extraction failed", err, logger.Merge(fields, logger.Fields{"stage": string(StateExtracting)}))
		return finish()
	}

	// NARRATING
	res.advance(StateNarrating)
	narration, err := p.narrator.GenerateText(ctx, p.builder.Build(summary, tmpl))
	if err != nil {
		res.NarrationErr = fmt.Errorf("%w: %w", ErrNarrationCall, err)
		narration = fmt.Sprintf("[Error generating narration from API: %v]", err)
		logger.Warn("Narration failed, continuing with image", logger.Merge(fields, logger.Fields{"error": err.Error()}))
	}
	res.Narration = narration
	fmt.Fprintf(out, "NARRATION [%s]: %s\n", summary.Title, narration)

	// IMAGING
	res.advance(StateImaging)
	parts, err := p.imager.GenerateMultimodal(ctx, tmpl.Render(j.payload), llm.Modalities{Image: true, Text: true})
	if err != nil {
		res.fail(fmt.Errorf("%w: %w", ErrImageCall, err))
		fmt.Fprintf(out, "ERROR: Failed to generate image for %s: %v\n", tmpl.Name, err)
		logger.Error("Image generation failed", err, logger.Merge(fields, logger.Fields{"stage": string(StateImaging)}))
		return finish()
	}

	image, ok := llm.FirstData(parts)
	if !ok {
		res.fail(ErrNoImageData)
		fmt.Fprintln(out, "STATUS: No image data found in the response.")
		logger.Warn("No image data in response", logger.Merge(fields, logger.Fields{"parts": len(parts)}))
		return finish()
	}

	path, err := p.store.Save(ctx, tmpl.FileStem(), image.Data, image.MIMEType)
	if err != nil {
		res.fail(fmt.Errorf("%w: %w", ErrStore, err))
		fmt.Fprintf(out, "ERROR: Failed to save image for %s: %v\n", tmpl.Name, err)
		logger.Error("Saving image failed", err, logger.Merge(fields, logger.Fields{"stage": string(StateImaging)}))
		return finish()
	}

	// SAVED
	res.ImagePath = path
	res.ImageMIMEType = image.MIMEType
	res.advance(StateSaved)
	fmt.Fprintf(out, "STATUS: Image saved as %s\n", path)
	logger.Info("Image saved", logger.Merge(fields, logger.Fields{"path": path}))

	return finish()
}

func (p *Processor) flush(buf *bytes.Buffer) {
	if _, err := buf.WriteTo(p.opts.Out); err != nil {
		logger.Warn("Failed to write console output", logger.Fields{"error": err.Error()})
	}
}

func (p *Processor) printDisclaimer() {
	if p.opts.Disclaimer == "" {
		return
	}
	fmt.Fprintf(p.opts.Out, "\n%s\n", p.opts.Disclaimer)
}
