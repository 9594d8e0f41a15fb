package observability

import (
	"context"
	"log"
	"time"

	langfuse "github.com/henomis/langfuse-go"
	"github.com/henomis/langfuse-go/model"

	"github.com/Conceptual-Machines/scoreviz/internal/config"
	"github.com/Conceptual-Machines/scoreviz/internal/llm"
	"github.com/Conceptual-Machines/scoreviz/internal/pipeline"
)

const levelError = "ERROR"

type traceKey struct{}

// LangfuseClient records model calls as Langfuse generations grouped by run trace
type LangfuseClient struct {
	client  *langfuse.Langfuse
	enabled bool
	ctx     context.Context
}

// InitializeLangfuse creates the client. The SDK reads LANGFUSE_PUBLIC_KEY,
// LANGFUSE_SECRET_KEY and LANGFUSE_HOST from the environment.
func InitializeLangfuse(ctx context.Context, cfg *config.Config) *LangfuseClient {
	if !cfg.LangfuseEnabled || cfg.LangfuseSecretKey == "" {
		log.Println("⚠️  Langfuse not configured (LANGFUSE_ENABLED=false or LANGFUSE_SECRET_KEY not set)")
		return &LangfuseClient{enabled: false, ctx: ctx}
	}

	lf := langfuse.New(ctx)
	log.Printf("✅ Langfuse initialized (host: %s)", cfg.LangfuseHost)
	return &LangfuseClient{
		client:  lf,
		enabled: true,
		ctx:     ctx,
	}
}

// IsEnabled returns whether Langfuse is enabled
func (c *LangfuseClient) IsEnabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// StartTrace starts a new trace in Langfuse
func (c *LangfuseClient) StartTrace(ctx context.Context, name string, metadata map[string]interface{}) *Trace {
	if !c.IsEnabled() {
		return &Trace{enabled: false, ctx: ctx}
	}

	trace, err := c.client.Trace(&model.Trace{
		Name:     name,
		Metadata: metadata,
	})
	if err != nil {
		log.Printf("⚠️  Failed to create Langfuse trace: %v", err)
		return &Trace{enabled: false, ctx: ctx}
	}

	log.Printf("🔍 Langfuse: Created trace %s (name: %s)", trace.ID, name)
	return &Trace{
		trace:   trace,
		enabled: true,
		ctx:     ctx,
		client:  c.client,
	}
}

// WithTrace returns a context carrying trace, so calls made under it join the trace
func WithTrace(ctx context.Context, trace *Trace) context.Context {
	return context.WithValue(ctx, traceKey{}, trace)
}

// TraceFromContext returns the trace attached by WithTrace
func TraceFromContext(ctx context.Context) *Trace {
	trace, _ := ctx.Value(traceKey{}).(*Trace)
	return trace
}

// RecordCall implements llm.CallRecorder. Calls outside a run trace get their own trace.
func (c *LangfuseClient) RecordCall(ctx context.Context, info llm.CallInfo) {
	if !c.IsEnabled() {
		return
	}

	trace := TraceFromContext(ctx)
	standalone := trace == nil || !trace.enabled
	if standalone {
		trace = c.StartTrace(ctx, info.Provider+"."+info.Operation, nil)
	}

	gen := trace.Generation(info.Operation, map[string]interface{}{
		"provider": info.Provider,
	})
	gen.LogCall(info)
	gen.Finish()

	if standalone {
		trace.Finish()
	}
}

// OnTemplate implements pipeline.Observer
func (c *LangfuseClient) OnTemplate(ctx context.Context, _ string, result pipeline.Result) {
	trace := TraceFromContext(ctx)
	if !c.IsEnabled() || trace == nil {
		return
	}
	trace.Event("template."+result.Template, map[string]interface{}{
		"state":       string(result.State),
		"image_path":  result.ImagePath,
		"error":       result.ErrorMessage(),
		"duration_ms": result.Duration.Milliseconds(),
	})
}

// OnRun implements pipeline.Observer, flushing the run trace
func (c *LangfuseClient) OnRun(ctx context.Context, report *pipeline.Report) {
	trace := TraceFromContext(ctx)
	if !c.IsEnabled() || trace == nil {
		return
	}
	trace.SetMetadata(map[string]interface{}{
		"run_id": report.RunID,
		"title":  report.Title,
		"saved":  report.Saved,
		"failed": report.Failed,
	})
	trace.Finish()
}

// Trace represents a Langfuse trace
type Trace struct {
	trace   *model.Trace
	enabled bool
	ctx     context.Context
	client  *langfuse.Langfuse
}

// ID returns the Langfuse trace id, or empty when disabled
func (t *Trace) ID() string {
	if !t.enabled || t.trace == nil {
		return ""
	}
	return t.trace.ID
}

// Generation creates a new generation span within the trace
func (t *Trace) Generation(name string, metadata map[string]interface{}) *Generation {
	if !t.enabled {
		return &Generation{enabled: false, ctx: t.ctx}
	}

	now := time.Now()
	gen, err := t.client.Generation(&model.Generation{
		TraceID:   t.trace.ID,
		Name:      name,
		StartTime: &now,
		Metadata:  metadata,
	}, nil)
	if err != nil {
		log.Printf("⚠️  Failed to create Langfuse generation: %v", err)
		return &Generation{enabled: false, ctx: t.ctx}
	}

	return &Generation{
		generation: gen,
		enabled:    true,
		ctx:        t.ctx,
		client:     t.client,
	}
}

// Event records a point-in-time event on the trace
func (t *Trace) Event(name string, metadata map[string]interface{}) {
	if !t.enabled {
		return
	}
	now := time.Now()
	if _, err := t.client.Event(&model.Event{
		TraceID:   t.trace.ID,
		Name:      name,
		StartTime: &now,
		Metadata:  metadata,
	}, nil); err != nil {
		log.Printf("⚠️  Failed to create Langfuse event: %v", err)
	}
}

// SetMetadata replaces the trace metadata
func (t *Trace) SetMetadata(metadata map[string]interface{}) {
	if !t.enabled || t.trace == nil {
		return
	}
	t.trace.Metadata = metadata
	if _, err := t.client.Trace(t.trace); err != nil {
		log.Printf("⚠️  Failed to update Langfuse trace: %v", err)
	}
}

// Finish flushes queued events to Langfuse
func (t *Trace) Finish() {
	if t.enabled && t.client != nil {
		t.client.Flush(t.ctx)
		log.Printf("🔍 Langfuse: Flush completed for trace %s", t.ID())
	}
}

// Generation represents a Langfuse generation span
type Generation struct {
	generation *model.Generation
	enabled    bool
	ctx        context.Context
	client     *langfuse.Langfuse
}

// LogCall copies prompt, output, usage and cost from a finished call
func (g *Generation) LogCall(info llm.CallInfo) {
	if !g.enabled || g.generation == nil {
		return
	}

	cost := CalculateCost(info.Model, info.Usage)
	g.generation.Model = info.Model
	g.generation.Input = info.Prompt
	if info.Output != "" {
		g.generation.Output = info.Output
	}
	g.generation.Usage = model.Usage{
		Input:     info.Usage.InputTokens,
		Output:    info.Usage.OutputTokens,
		Total:     info.Usage.TotalTokens,
		Unit:      model.ModelUsageUnitTokens,
		TotalCost: cost,
	}

	metadata := map[string]interface{}{
		"cost_usd":    cost,
		"duration_ms": info.Duration.Milliseconds(),
	}
	if info.Err != nil {
		metadata["error"] = info.Err.Error()
		g.generation.Level = model.ObservationLevel(levelError)
	}
	g.Metadata(metadata)
}

// Metadata adds metadata to the generation
func (g *Generation) Metadata(metadata map[string]interface{}) {
	if !g.enabled || g.generation == nil {
		return
	}
	if md, ok := g.generation.Metadata.(map[string]interface{}); ok {
		for k, v := range metadata {
			md[k] = v
		}
		return
	}
	g.generation.Metadata = metadata
}

// Finish completes the generation and sends it to Langfuse
func (g *Generation) Finish() {
	if g.enabled && g.generation != nil && g.client != nil {
		now := time.Now()
		g.generation.EndTime = &now
		if _, err := g.client.GenerationEnd(g.generation); err != nil {
			log.Printf("⚠️  Failed to end Langfuse generation: %v", err)
		}
	}
}
