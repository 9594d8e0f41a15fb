package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Conceptual-Machines/scoreviz/internal/llm"
	"github.com/Conceptual-Machines/scoreviz/internal/pipeline"
)

const (
	// HTTP status code threshold for considering a request successful
	successStatusCodeThreshold = http.StatusBadRequest
)

// SentryMetrics records pipeline and API performance as Sentry spans
type SentryMetrics struct {
	enabled bool
}

// NewSentryMetrics creates a new Sentry metrics client
func NewSentryMetrics(enabled bool) *SentryMetrics {
	return &SentryMetrics{enabled: enabled}
}

// RecordAPIRequest records API request metrics
func (m *SentryMetrics) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	if !m.enabled {
		return
	}

	span := sentry.StartSpan(ctx, "api.request")
	defer span.Finish()

	span.SetTag("endpoint", endpoint)
	span.SetTag("status_code", fmt.Sprintf("%d", statusCode))
	span.SetTag("success", fmt.Sprintf("%t", statusCode < successStatusCodeThreshold))
	span.SetData("duration_ms", duration.Milliseconds())
	span.SetData("status_code", statusCode)

	if statusCode < successStatusCodeThreshold {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusInternalError
	}
	span.Description = fmt.Sprintf("API Request: %s", endpoint)
}

// OnTemplate implements pipeline.Observer
func (m *SentryMetrics) OnTemplate(ctx context.Context, runID string, result pipeline.Result) {
	if !m.enabled {
		return
	}

	span := sentry.StartSpan(ctx, "pipeline.template")
	defer span.Finish()

	span.SetTag("template", result.Template)
	span.SetTag("state", string(result.State))
	span.SetTag("run_id", runID)
	span.SetData("duration_ms", result.Duration.Milliseconds())
	if result.FailedAt != "" {
		span.SetData("failed_at", string(result.FailedAt))
	}
	if result.NarrationErr != nil {
		span.SetData("narration_error", result.NarrationErr.Error())
	}

	if result.Saved() {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusInternalError
	}
	span.Description = fmt.Sprintf("Template: %s", result.Template)
}

// OnRun implements pipeline.Observer
func (m *SentryMetrics) OnRun(ctx context.Context, report *pipeline.Report) {
	if !m.enabled {
		return
	}

	if transaction := sentry.TransactionFromContext(ctx); transaction != nil {
		transaction.SetTag("run_id", report.RunID)
		transaction.SetData("saved", report.Saved)
		transaction.SetData("failed", report.Failed)
	}

	span := sentry.StartSpan(ctx, "pipeline.run")
	defer span.Finish()
	span.SetTag("run_id", report.RunID)
	span.SetData("templates", len(report.Results))
	span.SetData("saved", report.Saved)
	span.SetData("failed", report.Failed)
	span.SetData("duration_ms", report.Duration.Milliseconds())
	span.Status = sentry.SpanStatusOK
	span.Description = fmt.Sprintf("Run: %s", report.Title)
}

// RecordCall implements llm.CallRecorder, attaching token usage to the current transaction
func (m *SentryMetrics) RecordCall(ctx context.Context, info llm.CallInfo) {
	if !m.enabled {
		return
	}

	span := sentry.StartSpan(ctx, "model.token_usage")
	defer span.Finish()

	span.SetTag("model", info.Model)
	span.SetTag("operation", info.Operation)
	span.SetData("total_tokens", info.Usage.TotalTokens)
	span.SetData("input_tokens", info.Usage.InputTokens)
	span.SetData("output_tokens", info.Usage.OutputTokens)
	span.SetData("duration_ms", info.Duration.Milliseconds())

	if info.Err != nil {
		span.Status = sentry.SpanStatusInternalError
	} else {
		span.Status = sentry.SpanStatusOK
	}
	span.Description = fmt.Sprintf("Token Usage: %s", info.Model)
}
