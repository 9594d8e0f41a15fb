package metrics

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/Conceptual-Machines/scoreviz/internal/llm"
	"github.com/Conceptual-Machines/scoreviz/internal/pipeline"
)

const (
	namespace                = "ScoreViz/Pipeline"
	httpStatusServerError    = 500
	cloudwatchTimeoutSeconds = 5
)

type metricPutter interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Client wraps CloudWatch client for custom metrics
type Client struct {
	client      metricPutter
	enabled     bool
	environment string
	pending     sync.WaitGroup
}

// NewClient creates a new CloudWatch metrics client
func NewClient(ctx context.Context, environment string, enabled bool) (*Client, error) {
	if !enabled {
		log.Printf("📊 CloudWatch Metrics: DISABLED (environment: %s)", environment)
		return &Client{
			enabled:     false,
			environment: environment,
		}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		log.Printf("⚠️  Failed to load AWS config for CloudWatch: %v", err)
		return &Client{enabled: false, environment: environment}, nil
	}

	log.Printf("📊 CloudWatch Metrics: ✅ ENABLED (namespace: %s)", namespace)
	return newClient(cloudwatch.NewFromConfig(cfg), environment), nil
}

func newClient(client metricPutter, environment string) *Client {
	return &Client{
		client:      client,
		enabled:     true,
		environment: environment,
	}
}

// Enabled reports whether metrics are being published
func (m *Client) Enabled() bool {
	return m.enabled
}

// Wait blocks until in-flight metric writes finish
func (m *Client) Wait() {
	m.pending.Wait()
}

// RecordAPIRequest records an API request metric
func (m *Client) RecordAPIRequest(endpoint string, statusCode int, duration time.Duration) {
	metricName := "APIRequests"
	if statusCode >= httpStatusServerError {
		metricName = "APIErrors"
	}

	dimensions := m.dimensions("Endpoint", endpoint)
	m.async(func(ctx context.Context) {
		m.putLogged(ctx, metricName, 1, types.StandardUnitCount, dimensions)
		m.putLogged(ctx, "APILatency", float64(duration.Milliseconds()), types.StandardUnitMilliseconds, dimensions)
	})
}

// RecordTokenUsage records model token usage
func (m *Client) RecordTokenUsage(model string, usage llm.Usage) {
	dimensions := m.dimensions("Model", model)
	m.async(func(ctx context.Context) {
		m.putLogged(ctx, "ModelTokens/Total", float64(usage.TotalTokens), types.StandardUnitCount, dimensions)
		m.putLogged(ctx, "ModelTokens/Input", float64(usage.InputTokens), types.StandardUnitCount, dimensions)
		m.putLogged(ctx, "ModelTokens/Output", float64(usage.OutputTokens), types.StandardUnitCount, dimensions)
	})
}

// RecordTemplateOutcome records one finished template
func (m *Client) RecordTemplateOutcome(template string, state pipeline.State, duration time.Duration) {
	dimensions := append(m.dimensions("Template", template), types.Dimension{
		Name:  aws.String("State"),
		Value: aws.String(string(state)),
	})
	m.async(func(ctx context.Context) {
		m.putLogged(ctx, "TemplateOutcomes", 1, types.StandardUnitCount, dimensions)
		m.putLogged(ctx, "TemplateDuration", float64(duration.Milliseconds()), types.StandardUnitMilliseconds, dimensions)
	})
}

// RecordRun records totals for a finished run
func (m *Client) RecordRun(saved, failed int, duration time.Duration) {
	dimensions := m.dimensions("", "")
	m.async(func(ctx context.Context) {
		m.putLogged(ctx, "ImagesSaved", float64(saved), types.StandardUnitCount, dimensions)
		m.putLogged(ctx, "TemplatesFailed", float64(failed), types.StandardUnitCount, dimensions)
		m.putLogged(ctx, "RunDuration", float64(duration.Milliseconds()), types.StandardUnitMilliseconds, dimensions)
	})
}

// OnTemplate implements pipeline.Observer
func (m *Client) OnTemplate(_ context.Context, _ string, result pipeline.Result) {
	m.RecordTemplateOutcome(result.Template, result.State, result.Duration)
}

// OnRun implements pipeline.Observer
func (m *Client) OnRun(_ context.Context, report *pipeline.Report) {
	m.RecordRun(report.Saved, report.Failed, report.Duration)
}

// RecordCall implements llm.CallRecorder
func (m *Client) RecordCall(_ context.Context, info llm.CallInfo) {
	if info.Err != nil || info.Usage.TotalTokens == 0 {
		return
	}
	m.RecordTokenUsage(info.Model, info.Usage)
}

func (m *Client) dimensions(name, value string) []types.Dimension {
	dims := []types.Dimension{{
		Name:  aws.String("Environment"),
		Value: aws.String(m.environment),
	}}
	if name != "" {
		dims = append([]types.Dimension{{Name: aws.String(name), Value: aws.String(value)}}, dims...)
	}
	return dims
}

func (m *Client) async(fn func(ctx context.Context)) {
	if !m.enabled {
		return
	}
	m.pending.Add(1)
	go func() {
		defer m.pending.Done()
		fn(context.Background())
	}()
}

func (m *Client) putLogged(ctx context.Context, metricName string, value float64, unit types.StandardUnit, dimensions []types.Dimension) {
	if err := m.putMetric(ctx, metricName, value, unit, dimensions); err != nil {
		log.Printf("Failed to record %s metric: %v", metricName, err)
	}
}

// putMetric sends a metric to CloudWatch
func (m *Client) putMetric(
	ctx context.Context,
	metricName string,
	value float64,
	unit types.StandardUnit,
	dimensions []types.Dimension,
) error {
	if !m.enabled || m.client == nil {
		return nil
	}

	// Create context with timeout for CloudWatch call
	timeout := time.Duration(cloudwatchTimeoutSeconds) * time.Second
	cwCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := m.client.PutMetricData(cwCtx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String(metricName),
				Value:      aws.Float64(value),
				Unit:       unit,
				Timestamp:  aws.Time(time.Now()),
				Dimensions: dimensions,
			},
		},
	})

	return err
}
