package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

const (
	providerNameOpenAI = "openai"

	// DefaultOpenAITextModel is used when the OpenAI provider is chosen without a model
	DefaultOpenAITextModel = "gpt-4.1-mini"

	maxPreviewChars = 200
)

// OpenAIProvider implements TextGenerator using OpenAI's Responses API.
// It only serves narration; images and file analysis stay on Gemini.
type OpenAIProvider struct {
	client       *openai.Client
	model        string
	instructions string
	recorder     CallRecorder
}

// OpenAIOption configures an OpenAIProvider
type OpenAIOption func(*OpenAIProvider)

// WithOpenAIModel sets the model used by GenerateText
func WithOpenAIModel(model string) OpenAIOption {
	return func(p *OpenAIProvider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithInstructions sets the system instructions sent with each request
func WithInstructions(instructions string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.instructions = instructions
	}
}

// WithOpenAIRecorder attaches a call recorder
func WithOpenAIRecorder(recorder CallRecorder) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.recorder = recorder
	}
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) *OpenAIProvider {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	p := &OpenAIProvider{
		client: &client,
		model:  DefaultOpenAITextModel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return providerNameOpenAI
}

// Model returns the configured model
func (p *OpenAIProvider) Model() string {
	return p.model
}

// GenerateText sends a single user message and returns the trimmed output text
func (p *OpenAIProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	startTime := time.Now()
	log.Printf("🎵 OPENAI TEXT REQUEST STARTED (Model: %s)", p.model)

	transaction := sentry.StartTransaction(ctx, "openai.generate_text")
	defer transaction.Finish()
	transaction.SetTag("model", p.model)
	transaction.SetTag("provider", providerNameOpenAI)

	span := transaction.StartChild("openai.api_call")
	resp, err := p.client.Responses.New(ctx, p.buildRequestParams(prompt))
	span.Finish()

	info := CallInfo{
		Provider:  providerNameOpenAI,
		Model:     p.model,
		Operation: OperationText,
		Prompt:    prompt,
		Duration:  time.Since(startTime),
	}

	if err != nil {
		log.Printf("❌ OPENAI REQUEST FAILED after %v: %v", info.Duration, err)
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		info.Err = fmt.Errorf("openai request failed: %w", err)
		recordCall(ctx, p.recorder, info)
		return "", info.Err
	}

	text := strings.TrimSpace(resp.OutputText())
	info.Output = text
	info.Usage = Usage{
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
		TotalTokens:  int(resp.Usage.TotalTokens),
	}
	log.Printf("📊 USAGE: input=%d, output=%d, total=%d",
		resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.Usage.TotalTokens)

	if text == "" {
		info.Err = fmt.Errorf("openai response did not include any output text")
		recordCall(ctx, p.recorder, info)
		transaction.SetTag("success", "false")
		return "", info.Err
	}

	recordCall(ctx, p.recorder, info)
	log.Printf("✅ OPENAI TEXT REQUEST COMPLETED in %v: %s", info.Duration, truncateString(text, maxPreviewChars))
	transaction.SetTag("success", "true")
	return text, nil
}

func (p *OpenAIProvider) buildRequestParams(prompt string) responses.ResponseNewParams {
	params := responses.ResponseNewParams{
		Model: p.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(prompt, responses.EasyInputMessageRoleUser),
			},
		},
	}
	if p.instructions != "" {
		params.Instructions = openai.String(p.instructions)
	}
	return params
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
