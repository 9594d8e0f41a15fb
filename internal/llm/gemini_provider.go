package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"google.golang.org/genai"
)

const (
	providerNameGemini = "gemini"
	mimeTypeJSON       = "application/json"
	geminiUserRole     = "user"

	// DefaultGeminiTextModel is used for extraction and narration
	DefaultGeminiTextModel = "gemini-2.5-flash"
	// DefaultGeminiImageModel is used for visualization images
	DefaultGeminiImageModel = "gemini-2.0-flash-exp-image-generation"
)

// GeminiProvider talks to Google's Gemini API for text, images, files and structured JSON
type GeminiProvider struct {
	client     *genai.Client
	textModel  string
	imageModel string
	recorder   CallRecorder
}

// GeminiOption configures a GeminiProvider
type GeminiOption func(*GeminiProvider)

// WithTextModel sets the model used by GenerateText
func WithTextModel(model string) GeminiOption {
	return func(p *GeminiProvider) {
		if model != "" {
			p.textModel = model
		}
	}
}

// WithImageModel sets the model used by GenerateMultimodal
func WithImageModel(model string) GeminiOption {
	return func(p *GeminiProvider) {
		if model != "" {
			p.imageModel = model
		}
	}
}

// WithGeminiRecorder attaches a call recorder
func WithGeminiRecorder(recorder CallRecorder) GeminiOption {
	return func(p *GeminiProvider) {
		p.recorder = recorder
	}
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(ctx context.Context, apiKey string, opts ...GeminiOption) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	p := &GeminiProvider{
		client:     client,
		textModel:  DefaultGeminiTextModel,
		imageModel: DefaultGeminiImageModel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return providerNameGemini
}

// TextModel returns the model used for plain text calls
func (p *GeminiProvider) TextModel() string {
	return p.textModel
}

// ImageModel returns the model used for multimodal calls
func (p *GeminiProvider) ImageModel() string {
	return p.imageModel
}

// GenerateText sends a single prompt and returns the trimmed response text
func (p *GeminiProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	transaction := p.startTransaction(ctx, "gemini.generate_text", p.textModel)
	defer transaction.Finish()

	startTime := time.Now()
	result, err := p.call(ctx, transaction, p.textModel, buildGeminiContents(prompt, nil), nil)
	info := CallInfo{
		Provider:  providerNameGemini,
		Model:     p.textModel,
		Operation: OperationText,
		Prompt:    prompt,
		Duration:  time.Since(startTime),
		Err:       err,
	}
	if err != nil {
		recordCall(ctx, p.recorder, info)
		return "", err
	}

	text := strings.TrimSpace(result.Text())
	info.Output = text
	info.Usage = usageFromGemini(result.UsageMetadata)
	if text == "" {
		info.Err = fmt.Errorf("gemini response did not include any output text")
		recordCall(ctx, p.recorder, info)
		transaction.SetTag("success", "false")
		return "", info.Err
	}

	recordCall(ctx, p.recorder, info)
	transaction.SetTag("success", "true")
	return text, nil
}

// GenerateMultimodal requests the given modalities and returns every response part
func (p *GeminiProvider) GenerateMultimodal(ctx context.Context, prompt string, modalities Modalities) ([]Part, error) {
	transaction := p.startTransaction(ctx, "gemini.generate_multimodal", p.imageModel)
	defer transaction.Finish()

	config := &genai.GenerateContentConfig{
		ResponseModalities: modalities.List(),
	}

	startTime := time.Now()
	result, err := p.call(ctx, transaction, p.imageModel, buildGeminiContents(prompt, nil), config)
	info := CallInfo{
		Provider:  providerNameGemini,
		Model:     p.imageModel,
		Operation: OperationMultimodal,
		Prompt:    prompt,
		Duration:  time.Since(startTime),
		Err:       err,
	}
	if err != nil {
		recordCall(ctx, p.recorder, info)
		return nil, err
	}

	parts := partsFromResponse(result)
	info.Usage = usageFromGemini(result.UsageMetadata)
	for _, part := range parts {
		if part.Text != "" {
			info.Output += part.Text
		}
	}
	recordCall(ctx, p.recorder, info)

	log.Printf("📥 GEMINI MULTIMODAL RESPONSE: parts=%d", len(parts))
	transaction.SetTag("success", "true")
	return parts, nil
}

// GenerateJSON asks for a response constrained to JSON, optionally with a file and schema
func (p *GeminiProvider) GenerateJSON(ctx context.Context, request *StructuredRequest) (string, error) {
	model := request.Model
	if model == "" {
		model = p.textModel
	}

	transaction := p.startTransaction(ctx, "gemini.generate_json", model)
	defer transaction.Finish()

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: mimeTypeJSON,
	}
	if request.Schema != nil {
		config.ResponseSchema = convertSchemaToGemini(request.Schema.Schema)
	}

	startTime := time.Now()
	result, err := p.call(ctx, transaction, model, buildGeminiContents(request.Prompt, request.File), config)
	info := CallInfo{
		Provider:  providerNameGemini,
		Model:     model,
		Operation: OperationStructured,
		Prompt:    request.Prompt,
		Duration:  time.Since(startTime),
		Err:       err,
	}
	if err != nil {
		recordCall(ctx, p.recorder, info)
		return "", err
	}

	text := strings.TrimSpace(result.Text())
	info.Output = text
	info.Usage = usageFromGemini(result.UsageMetadata)
	recordCall(ctx, p.recorder, info)

	if text == "" {
		transaction.SetTag("success", "false")
		return "", fmt.Errorf("gemini response did not include any output text")
	}

	transaction.SetTag("success", "true")
	return text, nil
}

// UploadFile sends a local file to the Gemini Files API
func (p *GeminiProvider) UploadFile(ctx context.Context, path, mimeType string) (*UploadedFile, error) {
	span := sentry.StartSpan(ctx, "gemini.upload_file")
	defer span.Finish()

	startTime := time.Now()
	file, err := p.client.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{MIMEType: mimeType})
	recordCall(ctx, p.recorder, CallInfo{
		Provider:  providerNameGemini,
		Operation: OperationUpload,
		Prompt:    path,
		Duration:  time.Since(startTime),
		Err:       err,
	})
	if err != nil {
		log.Printf("❌ GEMINI FILE UPLOAD FAILED: %v", err)
		span.Status = sentry.SpanStatusInternalError
		sentry.CaptureException(err)
		return nil, fmt.Errorf("gemini file upload failed: %w", err)
	}

	span.Status = sentry.SpanStatusOK
	uploaded := &UploadedFile{
		Name:     file.Name,
		URI:      file.URI,
		MIMEType: file.MIMEType,
	}
	if uploaded.MIMEType == "" {
		uploaded.MIMEType = mimeType
	}
	return uploaded, nil
}

func (p *GeminiProvider) startTransaction(ctx context.Context, name, model string) *sentry.Span {
	transaction := sentry.StartTransaction(ctx, name)
	transaction.SetTag("model", model)
	transaction.SetTag("provider", providerNameGemini)
	return transaction
}

// call performs the API request with a child span and shared error handling
func (p *GeminiProvider) call(
	ctx context.Context,
	transaction *sentry.Span,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	log.Printf("🚨 GEMINI: About to call Gemini API with model='%s'", model)

	span := transaction.StartChild("gemini.api_call")
	apiStartTime := time.Now()
	result, err := p.client.Models.GenerateContent(ctx, model, contents, config)
	apiDuration := time.Since(apiStartTime)
	span.Finish()

	if err != nil {
		log.Printf("❌ GEMINI REQUEST FAILED after %v: %v", apiDuration, err)
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	log.Printf("⏱️  GEMINI API CALL COMPLETED in %v", apiDuration)
	logGeminiUsage(result.UsageMetadata)
	return result, nil
}

// buildGeminiContents wraps a prompt, preceded by an optional file reference, as one user turn
func buildGeminiContents(prompt string, file *UploadedFile) []*genai.Content {
	var parts []*genai.Part
	if file != nil && file.URI != "" {
		parts = append(parts, &genai.Part{
			FileData: &genai.FileData{FileURI: file.URI, MIMEType: file.MIMEType},
		})
	}
	parts = append(parts, &genai.Part{Text: prompt})

	return []*genai.Content{{
		Role:  geminiUserRole,
		Parts: parts,
	}}
}

// partsFromResponse flattens the first candidate into Parts
func partsFromResponse(result *genai.GenerateContentResponse) []Part {
	if result == nil || len(result.Candidates) == 0 {
		return nil
	}
	candidate := result.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return nil
	}

	parts := make([]Part, 0, len(candidate.Content.Parts))
	for _, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		switch {
		case part.InlineData != nil && len(part.InlineData.Data) > 0:
			parts = append(parts, Part{Data: part.InlineData.Data, MIMEType: part.InlineData.MIMEType})
		case part.Text != "":
			parts = append(parts, Part{Text: part.Text})
		}
	}
	return parts
}

func usageFromGemini(meta *genai.GenerateContentResponseUsageMetadata) Usage {
	if meta == nil {
		return Usage{}
	}
	return Usage{
		InputTokens:  int(meta.PromptTokenCount),
		OutputTokens: int(meta.CandidatesTokenCount),
		TotalTokens:  int(meta.TotalTokenCount),
	}
}

func logGeminiUsage(meta *genai.GenerateContentResponseUsageMetadata) {
	if meta == nil {
		return
	}
	log.Printf("📊 GEMINI USAGE: input=%d, output=%d, total=%d",
		meta.PromptTokenCount,
		meta.CandidatesTokenCount,
		meta.TotalTokenCount)
}
