package llm

import (
	"context"
	"time"
)

// TextGenerator produces plain text for a single prompt (narration)
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// MultimodalGenerator produces a sequence of text and binary parts (image generation)
type MultimodalGenerator interface {
	GenerateMultimodal(ctx context.Context, prompt string, modalities Modalities) ([]Part, error)
}

// FileUploader stores a local file with the model service so prompts can reference it
type FileUploader interface {
	UploadFile(ctx context.Context, path, mimeType string) (*UploadedFile, error)
}

// StructuredGenerator returns raw JSON text constrained by a schema
type StructuredGenerator interface {
	GenerateJSON(ctx context.Context, request *StructuredRequest) (string, error)
}

// Provider is a named text-capable model backend
type Provider interface {
	TextGenerator

	// Name returns the provider name (e.g., "openai", "gemini")
	Name() string
}

// Modalities selects which kinds of output a multimodal call may return
type Modalities struct {
	Image bool
	Text  bool
}

// List returns the modality names understood by the Gemini API
func (m Modalities) List() []string {
	var out []string
	if m.Image {
		out = append(out, modalityImage)
	}
	if m.Text {
		out = append(out, modalityText)
	}
	return out
}

// Part is one piece of a multimodal response: text, or binary data with its MIME type
type Part struct {
	Text     string
	Data     []byte
	MIMEType string
}

// HasData reports whether the part carries an inline binary payload
func (p Part) HasData() bool {
	return len(p.Data) > 0
}

// FirstData returns the first part carrying binary data
func FirstData(parts []Part) (Part, bool) {
	for _, p := range parts {
		if p.HasData() {
			return p, true
		}
	}
	return Part{}, false
}

// UploadedFile references a file held by the model service
type UploadedFile struct {
	Name     string
	URI      string
	MIMEType string
}

// StructuredRequest contains the parameters of a constrained JSON call
type StructuredRequest struct {
	Model  string
	Prompt string
	// File is optional; when set it is sent before the prompt
	File *UploadedFile
	// Schema is optional; when nil only the JSON MIME type is enforced
	Schema *OutputSchema
}

// OutputSchema defines the expected JSON output structure
type OutputSchema struct {
	Name        string
	Description string
	Schema      map[string]any // JSON Schema object
}

// Usage is the token accounting reported by a provider
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// CallInfo describes one completed remote call, for tracing and metrics
type CallInfo struct {
	Provider  string
	Model     string
	Operation string
	Prompt    string
	Output    string
	Usage     Usage
	Duration  time.Duration
	Err       error
}

// CallRecorder receives a CallInfo after every remote call
type CallRecorder interface {
	RecordCall(ctx context.Context, info CallInfo)
}

// Operation names reported in CallInfo
const (
	OperationText       = "generate_text"
	OperationMultimodal = "generate_multimodal"
	OperationStructured = "generate_json"
	OperationUpload     = "upload_file"
)

const (
	modalityImage = "IMAGE"
	modalityText  = "TEXT"
)

func recordCall(ctx context.Context, recorder CallRecorder, info CallInfo) {
	if recorder == nil {
		return
	}
	recorder.RecordCall(ctx, info)
}

// Recorders fans a CallInfo out to several recorders, skipping nil entries
type Recorders []CallRecorder

func (r Recorders) RecordCall(ctx context.Context, info CallInfo) {
	for _, rec := range r {
		if rec != nil {
			rec.RecordCall(ctx, info)
		}
	}
}
