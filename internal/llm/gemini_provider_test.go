package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestGeminiProvider_Name(t *testing.T) {
	// We can't create a real client without an API key
	// So just test the name method with a nil client
	provider := &GeminiProvider{client: nil}
	assert.Equal(t, "gemini", provider.Name())
}

func TestGeminiProvider_BuildContents(t *testing.T) {
	tests := []struct {
		name      string
		file      *UploadedFile
		wantParts int
	}{
		{name: "prompt only", wantParts: 1},
		{name: "file before prompt", file: &UploadedFile{URI: "files/abc", MIMEType: "application/pdf"}, wantParts: 2},
		{name: "file without uri ignored", file: &UploadedFile{Name: "files/abc"}, wantParts: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contents := buildGeminiContents("analyze", tt.file)
			require.Len(t, contents, 1)
			assert.Equal(t, "user", contents[0].Role)
			require.Len(t, contents[0].Parts, tt.wantParts)

			last := contents[0].Parts[len(contents[0].Parts)-1]
			assert.Equal(t, "analyze", last.Text)
			if tt.wantParts == 2 {
				require.NotNil(t, contents[0].Parts[0].FileData)
				assert.Equal(t, "files/abc", contents[0].Parts[0].FileData.FileURI)
				assert.Equal(t, "application/pdf", contents[0].Parts[0].FileData.MIMEType)
			}
		})
	}
}

func TestPartsFromResponse(t *testing.T) {
	tests := []struct {
		name   string
		result *genai.GenerateContentResponse
		want   []Part
	}{
		{name: "nil response", result: nil, want: nil},
		{name: "no candidates", result: &genai.GenerateContentResponse{}, want: nil},
		{
			name: "candidate without content",
			result: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{}},
			},
			want: nil,
		},
		{
			name: "text and image in order",
			result: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{
					Content: &genai.Content{Parts: []*genai.Part{
						{Text: "here you go"},
						nil,
						{InlineData: &genai.Blob{Data: []byte("PNGDATA"), MIMEType: "image/png"}},
						{InlineData: &genai.Blob{MIMEType: "image/png"}},
					}},
				}},
			},
			want: []Part{
				{Text: "here you go"},
				{Data: []byte("PNGDATA"), MIMEType: "image/png"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := partsFromResponse(tt.result)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUsageFromGemini(t *testing.T) {
	assert.Equal(t, Usage{}, usageFromGemini(nil))
	assert.Equal(t, Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}, usageFromGemini(&genai.GenerateContentResponseUsageMetadata{
		PromptTokenCount:     10,
		CandidatesTokenCount: 5,
		TotalTokenCount:      15,
	}))
}

func TestGeminiOptions(t *testing.T) {
	recorder := &recordingRecorder{}
	p := &GeminiProvider{textModel: DefaultGeminiTextModel, imageModel: DefaultGeminiImageModel}

	WithTextModel("gemini-2.5-pro")(p)
	WithImageModel("")(p)
	WithGeminiRecorder(recorder)(p)

	assert.Equal(t, "gemini-2.5-pro", p.TextModel())
	assert.Equal(t, DefaultGeminiImageModel, p.ImageModel())
	assert.Same(t, recorder, p.recorder)
}

func TestNewGeminiProvider_InvalidKey(t *testing.T) {
	ctx := context.Background()
	provider, err := NewGeminiProvider(ctx, "invalid-key")

	// This might succeed (client creation) or fail depending on SDK validation
	// The important thing is we can create the provider object
	if err != nil {
		assert.Error(t, err)
	} else {
		assert.NotNil(t, provider)
		assert.Equal(t, "gemini", provider.Name())
		assert.Equal(t, DefaultGeminiTextModel, provider.TextModel())
	}
}
