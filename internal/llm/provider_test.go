package llm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// MockProvider is a test implementation of the Provider interface
type MockProvider struct {
	name         string
	generateFunc func(ctx context.Context, prompt string) (string, error)
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	if m.generateFunc != nil {
		return m.generateFunc(ctx, prompt)
	}
	return "", nil
}

type recordingRecorder struct {
	mu    sync.Mutex
	calls []CallInfo
}

func (r *recordingRecorder) RecordCall(_ context.Context, info CallInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, info)
}

func TestProviderInterface(t *testing.T) {
	var p Provider = &MockProvider{name: "mock"}
	assert.Equal(t, "mock", p.Name())

	var _ Provider = (*GeminiProvider)(nil)
	var _ Provider = (*OpenAIProvider)(nil)
	var _ MultimodalGenerator = (*GeminiProvider)(nil)
	var _ FileUploader = (*GeminiProvider)(nil)
	var _ StructuredGenerator = (*GeminiProvider)(nil)
}

func TestMockProviderGenerate(t *testing.T) {
	callCount := 0
	mock := &MockProvider{
		name: "test",
		generateFunc: func(_ context.Context, prompt string) (string, error) {
			callCount++
			require.Equal(t, "hello", prompt)
			return "narration", nil
		},
	}

	out, err := mock.GenerateText(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "narration", out)
	assert.Equal(t, 1, callCount)
}

func TestModalitiesList(t *testing.T) {
	tests := []struct {
		name       string
		modalities Modalities
		want       []string
	}{
		{name: "none", modalities: Modalities{}, want: nil},
		{name: "image only", modalities: Modalities{Image: true}, want: []string{"IMAGE"}},
		{name: "image and text", modalities: Modalities{Image: true, Text: true}, want: []string{"IMAGE", "TEXT"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.modalities.List())
		})
	}
}

func TestFirstData(t *testing.T) {
	parts := []Part{
		{Text: "caption"},
		{Data: []byte("one"), MIMEType: "image/png"},
		{Data: []byte("two"), MIMEType: "image/jpeg"},
	}

	got, ok := FirstData(parts)
	require.True(t, ok)
	assert.Equal(t, []byte("one"), got.Data)

	_, ok = FirstData([]Part{{Text: "only text"}})
	assert.False(t, ok)

	_, ok = FirstData(nil)
	assert.False(t, ok)
}

func TestRecordCall_NilRecorder(t *testing.T) {
	assert.NotPanics(t, func() {
		recordCall(context.Background(), nil, CallInfo{})
	})

	r := &recordingRecorder{}
	recordCall(context.Background(), r, CallInfo{Operation: OperationText, Err: errors.New("boom")})
	require.Len(t, r.calls, 1)
	assert.Equal(t, OperationText, r.calls[0].Operation)
}

func TestProviderFactory(t *testing.T) {
	ctx := context.Background()

	t.Run("gpt model requires openai key", func(t *testing.T) {
		f := NewProviderFactory("", "gemini-key", nil)
		_, err := f.GetProvider(ctx, "gpt-4.1-mini", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "openai API key not configured")
	})

	t.Run("gpt model selects openai", func(t *testing.T) {
		f := NewProviderFactory("openai-key", "", nil)
		p, err := f.GetProvider(ctx, "gpt-4.1-mini", "")
		require.NoError(t, err)
		assert.Equal(t, "openai", p.Name())
	})

	t.Run("other models require gemini key", func(t *testing.T) {
		f := NewProviderFactory("openai-key", "", nil)
		_, err := f.GetProvider(ctx, "gemini-2.5-flash", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "gemini API key not configured")
	})

	t.Run("unknown provider name", func(t *testing.T) {
		f := NewProviderFactory("k", "k", nil)
		_, err := f.GetProvider(ctx, "", "anthropic")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown provider")
	})

	t.Run("explicit openai", func(t *testing.T) {
		f := NewProviderFactory("k", "", nil)
		p, err := f.GetProvider(ctx, "", "OpenAI")
		require.NoError(t, err)
		assert.Equal(t, "openai", p.Name())
	})
}

func TestGetFeatureRecordSchema(t *testing.T) {
	schema := GetFeatureRecordSchema()
	assert.Equal(t, "object", schema["type"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range featureRecordPropertyOrder {
		assert.Contains(t, props, key)
	}
	assert.Contains(t, schema["required"], "repeating_motifs")
}

func TestConvertSchemaToGemini(t *testing.T) {
	assert.Nil(t, convertSchemaToGemini(nil))

	converted := convertSchemaToGemini(GetFeatureRecordSchema())
	require.NotNil(t, converted)
	assert.Equal(t, genai.TypeObject, converted.Type)
	assert.Equal(t, featureRecordPropertyOrder, converted.PropertyOrdering)
	assert.Contains(t, converted.Required, "title")

	tempo := converted.Properties["initial_tempo"]
	require.NotNil(t, tempo)
	assert.Equal(t, genai.TypeObject, tempo.Type)
	assert.Equal(t, genai.TypeInteger, tempo.Properties["bpm"].Type)

	motifs := converted.Properties["repeating_motifs"]
	require.NotNil(t, motifs)
	assert.Equal(t, genai.TypeArray, motifs.Type)
	require.NotNil(t, motifs.Items)
	assert.Equal(t, genai.TypeString, motifs.Items.Properties["description"].Type)
}

func TestConvertSchemaToGemini_Keywords(t *testing.T) {
	converted := convertSchemaToGemini(map[string]any{
		"type":        "string",
		"description": "a level",
		"enum":        []any{"p", "mf", 3},
	})
	require.NotNil(t, converted)
	assert.Equal(t, genai.TypeString, converted.Type)
	assert.Equal(t, "a level", converted.Description)
	assert.Equal(t, []string{"p", "mf"}, converted.Enum)
	assert.Equal(t, genai.TypeUnspecified, geminiType("tuple"))
}

func TestRecorders(t *testing.T) {
	a, b := &recordingRecorder{}, &recordingRecorder{}
	var rec CallRecorder = Recorders{a, nil, b}

	rec.RecordCall(context.Background(), CallInfo{Model: "gemini-2.5-flash", Operation: OperationText})

	require.Len(t, a.calls, 1)
	require.Len(t, b.calls, 1)
	assert.Equal(t, OperationText, b.calls[0].Operation)
}
