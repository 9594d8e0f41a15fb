package llm

import (
	"context"
	"fmt"
	"strings"
)

// ProviderFactory creates providers based on model name or explicit provider choice
type ProviderFactory struct {
	openaiAPIKey string
	geminiAPIKey string
	recorder     CallRecorder
}

// NewProviderFactory creates a new provider factory. recorder may be nil.
func NewProviderFactory(openaiAPIKey, geminiAPIKey string, recorder CallRecorder) *ProviderFactory {
	return &ProviderFactory{
		openaiAPIKey: openaiAPIKey,
		geminiAPIKey: geminiAPIKey,
		recorder:     recorder,
	}
}

// GetProvider returns a text provider for the given model/provider name
func (f *ProviderFactory) GetProvider(ctx context.Context, model, providerName string) (Provider, error) {
	// If provider is explicitly specified, use that
	if providerName != "" {
		return f.getProviderByName(ctx, model, providerName)
	}

	// Otherwise, infer from model name
	return f.getProviderByModel(ctx, model)
}

// Gemini returns the Gemini provider used for extraction and images
func (f *ProviderFactory) Gemini(ctx context.Context, textModel, imageModel string) (*GeminiProvider, error) {
	if f.geminiAPIKey == "" {
		return nil, fmt.Errorf("gemini API key not configured")
	}
	return NewGeminiProvider(ctx, f.geminiAPIKey,
		WithTextModel(textModel),
		WithImageModel(imageModel),
		WithGeminiRecorder(f.recorder),
	)
}

// getProviderByName creates a provider by explicit name
func (f *ProviderFactory) getProviderByName(ctx context.Context, model, providerName string) (Provider, error) {
	switch strings.ToLower(providerName) {
	case providerNameOpenAI:
		return f.openAI(model)
	case providerNameGemini:
		return f.Gemini(ctx, model, "")
	default:
		return nil, fmt.Errorf("unknown provider: %s (allowed: openai, gemini)", providerName)
	}
}

// getProviderByModel infers provider from model name
func (f *ProviderFactory) getProviderByModel(ctx context.Context, model string) (Provider, error) {
	modelLower := strings.ToLower(model)

	// GPT and o-series models use OpenAI
	if strings.HasPrefix(modelLower, "gpt-") || strings.HasPrefix(modelLower, "o1") || strings.HasPrefix(modelLower, "o3") {
		return f.openAI(model)
	}

	// Default to Gemini for everything else
	return f.Gemini(ctx, model, "")
}

func (f *ProviderFactory) openAI(model string) (Provider, error) {
	if f.openaiAPIKey == "" {
		return nil, fmt.Errorf("openai API key not configured")
	}
	return NewOpenAIProvider(f.openaiAPIKey, WithOpenAIModel(model), WithOpenAIRecorder(f.recorder)), nil
}
