package prompt

import (
	"strings"
	"testing"
)

func TestNewPromptLoader(t *testing.T) {
	loader := NewPromptLoader()
	if loader == nil {
		t.Fatal("NewPromptLoader() returned nil")
	}
}

func TestGetFeatureExtractionPrompt(t *testing.T) {
	loader := NewPromptLoader()
	content, err := loader.GetFeatureExtractionPrompt()

	if err != nil {
		t.Fatalf("GetFeatureExtractionPrompt() returned error: %v", err)
	}

	if content == "" {
		t.Error("GetFeatureExtractionPrompt() returned empty string")
	}

	// The model must be asked for the keys the summary reads
	for _, key := range []string{"initial_tempo", "initial_dynamics", "repeating_motifs"} {
		if !strings.Contains(content, key) {
			t.Errorf("GetFeatureExtractionPrompt() does not mention %q", key)
		}
	}

	// Ensure no excessive whitespace
	if strings.HasPrefix(content, "\n") || strings.HasSuffix(content, "\n") {
		t.Error("GetFeatureExtractionPrompt() was not trimmed")
	}
}

func TestGetNarrationPreamble(t *testing.T) {
	loader := NewPromptLoader()
	content, err := loader.GetNarrationPreamble()

	if err != nil {
		t.Fatalf("GetNarrationPreamble() returned error: %v", err)
	}

	if strings.Count(content, "%s") != 1 || strings.Count(content, "%d") != 1 {
		t.Error("GetNarrationPreamble() must hold exactly one title and one word-limit verb")
	}

	if !strings.Contains(content, "STRUCTURAL MAPPING") {
		t.Error("GetNarrationPreamble() does not contain structural mapping instruction")
	}
}

func TestGetConsistencyDisclaimer(t *testing.T) {
	loader := NewPromptLoader()
	content, err := loader.GetConsistencyDisclaimer()

	if err != nil {
		t.Fatalf("GetConsistencyDisclaimer() returned error: %v", err)
	}

	if !strings.Contains(content, "VISUALIZATION CONSISTENCY NOTE") {
		t.Error("GetConsistencyDisclaimer() does not contain the note heading")
	}
}
