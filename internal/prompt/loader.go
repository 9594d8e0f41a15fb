package prompt

import (
	"strings"

	"github.com/Conceptual-Machines/scoreviz/pkg/embedded"
)

// Loader serves the prompt texts embedded in the binary
type Loader struct{}

func NewPromptLoader() *Loader {
	return &Loader{}
}

// GetFeatureExtractionPrompt loads the constrained musicologist prompt used for extraction
func (l *Loader) GetFeatureExtractionPrompt() (string, error) {
	return strings.TrimSpace(string(embedded.FeatureExtractionPromptTxt)), nil
}

// GetNarrationPreamble loads the narration preamble format (title, word limit)
func (l *Loader) GetNarrationPreamble() (string, error) {
	return strings.TrimSpace(string(embedded.NarrationPreambleTxt)), nil
}

// GetConsistencyDisclaimer loads the note printed once after a run
func (l *Loader) GetConsistencyDisclaimer() (string, error) {
	return strings.TrimSpace(string(embedded.ConsistencyDisclaimerTxt)), nil
}
