package prompt

import (
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/scoreviz/internal/features"
	"github.com/Conceptual-Machines/scoreviz/internal/templates"
)

// DefaultMaxWords is the narration word ceiling used when none is configured
const DefaultMaxWords = 70

const (
	summaryHeader = "--- MUSIC SUMMARY ---"
	styleHeader   = "--- VISUALIZATION PROMPT STYLE ---"
)

// NarrationBuilder composes the narration prompt for one template
type NarrationBuilder struct {
	preamble string
	maxWords int
}

// NewNarrationBuilder creates a builder from the embedded preamble.
// maxWords <= 0 falls back to DefaultMaxWords.
func NewNarrationBuilder(loader *Loader, maxWords int) (*NarrationBuilder, error) {
	preamble, err := loader.GetNarrationPreamble()
	if err != nil {
		return nil, fmt.Errorf("load narration preamble: %w", err)
	}
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	return &NarrationBuilder{preamble: preamble, maxWords: maxWords}, nil
}

// MaxWords returns the configured word ceiling
func (b *NarrationBuilder) MaxWords() int {
	return b.maxWords
}

// Build returns the preamble, the summary block, and the template body with the
// feature payload redacted. The full payload is reserved for the image call.
func (b *NarrationBuilder) Build(s features.Summary, tmpl templates.Template) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(b.preamble, s.Title, b.maxWords))
	sb.WriteString("\n\n")
	sb.WriteString(SummaryBlock(s))
	sb.WriteString("\n\n")
	sb.WriteString(styleHeader)
	sb.WriteString("\n")
	sb.WriteString(strings.TrimSpace(tmpl.Redacted()))

	return sb.String()
}

// SummaryBlock renders the short music summary section of the narration prompt
func SummaryBlock(s features.Summary) string {
	lines := []string{
		summaryHeader,
		fmt.Sprintf("Style: %s Key, %s time.", s.KeySignature, s.TimeSignature),
		fmt.Sprintf("Start: %s (%s), %s (%s), %s texture.",
			s.TempoDescription, s.TempoTerm,
			s.DynamicsDescription, s.DynamicsLevel,
			s.Articulation),
		fmt.Sprintf("Highlight: %s", s.RhythmHighlight),
	}
	return strings.Join(lines, "\n")
}
