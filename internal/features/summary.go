package features

import (
	"fmt"
	"strings"
)

// Defaults used when a key is absent from the record
const (
	DefaultTitle               = "The Music"
	DefaultKeySignature        = "Neutral"
	DefaultTimeSignature       = "N/A"
	DefaultTempoDescription    = "A moderate pace"
	DefaultTempoTerm           = "Moderato"
	DefaultDynamicsDescription = "Quiet"
	DefaultDynamicsLevel       = "p"
	DefaultArticulation        = "smoothly"
	DefaultRhythmHighlight     = "A consistent, simple beat."
)

// Summary is the short, flat view of a record used for narration prompts
type Summary struct {
	Title               string `json:"title"`
	KeySignature        string `json:"key_signature"`
	TimeSignature       string `json:"time_signature"`
	TempoDescription    string `json:"tempo_description"`
	TempoTerm           string `json:"tempo_term"`
	DynamicsDescription string `json:"dynamics_description"`
	DynamicsLevel       string `json:"dynamics_level"`
	Articulation        string `json:"articulation"`
	RhythmHighlight     string `json:"rhythm_highlight"`
}

// Summarize extracts the narration summary. Missing keys resolve to defaults;
// a known key with the wrong shape returns ErrMalformedField.
func Summarize(r *Record) (Summary, error) {
	if r == nil {
		return Summary{}, fmt.Errorf("%w: record is nil", ErrMalformedField)
	}

	var (
		s   Summary
		err error
	)

	fields := []struct {
		dst  *string
		def  string
		path []string
	}{
		{&s.Title, DefaultTitle, []string{KeyTitle}},
		{&s.KeySignature, DefaultKeySignature, []string{KeyKeySignature}},
		{&s.TimeSignature, DefaultTimeSignature, []string{KeyTimeSignature}},
		{&s.TempoDescription, DefaultTempoDescription, []string{KeyInitialTempo, "description"}},
		{&s.TempoTerm, DefaultTempoTerm, []string{KeyInitialTempo, "term"}},
		{&s.DynamicsDescription, DefaultDynamicsDescription, []string{KeyInitialDynamics, "description"}},
		{&s.DynamicsLevel, DefaultDynamicsLevel, []string{KeyInitialDynamics, "level"}},
		{&s.Articulation, DefaultArticulation, []string{KeyInitialDynamics, "articulation"}},
	}
	for _, f := range fields {
		if *f.dst, err = r.stringAt(f.def, f.path...); err != nil {
			return Summary{}, err
		}
	}

	// the term is sometimes returned already wrapped, e.g. "(Adagio)"
	s.TempoTerm = strings.Trim(strings.TrimSpace(s.TempoTerm), "()")
	if s.TempoTerm == "" {
		s.TempoTerm = DefaultTempoTerm
	}

	motif, err := r.firstObject(KeyRepeatingMotifs)
	if err != nil {
		return Summary{}, err
	}
	s.RhythmHighlight, err = FromMap(motif).stringAt(DefaultRhythmHighlight, "description")
	if err != nil {
		return Summary{}, fmt.Errorf("%w (in %s[0])", err, KeyRepeatingMotifs)
	}

	return s, nil
}

// Title returns the record title or its default, ignoring shape errors
func (r *Record) Title() string {
	title, err := r.stringAt(DefaultTitle, KeyTitle)
	if err != nil {
		return DefaultTitle
	}
	return title
}
