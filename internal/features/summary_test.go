package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *Record {
	t.Helper()
	rec, err := Parse([]byte(raw))
	require.NoError(t, err)
	return rec
}

func TestSummarize_Full(t *testing.T) {
	rec := mustParse(t, `{"title":"Test Sonata","key_signature":"C Major","time_signature":"4/4",
		"initial_tempo":{"description":"slow","term":"Adagio"},
		"initial_dynamics":{"level":"p","description":"soft","articulation":"legato"},
		"repeating_motifs":[{"description":"steady beat"},{"description":"ignored"}]}`)

	s, err := Summarize(rec)
	require.NoError(t, err)
	assert.Equal(t, Summary{
		Title:               "Test Sonata",
		KeySignature:        "C Major",
		TimeSignature:       "4/4",
		TempoDescription:    "slow",
		TempoTerm:           "Adagio",
		DynamicsDescription: "soft",
		DynamicsLevel:       "p",
		Articulation:        "legato",
		RhythmHighlight:     "steady beat",
	}, s)
}

func TestSummarize_Defaults(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		check func(t *testing.T, s Summary)
	}{
		{
			name: "empty record",
			raw:  `{}`,
			check: func(t *testing.T, s Summary) {
				assert.Equal(t, Summary{
					Title:               DefaultTitle,
					KeySignature:        DefaultKeySignature,
					TimeSignature:       DefaultTimeSignature,
					TempoDescription:    DefaultTempoDescription,
					TempoTerm:           DefaultTempoTerm,
					DynamicsDescription: DefaultDynamicsDescription,
					DynamicsLevel:       DefaultDynamicsLevel,
					Articulation:        DefaultArticulation,
					RhythmHighlight:     DefaultRhythmHighlight,
				}, s)
			},
		},
		{
			name: "missing initial_dynamics",
			raw:  `{"title":"X","initial_tempo":{"term":"Presto"}}`,
			check: func(t *testing.T, s Summary) {
				assert.Equal(t, "p", s.DynamicsLevel)
				assert.Equal(t, "Quiet", s.DynamicsDescription)
				assert.Equal(t, "smoothly", s.Articulation)
				assert.Equal(t, "Presto", s.TempoTerm)
				assert.Equal(t, DefaultTempoDescription, s.TempoDescription)
			},
		},
		{
			name: "null values",
			raw:  `{"title":null,"initial_dynamics":null,"repeating_motifs":null}`,
			check: func(t *testing.T, s Summary) {
				assert.Equal(t, DefaultTitle, s.Title)
				assert.Equal(t, DefaultDynamicsLevel, s.DynamicsLevel)
				assert.Equal(t, DefaultRhythmHighlight, s.RhythmHighlight)
			},
		},
		{
			name: "empty motifs array",
			raw:  `{"repeating_motifs":[]}`,
			check: func(t *testing.T, s Summary) {
				assert.Equal(t, DefaultRhythmHighlight, s.RhythmHighlight)
			},
		},
		{
			name: "motif without description",
			raw:  `{"repeating_motifs":[{"type":"Rhythmic"}]}`,
			check: func(t *testing.T, s Summary) {
				assert.Equal(t, DefaultRhythmHighlight, s.RhythmHighlight)
			},
		},
		{
			name: "blank strings",
			raw:  `{"title":"  ","key_signature":""}`,
			check: func(t *testing.T, s Summary) {
				assert.Equal(t, DefaultTitle, s.Title)
				assert.Equal(t, DefaultKeySignature, s.KeySignature)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Summarize(mustParse(t, tt.raw))
			require.NoError(t, err)
			tt.check(t, s)
		})
	}
}

func TestSummarize_TempoTerm(t *testing.T) {
	tests := []struct {
		term string
		want string
	}{
		{"Adagio", "Adagio"},
		{"(Adagio)", "Adagio"},
		{" (Allegro) ", "Allegro"},
		{"()", DefaultTempoTerm},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			rec := FromMap(map[string]any{
				KeyInitialTempo: map[string]any{"term": tt.term},
			})
			s, err := Summarize(rec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.TempoTerm)
		})
	}
}

func TestSummarize_KeepsFullKeySignature(t *testing.T) {
	s, err := Summarize(mustParse(t, `{"key_signature":"E-flat Major","time_signature":"6/8 compound"}`))
	require.NoError(t, err)
	assert.Equal(t, "E-flat Major", s.KeySignature)
	assert.Equal(t, "6/8 compound", s.TimeSignature)
}

func TestSummarize_NumbersAsStrings(t *testing.T) {
	s, err := Summarize(mustParse(t, `{"time_signature":3,"initial_tempo":{"term":"Lento","description":60}}`))
	require.NoError(t, err)
	assert.Equal(t, "3", s.TimeSignature)
	assert.Equal(t, "60", s.TempoDescription)
}

func TestSummarize_MalformedField(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "tempo is a string", raw: `{"initial_tempo":"fast"}`},
		{name: "dynamics is an array", raw: `{"initial_dynamics":["p"]}`},
		{name: "title is an object", raw: `{"title":{"text":"x"}}`},
		{name: "motifs is an object", raw: `{"repeating_motifs":{"description":"x"}}`},
		{name: "motif entry is a string", raw: `{"repeating_motifs":["steady"]}`},
		{name: "motif description is a bool", raw: `{"repeating_motifs":[{"description":true}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Summarize(mustParse(t, tt.raw))
			assert.ErrorIs(t, err, ErrMalformedField)
		})
	}

	_, err := Summarize(nil)
	assert.ErrorIs(t, err, ErrMalformedField)
}

func TestRecordTitle(t *testing.T) {
	assert.Equal(t, "Test Sonata", mustParse(t, `{"title":"Test Sonata"}`).Title())
	assert.Equal(t, DefaultTitle, mustParse(t, `{"title":["bad"]}`).Title())
	assert.Equal(t, DefaultTitle, mustParse(t, `{}`).Title())
}
