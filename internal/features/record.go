package features

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Known top-level keys of the constrained extraction response
const (
	KeyTitle              = "title"
	KeyComposer           = "composer"
	KeyKeySignature       = "key_signature"
	KeyTimeSignature      = "time_signature"
	KeyInitialTempo       = "initial_tempo"
	KeyInitialDynamics    = "initial_dynamics"
	KeyOverallMood        = "overall_mood"
	KeyStructuralAnalysis = "structural_analysis"
	KeyRepeatingMotifs    = "repeating_motifs"
)

var (
	// ErrMalformedRecord means the feature document is not a JSON object. It is fatal for a run.
	ErrMalformedRecord = errors.New("malformed feature record")
	// ErrMalformedField means a known key is present with the wrong JSON shape
	ErrMalformedField = errors.New("malformed feature field")
)

// Record is a read-only view over an extracted feature document. Unknown keys
// are preserved so the full payload reaches the image prompt.
type Record struct {
	data map[string]any
}

// Parse decodes a feature document. Anything other than a single JSON object
// yields ErrMalformedRecord.
func Parse(raw []byte) (*Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: document is null", ErrMalformedRecord)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after object", ErrMalformedRecord)
	}

	return &Record{data: data}, nil
}

// Load reads and parses a feature document from disk
func Load(path string) (*Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feature file %s: %w", path, err)
	}
	rec, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse feature file %s: %w", path, err)
	}
	return rec, nil
}

// FromMap wraps an already decoded document
func FromMap(data map[string]any) *Record {
	if data == nil {
		data = map[string]any{}
	}
	return &Record{data: data}
}

// JSON serializes the record compactly; this is the payload substituted into templates
func (r *Record) JSON() (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r.data); err != nil {
		return "", fmt.Errorf("serialize feature record: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Indented serializes the record for display
func (r *Record) Indented() string {
	out, err := json.MarshalIndent(r.data, "", "    ")
	if err != nil {
		return "{}"
	}
	return string(out)
}

// Has reports whether a top-level key is present
func (r *Record) Has(key string) bool {
	_, ok := r.data[key]
	return ok
}

// Keys returns the top-level keys present in the record
func (r *Record) Keys() []string {
	keys := make([]string, 0, len(r.data))
	for k := range r.data {
		keys = append(keys, k)
	}
	return keys
}

// Value returns a top-level value as decoded
func (r *Record) Value(key string) (any, bool) {
	v, ok := r.data[key]
	return v, ok
}

// MarshalJSON lets a Record be embedded directly in API responses
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.data)
}

// UnmarshalJSON accepts any JSON object
func (r *Record) UnmarshalJSON(raw []byte) error {
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	r.data = parsed.data
	return nil
}

// stringAt resolves a nested string. A missing key yields def; a present key
// holding the wrong shape yields ErrMalformedField. Numbers are accepted as strings.
func (r *Record) stringAt(def string, path ...string) (string, error) {
	var cur any = r.data
	for i, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			if cur == nil {
				return def, nil
			}
			return "", fmt.Errorf("%w: %s is not an object", ErrMalformedField, strings.Join(path[:i], "."))
		}
		next, ok := obj[key]
		if !ok || next == nil {
			return def, nil
		}
		cur = next
	}

	switch v := cur.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return def, nil
		}
		return v, nil
	case json.Number:
		return v.String(), nil
	default:
		return "", fmt.Errorf("%w: %s is not a string", ErrMalformedField, strings.Join(path, "."))
	}
}

// firstObject returns the first element of an array of objects
func (r *Record) firstObject(key string) (map[string]any, error) {
	raw, ok := r.data[key]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an array", ErrMalformedField, key)
	}
	if len(list) == 0 {
		return nil, nil
	}
	obj, ok := list[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s[0] is not an object", ErrMalformedField, key)
	}
	return obj, nil
}
