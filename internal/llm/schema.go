package llm

import (
	"strings"

	"google.golang.org/genai"
)

var featureRecordPropertyOrder = []string{
	"title",
	"composer",
	"key_signature",
	"time_signature",
	"initial_tempo",
	"initial_dynamics",
	"overall_mood",
	"structural_analysis",
	"repeating_motifs",
}

// GetFeatureRecordSchema returns the JSON schema for the musical feature record
// the extraction call must produce
func GetFeatureRecordSchema() map[string]any {
	str := func(description string) map[string]any {
		return map[string]any{"type": "string", "description": description}
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":          str("Title of the piece"),
			"composer":       str("Composer of the piece"),
			"key_signature":  str("Key signature, e.g. 'C Major'"),
			"time_signature": str("Time signature, e.g. '4/4'"),
			"initial_tempo": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"term":        str("Italian tempo term, e.g. 'Adagio'"),
					"bpm":         map[string]any{"type": "integer", "description": "Approximate beats per minute"},
					"description": str("Plain-language description of the pace"),
				},
				"required": []string{"term", "description"},
			},
			"initial_dynamics": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"level":        str("Dynamic marking, e.g. 'p', 'mf', 'ff'"),
					"description":  str("Plain-language description of the loudness"),
					"articulation": str("Dominant articulation, e.g. 'legato', 'staccato'"),
				},
				"required": []string{"level", "description"},
			},
			"overall_mood": str("Overall emotional character"),
			"structural_analysis": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"section":     str("Section label, e.g. 'A', 'Development'"),
						"measures":    str("Measure range, e.g. '1-8'"),
						"description": str("What happens in this section"),
					},
					"required": []string{"section", "description"},
				},
			},
			"repeating_motifs": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":        str("Short name for the motif"),
						"description": str("Rhythmic or melodic description of the motif"),
						"occurrences": str("Where the motif recurs"),
					},
					"required": []string{"description"},
				},
			},
		},
		"required": []string{
			"title",
			"key_signature",
			"time_signature",
			"initial_tempo",
			"initial_dynamics",
			"structural_analysis",
			"repeating_motifs",
		},
		"propertyOrdering": featureRecordPropertyOrder,
	}
}

// convertSchemaToGemini converts a JSON schema map to Gemini's schema type.
// Unsupported keywords are ignored; a nil or empty map yields nil.
func convertSchemaToGemini(schema map[string]any) *genai.Schema {
	if len(schema) == 0 {
		return nil
	}

	out := &genai.Schema{}
	if t, ok := schema["type"].(string); ok {
		out.Type = geminiType(t)
	}
	if d, ok := schema["description"].(string); ok {
		out.Description = d
	}
	out.Enum = stringList(schema["enum"])
	out.Required = stringList(schema["required"])
	out.PropertyOrdering = stringList(schema["propertyOrdering"])

	if props, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if child, ok := raw.(map[string]any); ok {
				out.Properties[name] = convertSchemaToGemini(child)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		out.Items = convertSchemaToGemini(items)
	}

	return out
}

func geminiType(t string) genai.Type {
	switch strings.ToLower(t) {
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeUnspecified
	}
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
