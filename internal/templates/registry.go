package templates

import (
	"errors"
	"fmt"
	"strings"
)

// Placeholder is the substitution point for the serialized feature record
const Placeholder = "{json_string}"

// RedactedPayload replaces the feature record when a template body is quoted
// inside another prompt (narration), keeping that prompt short
const RedactedPayload = "[... music data is mapped here to the visualization rules specified in the prompt ...]"

var (
	ErrEmptyName         = errors.New("template name is empty")
	ErrPlaceholder       = errors.New("template body must contain exactly one placeholder")
	ErrDuplicateTemplate = errors.New("duplicate template name")
	ErrUnknownTemplate   = errors.New("unknown template")
	ErrEmptyRegistry     = errors.New("template registry is empty")
)

// Template is a named visualization style
type Template struct {
	Name string
	Body string
}

// Render substitutes the serialized feature record into the template body
func (t Template) Render(payload string) string {
	return strings.Replace(t.Body, Placeholder, payload, 1)
}

// Redacted returns the body with the payload marker instead of real data
func (t Template) Redacted() string {
	return t.Render(RedactedPayload)
}

// FileStem returns the sanitized name used for output files
func (t Template) FileStem() string {
	return SanitizeName(t.Name)
}

func (t Template) validate() error {
	if strings.TrimSpace(t.Name) == "" || SanitizeName(t.Name) == "" {
		return ErrEmptyName
	}
	if n := strings.Count(t.Body, Placeholder); n != 1 {
		return fmt.Errorf("%w: %q has %d", ErrPlaceholder, t.Name, n)
	}
	return nil
}

// Registry is an ordered, read-only catalog of templates
type Registry struct {
	templates []Template
	index     map[string]int
	aliases   map[string]string
}

// New builds a registry in the given order, rejecting invalid or colliding templates
func New(templates ...Template) (*Registry, error) {
	if len(templates) == 0 {
		return nil, ErrEmptyRegistry
	}

	r := &Registry{
		templates: make([]Template, 0, len(templates)),
		index:     make(map[string]int, len(templates)),
		aliases:   map[string]string{},
	}

	stems := make(map[string]string, len(templates))
	for _, t := range templates {
		if err := t.validate(); err != nil {
			return nil, err
		}
		if _, exists := r.index[t.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTemplate, t.Name)
		}
		stem := t.FileStem()
		if other, exists := stems[stem]; exists {
			return nil, fmt.Errorf("%w: %s and %s both map to %s", ErrDuplicateTemplate, other, t.Name, stem)
		}
		stems[stem] = t.Name
		r.index[t.Name] = len(r.templates)
		r.templates = append(r.templates, t)
	}

	return r, nil
}

// WithAliases returns a copy of the registry that also resolves the given short names
func (r *Registry) WithAliases(aliases map[string]string) (*Registry, error) {
	out := r.clone()
	for alias, name := range aliases {
		if _, ok := out.index[name]; !ok {
			return nil, fmt.Errorf("%w: alias %s points to %s", ErrUnknownTemplate, alias, name)
		}
		if _, clash := out.index[alias]; clash {
			return nil, fmt.Errorf("%w: alias %s shadows a template", ErrDuplicateTemplate, alias)
		}
		out.aliases[alias] = name
	}
	return out, nil
}

// List returns every template in registration order
func (r *Registry) List() []Template {
	out := make([]Template, len(r.templates))
	copy(out, r.templates)
	return out
}

// Names returns template names in registration order
func (r *Registry) Names() []string {
	names := make([]string, len(r.templates))
	for i, t := range r.templates {
		names[i] = t.Name
	}
	return names
}

// Aliases returns a copy of the alias table
func (r *Registry) Aliases() map[string]string {
	out := make(map[string]string, len(r.aliases))
	for k, v := range r.aliases {
		out[k] = v
	}
	return out
}

// Len returns the number of registered templates
func (r *Registry) Len() int {
	return len(r.templates)
}

// Get looks a template up by its exact name
func (r *Registry) Get(name string) (Template, bool) {
	i, ok := r.index[name]
	if !ok {
		return Template{}, false
	}
	return r.templates[i], true
}

// Resolve looks a template up by name or alias
func (r *Registry) Resolve(nameOrAlias string) (Template, bool) {
	key := strings.TrimSpace(nameOrAlias)
	if t, ok := r.Get(key); ok {
		return t, true
	}
	if name, ok := r.aliases[key]; ok {
		return r.Get(name)
	}
	return Template{}, false
}

// Select returns a registry holding only the requested templates, in request order.
// Duplicates in the request are collapsed.
func (r *Registry) Select(namesOrAliases ...string) (*Registry, error) {
	if len(namesOrAliases) == 0 {
		return r, nil
	}

	selected := make([]Template, 0, len(namesOrAliases))
	seen := map[string]bool{}
	for _, n := range namesOrAliases {
		if strings.TrimSpace(n) == "" {
			continue
		}
		t, ok := r.Resolve(n)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, n)
		}
		if seen[t.Name] {
			continue
		}
		seen[t.Name] = true
		selected = append(selected, t)
	}

	return New(selected...)
}

func (r *Registry) clone() *Registry {
	out := &Registry{
		templates: r.List(),
		index:     make(map[string]int, len(r.index)),
		aliases:   r.Aliases(),
	}
	for k, v := range r.index {
		out.index[k] = v
	}
	return out
}

// SanitizeName lower-cases a template name and keeps only [a-z0-9_-]
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		case r == ' ', r == '.':
			b.WriteRune('_')
		}
	}
	return b.String()
}

// ParseList splits a comma separated list of template names
func ParseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
