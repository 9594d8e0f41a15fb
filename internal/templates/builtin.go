package templates

import (
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/Conceptual-Machines/scoreviz/pkg/embedded"
)

// builtinOrder is the catalog shipped with the binary; each entry has a
// matching <name>.txt under the embedded templates directory
var builtinOrder = []string{
	"glyph_score",
	"chromatic_landscape",
	"harmonic_spiral",
	"constellation_score",
	"vocal_flowchart_score",
	"graphic_score_cadenza",
	"layered_graphic_score",
	"stochastic_texture_map_score",
	"choreographic_graphic_score",
	"antiquarian_color_sphere_score",
	"watercolor_flow",
	"panoramic_waveform",
}

// builtinAliases are the short style names used by the explorer CLI
var builtinAliases = map[string]string{
	"glyph":         "glyph_score",
	"landscape":     "chromatic_landscape",
	"spiral":        "harmonic_spiral",
	"constellation": "constellation_score",
	"watercolor":    "watercolor_flow",
}

var (
	builtinOnce sync.Once
	builtin     *Registry
	builtinErr  error
)

// Builtin returns the embedded template catalog. It panics if the embedded
// data is inconsistent, which can only happen at build time.
func Builtin() *Registry {
	builtinOnce.Do(func() {
		builtin, builtinErr = loadBuiltin()
	})
	if builtinErr != nil {
		panic(fmt.Sprintf("templates: invalid embedded catalog: %v", builtinErr))
	}
	return builtin
}

func loadBuiltin() (*Registry, error) {
	list := make([]Template, 0, len(builtinOrder))
	for _, name := range builtinOrder {
		data, err := embedded.TemplatesFS.ReadFile(path.Join(embedded.TemplatesDir, name+".txt"))
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", name, err)
		}
		list = append(list, Template{Name: name, Body: strings.TrimSpace(string(data))})
	}

	r, err := New(list...)
	if err != nil {
		return nil, err
	}
	return r.WithAliases(builtinAliases)
}
