package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/scoreviz/internal/templates"
)

type TemplateInfo struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
}

type TemplatesHandler struct {
	registry *templates.Registry
}

func NewTemplatesHandler(registry *templates.Registry) *TemplatesHandler {
	return &TemplatesHandler{registry: registry}
}

// ListTemplates returns the catalog in processing order
// GET /api/templates
func (h *TemplatesHandler) ListTemplates(c *gin.Context) {
	byName := map[string][]string{}
	for alias, name := range h.registry.Aliases() {
		byName[name] = append(byName[name], alias)
	}

	list := make([]TemplateInfo, 0, h.registry.Len())
	for _, name := range h.registry.Names() {
		aliases := byName[name]
		sort.Strings(aliases)
		list = append(list, TemplateInfo{Name: name, Aliases: aliases})
	}

	c.JSON(http.StatusOK, gin.H{
		"templates": list,
		"count":     len(list),
	})
}
