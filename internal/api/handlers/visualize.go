package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Conceptual-Machines/scoreviz/internal/features"
	"github.com/Conceptual-Machines/scoreviz/internal/logger"
	"github.com/Conceptual-Machines/scoreviz/internal/pipeline"
	"github.com/Conceptual-Machines/scoreviz/internal/services"
	"github.com/Conceptual-Machines/scoreviz/internal/templates"
)

// Visualizer runs extraction and the generation loop
type Visualizer interface {
	Visualize(ctx context.Context, record *features.Record, req services.VisualizeRequest) (*pipeline.Report, error)
	ProcessSheet(ctx context.Context, path string, req services.VisualizeRequest) (*features.Record, *pipeline.Report, error)
}

type TemplateResult struct {
	Template   string `json:"template"`
	State      string `json:"state"`
	Narration  string `json:"narration"`
	ImageURL   string `json:"image_url,omitempty"`
	MIMEType   string `json:"mime_type,omitempty"`
	FailedAt   string `json:"failed_at,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

type VisualizationResponse struct {
	RunID      string           `json:"run_id"`
	Title      string           `json:"title"`
	Features   *features.Record `json:"features,omitempty"`
	Results    []TemplateResult `json:"results"`
	Saved      int              `json:"saved"`
	Failed     int              `json:"failed"`
	Disclaimer string           `json:"disclaimer"`
	DurationMS int64            `json:"duration_ms"`
}

type VisualizeHandler struct {
	svc            Visualizer
	registry       *templates.Registry
	outputDir      string
	maxUploadBytes int64
}

func NewVisualizeHandler(svc Visualizer, registry *templates.Registry, outputDir string, maxUploadMB int) *VisualizeHandler {
	return &VisualizeHandler{
		svc:            svc,
		registry:       registry,
		outputDir:      outputDir,
		maxUploadBytes: int64(maxUploadMB) * bytesPerMegabyte,
	}
}

// ProcessMusic extracts features from an uploaded score and visualizes them
// POST /api/process-music
func (h *VisualizeHandler) ProcessMusic(c *gin.Context) {
	file, err := c.FormFile(formFieldFile)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
		return
	}
	if h.maxUploadBytes > 0 && file.Size > h.maxUploadBytes {
		h.writeTooLarge(c)
		return
	}

	registry, ok := h.selectTemplates(c, c.DefaultPostForm(paramTemplates, c.Query(paramTemplates)))
	if !ok {
		return
	}

	dir, err := os.MkdirTemp("", uploadDirPattern)
	if err != nil {
		logger.Error("Failed to create upload directory", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store upload"})
		return
	}
	defer os.RemoveAll(dir)

	name := uploadName(file.Filename)
	path := filepath.Join(dir, name)
	if err := c.SaveUploadedFile(file, path); err != nil {
		logger.Error("Failed to save upload", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store upload"})
		return
	}

	runID := uuid.NewString()
	c.Set("run_id", runID)
	log.Printf("🎼 ProcessMusic: run %s, file=%s (%d bytes), templates=%d", runID, name, file.Size, registry.Len())

	var out bytes.Buffer
	record, report, err := h.svc.ProcessSheet(c.Request.Context(), path, services.VisualizeRequest{
		RunID:    runID,
		Source:   name,
		Registry: registry,
		Out:      &out,
	})
	h.logConsole(&out)
	if err != nil {
		h.writeRunError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.response(report, record))
}

// Visualize runs the generation loop for a feature record posted as the request body
// POST /api/visualize
func (h *VisualizeHandler) Visualize(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	raw, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeTooLarge(c)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}
	record, err := features.Parse(raw)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	registry, ok := h.selectTemplates(c, c.Query(paramTemplates))
	if !ok {
		return
	}

	runID := uuid.NewString()
	c.Set("run_id", runID)

	var out bytes.Buffer
	report, err := h.svc.Visualize(c.Request.Context(), record, services.VisualizeRequest{
		RunID:    runID,
		Source:   "api",
		Registry: registry,
		Out:      &out,
	})
	h.logConsole(&out)
	if err != nil {
		h.writeRunError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.response(report, nil))
}

func (h *VisualizeHandler) selectTemplates(c *gin.Context, list string) (*templates.Registry, bool) {
	registry, err := h.registry.Select(templates.ParseList(list)...)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"available": h.registry.Names(),
		})
		return nil, false
	}
	return registry, true
}

func (h *VisualizeHandler) writeTooLarge(c *gin.Context) {
	c.JSON(http.StatusRequestEntityTooLarge, gin.H{
		"error": fmt.Sprintf("request exceeds %d MB", h.maxUploadBytes/bytesPerMegabyte),
	})
}

func (h *VisualizeHandler) writeRunError(c *gin.Context, err error) {
	fields := logger.WithContext(c)
	switch {
	case errors.Is(err, features.ErrMalformedRecord):
		logger.Warn("Feature record is malformed", logger.Merge(fields, logger.Fields{"error": err.Error()}))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrNoTemplates):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Error("Visualization run failed", err, fields)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

// logConsole forwards the run's status lines to the server log in one write
func (h *VisualizeHandler) logConsole(out *bytes.Buffer) {
	if out.Len() > 0 {
		log.Print(out.String())
	}
}

func (h *VisualizeHandler) response(report *pipeline.Report, record *features.Record) VisualizationResponse {
	resp := VisualizationResponse{
		RunID:      report.RunID,
		Title:      report.Title,
		Features:   record,
		Results:    make([]TemplateResult, 0, len(report.Results)),
		Saved:      report.Saved,
		Failed:     report.Failed,
		Disclaimer: report.Disclaimer,
		DurationMS: report.Duration.Milliseconds(),
	}
	for _, res := range report.Results {
		resp.Results = append(resp.Results, TemplateResult{
			Template:   res.Template,
			State:      string(res.State),
			Narration:  res.Narration,
			ImageURL:   h.imageURL(res.ImagePath),
			MIMEType:   res.ImageMIMEType,
			FailedAt:   string(res.FailedAt),
			Error:      res.ErrorMessage(),
			DurationMS: res.Duration.Milliseconds(),
		})
	}
	return resp
}

// imageURL maps a stored path to the static route; object URIs are returned as is
func (h *VisualizeHandler) imageURL(path string) string {
	if path == "" || strings.HasPrefix(path, s3URIPrefix) {
		return path
	}
	rel, err := filepath.Rel(h.outputDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return imagesRoute + "/" + filepath.ToSlash(rel)
}

func uploadName(filename string) string {
	name := filepath.Base(filepath.Clean("/" + filename))
	if name == "/" || name == "." || name == "" {
		return defaultUploadName
	}
	return name
}
