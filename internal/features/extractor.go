package features

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Conceptual-Machines/scoreviz/internal/llm"
	"github.com/Conceptual-Machines/scoreviz/internal/logger"
)

const (
	maxRawPreviewChars = 200
	defaultMIMEType    = "application/octet-stream"
)

// ErrFileNotFound is returned when the sheet music path does not exist
var ErrFileNotFound = errors.New("sheet music file not found")

// Cache stores extracted records keyed by ContentKey
type Cache interface {
	Get(ctx context.Context, key string) (*Record, bool, error)
	Set(ctx context.Context, key string, record *Record) error
}

// Extractor uploads a sheet music file and asks the model for a constrained JSON analysis
type Extractor struct {
	uploader  llm.FileUploader
	generator llm.StructuredGenerator
	model     string
	prompt    string
	cache     Cache
}

// NewExtractor creates an extractor. cache may be nil.
func NewExtractor(uploader llm.FileUploader, generator llm.StructuredGenerator, model, prompt string, cache Cache) *Extractor {
	return &Extractor{
		uploader:  uploader,
		generator: generator,
		model:     model,
		prompt:    prompt,
		cache:     cache,
	}
}

// Extract runs upload and analysis for the file at path
func (e *Extractor) Extract(ctx context.Context, path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("read sheet music: %w", err)
	}

	key := ContentKey(data, e.model, e.prompt)
	if rec, ok := e.fromCache(ctx, key); ok {
		logger.Info("Feature record served from cache", logger.Fields{"path": path, "key": key})
		return rec, nil
	}

	startTime := time.Now()
	log.Printf("📤 Uploading sheet music %s", filepath.Base(path))
	file, err := e.uploader.UploadFile(ctx, path, DetectMIMEType(path))
	if err != nil {
		return nil, fmt.Errorf("upload sheet music: %w", err)
	}
	log.Printf("✅ File uploaded. Resource name: %s", file.Name)

	raw, err := e.generator.GenerateJSON(ctx, &llm.StructuredRequest{
		Model:  e.model,
		Prompt: e.prompt,
		File:   file,
		Schema: &llm.OutputSchema{
			Name:        "music_features",
			Description: "Structured musical features for accessible visualization",
			Schema:      llm.GetFeatureRecordSchema(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("feature extraction call failed: %w", err)
	}

	rec, err := Parse([]byte(StripCodeFences(raw)))
	if err != nil {
		log.Printf("❌ Failed to parse model output as JSON: %v", err)
		log.Printf("Raw output (first %d chars): %s", maxRawPreviewChars, truncate(raw, maxRawPreviewChars))
		return nil, err
	}

	logger.Info("Musical features extracted", logger.Fields{
		"path":        path,
		"title":       rec.Title(),
		"duration_ms": time.Since(startTime).Milliseconds(),
	})

	if e.cache != nil {
		if err := e.cache.Set(ctx, key, rec); err != nil {
			logger.Warn("Failed to cache feature record", logger.Fields{"key": key, "error": err.Error()})
		}
	}

	return rec, nil
}

func (e *Extractor) fromCache(ctx context.Context, key string) (*Record, bool) {
	if e.cache == nil {
		return nil, false
	}
	rec, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		logger.Warn("Feature cache lookup failed", logger.Fields{"key": key, "error": err.Error()})
		return nil, false
	}
	return rec, ok
}

// ContentKey hashes the extraction model, prompt and file contents for cache lookups
func ContentKey(data []byte, model, prompt string) string {
	h := sha256.New()
	for _, part := range [][]byte{[]byte(model), []byte(prompt), data} {
		var size [8]byte
		binary.BigEndian.PutUint64(size[:], uint64(len(part)))
		h.Write(size[:])
		h.Write(part)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// StripCodeFences removes a surrounding ```json ... ``` block if the model added one
func StripCodeFences(s string) string {
	cleaned := strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(cleaned, "```json"):
		cleaned = strings.TrimPrefix(cleaned, "```json")
	case strings.HasPrefix(cleaned, "```"):
		cleaned = strings.TrimPrefix(cleaned, "```")
	default:
		return cleaned
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}

// DetectMIMEType maps supported sheet music extensions to MIME types
func DetectMIMEType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf"
	case ".musicxml", ".xml":
		return "application/vnd.recordare.musicxml+xml"
	case ".mxl":
		return "application/vnd.recordare.musicxml"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".txt", ".abc":
		return "text/plain"
	default:
		return defaultMIMEType
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
