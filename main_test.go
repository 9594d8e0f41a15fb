package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/scoreviz/internal/config"
	"github.com/Conceptual-Machines/scoreviz/internal/storage"
	"github.com/Conceptual-Machines/scoreviz/internal/templates"
)

func TestFilterSensitiveHeaders(t *testing.T) {
	filtered := filterSensitiveHeaders(map[string]string{
		"Authorization":  "Bearer x",
		"cookie":         "session=1",
		"X-Goog-Api-Key": "k",
		"Content-Type":   "application/json",
	})

	assert.Equal(t, "[REDACTED]", filtered["Authorization"])
	assert.Equal(t, "[REDACTED]", filtered["cookie"])
	assert.Equal(t, "[REDACTED]", filtered["X-Goog-Api-Key"])
	assert.Equal(t, "application/json", filtered["Content-Type"])
}

func TestPrintTemplates(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	printTemplates(cmd, templates.Builtin())

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, templates.Builtin().Len())
	assert.Equal(t, " 1. glyph_score (glyph)", lines[0])
	assert.Contains(t, out.String(), "harmonic_spiral (spiral)")
}

func TestSelectTemplates(t *testing.T) {
	defer func(prev string) { flagTemplates = prev }(flagTemplates)

	flagTemplates = ""
	reg, err := selectTemplates()
	require.NoError(t, err)
	assert.Equal(t, templates.Builtin().Len(), reg.Len())

	flagTemplates = "spiral, glyph"
	reg, err = selectTemplates()
	require.NoError(t, err)
	assert.Equal(t, []string{"harmonic_spiral", "glyph_score"}, reg.Names())

	flagTemplates = "cubist"
	_, err = selectTemplates()
	assert.ErrorIs(t, err, templates.ErrUnknownTemplate)
}

func TestNewStores(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{ImageStore: config.StoreFile, OutputDir: dir}

	shared, err := newStores(cfg, false)
	require.NoError(t, err)
	store, ok := shared("run-1").(*storage.FileStore)
	require.True(t, ok)
	assert.Equal(t, dir, store.Dir())

	scoped, err := newStores(cfg, true)
	require.NoError(t, err)
	store, ok = scoped("run-1").(*storage.FileStore)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "run-1"), store.Dir())

	_, err = newStores(&config.Config{ImageStore: config.StoreS3}, false)
	assert.Error(t, err, "bucket is required")
}

func TestVisualizeCommand_MalformedFeatureFile(t *testing.T) {
	for _, key := range []string{"CONCURRENCY", "NARRATION_MAX_WORDS", "FEATURE_CACHE_TTL", "MAX_UPLOAD_MB", "IMAGE_STORE", "SENTRY_DSN"} {
		t.Setenv(key, "")
	}
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`["not","an","object"]`), 0o644))

	defer func(prev string) { visualizeFile = prev }(visualizeFile)
	visualizeFile = path

	var out bytes.Buffer
	visualizeCmd.SetOut(&out)
	err := runVisualize(visualizeCmd, nil)
	require.Error(t, err)
	assert.NotContains(t, out.String(), "Visualization:", "no template may be processed")
}
