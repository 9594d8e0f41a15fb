package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/scoreviz/internal/metrics"
)

// RunStatsSource reports pipeline counters since start
type RunStatsSource interface {
	Snapshot() metrics.RunSnapshot
}

// MetricsHandler serves process and pipeline counters
type MetricsHandler struct {
	started  time.Time
	version  string
	stats    RunStatsSource
	settings map[string]interface{}
}

// NewMetricsHandler creates the handler. stats may be nil; settings is echoed as-is.
func NewMetricsHandler(version string, stats RunStatsSource, settings map[string]interface{}) *MetricsHandler {
	return &MetricsHandler{
		started:  time.Now(),
		version:  version,
		stats:    stats,
		settings: settings,
	}
}

type MetricsResponse struct {
	Version   string                 `json:"version"`
	StartedAt string                 `json:"started_at"`
	Uptime    string                 `json:"uptime"`
	Pipeline  *metrics.RunSnapshot   `json:"pipeline,omitempty"`
	Runtime   RuntimeMetrics         `json:"runtime"`
	Settings  map[string]interface{} `json:"settings"`
}

type RuntimeMetrics struct {
	GoVersion  string `json:"go_version"`
	Goroutines int    `json:"goroutines"`
	HeapMB     uint64 `json:"heap_mb"`
	NumGC      uint32 `json:"num_gc"`
}

// GetMetrics returns the counters
// GET /api/metrics
func (h *MetricsHandler) GetMetrics(c *gin.Context) {
	resp := MetricsResponse{
		Version:   h.version,
		StartedAt: h.started.UTC().Format(time.RFC3339),
		Uptime:    formatUptime(time.Since(h.started)),
		Runtime:   readRuntime(),
		Settings:  h.settings,
	}
	if h.stats != nil {
		snap := h.stats.Snapshot()
		resp.Pipeline = &snap
	}
	c.JSON(http.StatusOK, resp)
}

func readRuntime() RuntimeMetrics {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return RuntimeMetrics{
		GoVersion:  runtime.Version(),
		Goroutines: runtime.NumGoroutine(),
		HeapMB:     mem.HeapAlloc / bytesPerMegabyte,
		NumGC:      mem.NumGC,
	}
}

// formatUptime rounds to whole seconds
func formatUptime(d time.Duration) string {
	return d.Round(time.Second).String()
}
