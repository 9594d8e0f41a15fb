package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/scoreviz/internal/database"
	"github.com/Conceptual-Machines/scoreviz/internal/logger"
	"github.com/Conceptual-Machines/scoreviz/internal/models"
)

// RunHistory reads stored runs
type RunHistory interface {
	ListRuns(ctx context.Context, limit int) ([]models.Run, error)
	GetRun(ctx context.Context, runID string) (*models.Run, error)
}

type RunsHandler struct {
	history RunHistory
}

func NewRunsHandler(history RunHistory) *RunsHandler {
	return &RunsHandler{history: history}
}

// ListRuns returns the most recent runs
// GET /api/runs?limit=20
func (h *RunsHandler) ListRuns(c *gin.Context) {
	limit := database.DefaultListLimit
	if raw := c.Query(paramLimit); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = database.ClampLimit(parsed)
	}

	runs, err := h.history.ListRuns(c.Request.Context(), limit)
	if err != nil {
		logger.Error("Failed to list runs", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRun returns one run with its template outcomes
// GET /api/runs/:id
func (h *RunsHandler) GetRun(c *gin.Context) {
	run, err := h.history.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		logger.Error("Failed to load run", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load run"})
		return
	}

	c.JSON(http.StatusOK, run)
}
