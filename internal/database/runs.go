package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/scoreviz/internal/logger"
	"github.com/Conceptual-Machines/scoreviz/internal/models"
	"github.com/Conceptual-Machines/scoreviz/internal/pipeline"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ErrRunNotFound is returned by GetRun for an unknown run id
var ErrRunNotFound = errors.New("run not found")

// RunRepository persists run reports
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a repository over db
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// SaveReport stores a run and its template outcomes in one transaction
func (r *RunRepository) SaveReport(ctx context.Context, report *pipeline.Report) (*models.Run, error) {
	run := models.NewRunFromReport(report)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&run).Error
	})
	if err != nil {
		return nil, fmt.Errorf("save run %s: %w", report.RunID, err)
	}
	return &run, nil
}

// ListRuns returns the most recent runs without their outcomes
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]models.Run, error) {
	limit = ClampLimit(limit)

	var runs []models.Run
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// GetRun loads one run with its outcomes in template order
func (r *RunRepository) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	var run models.Run
	err = r.db.WithContext(ctx).
		Preload("Outcomes", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("run_id = ?", id).
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return &run, nil
}

// OnTemplate implements pipeline.Observer. Outcomes are stored with the run.
func (r *RunRepository) OnTemplate(context.Context, string, pipeline.Result) {}

// OnRun implements pipeline.Observer, recording the finished run
func (r *RunRepository) OnRun(ctx context.Context, report *pipeline.Report) {
	if _, err := r.SaveReport(ctx, report); err != nil {
		logger.Error("Failed to record run history", err, logger.Fields{"run_id": report.RunID})
	}
}

// ClampLimit bounds a page size to [1, MaxListLimit], defaulting non-positive values
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}
