package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/scoreviz/internal/pipeline"
)

// Run is one pass of the generation loop over a template registry
type Run struct {
	ID            uint              `gorm:"primarykey" json:"id"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	DeletedAt     gorm.DeletedAt    `gorm:"index" json:"-"`
	RunID         uuid.UUID         `gorm:"type:uuid;uniqueIndex;not null" json:"run_id"`
	Source        string            `json:"source"`
	Title         string            `json:"title"`
	TemplateCount int               `gorm:"not null" json:"template_count"`
	Saved         int               `gorm:"not null;default:0" json:"saved"`
	Failed        int               `gorm:"not null;default:0" json:"failed"`
	DurationMS    int64             `json:"duration_ms"`
	StartedAt     time.Time         `json:"started_at"`
	Outcomes      []TemplateOutcome `gorm:"foreignKey:RunID;references:RunID" json:"outcomes,omitempty"`
}

// TemplateOutcome is the terminal state of one template within a run
type TemplateOutcome struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	RunID      uuid.UUID `gorm:"type:uuid;not null;index" json:"run_id"`
	Position   int       `gorm:"not null" json:"position"`
	Template   string    `gorm:"not null;index" json:"template"`
	State      string    `gorm:"not null" json:"state"`
	FailedAt   string    `json:"failed_at,omitempty"`
	Narration  string    `gorm:"type:text" json:"narration"`
	ImagePath  string    `json:"image_path,omitempty"`
	Error      string    `gorm:"type:text" json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
}

// NewRunFromReport converts a finished report. Run ids that are not UUIDs get a fresh one.
func NewRunFromReport(report *pipeline.Report) Run {
	runID, err := uuid.Parse(report.RunID)
	if err != nil {
		runID = uuid.New()
	}

	run := Run{
		RunID:         runID,
		Source:        report.Source,
		Title:         report.Title,
		TemplateCount: len(report.Results),
		Saved:         report.Saved,
		Failed:        report.Failed,
		DurationMS:    report.Duration.Milliseconds(),
		StartedAt:     report.StartedAt,
		Outcomes:      make([]TemplateOutcome, 0, len(report.Results)),
	}
	for i, res := range report.Results {
		run.Outcomes = append(run.Outcomes, TemplateOutcome{
			RunID:      runID,
			Position:   i,
			Template:   res.Template,
			State:      string(res.State),
			FailedAt:   string(res.FailedAt),
			Narration:  res.Narration,
			ImagePath:  res.ImagePath,
			Error:      res.ErrorMessage(),
			DurationMS: res.Duration.Milliseconds(),
		})
	}
	return run
}
