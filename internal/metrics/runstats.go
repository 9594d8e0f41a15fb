package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/Conceptual-Machines/scoreviz/internal/pipeline"
)

// RunStats counts pipeline activity since process start
type RunStats struct {
	mu         sync.Mutex
	runs       int
	saved      int
	failed     int
	narrErrors int
	byTemplate map[string]*TemplateCounts
	failedAt   map[pipeline.State]int
	lastRunAt  time.Time
	lastRunID  string
}

// TemplateCounts is the saved/failed tally of one template
type TemplateCounts struct {
	Saved  int `json:"saved"`
	Failed int `json:"failed"`
}

// RunSnapshot is a copy of the counters safe to serialize
type RunSnapshot struct {
	Runs            int                       `json:"runs"`
	TemplatesSaved  int                       `json:"templates_saved"`
	TemplatesFailed int                       `json:"templates_failed"`
	NarrationErrors int                       `json:"narration_errors"`
	FailedAt        map[string]int            `json:"failed_at"`
	ByTemplate      map[string]TemplateCounts `json:"by_template"`
	LastRunID       string                    `json:"last_run_id,omitempty"`
	LastRunAt       *time.Time                `json:"last_run_at,omitempty"`
}

func NewRunStats() *RunStats {
	return &RunStats{
		byTemplate: map[string]*TemplateCounts{},
		failedAt:   map[pipeline.State]int{},
	}
}

// OnTemplate implements pipeline.Observer
func (s *RunStats) OnTemplate(_ context.Context, _ string, result pipeline.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts, ok := s.byTemplate[result.Template]
	if !ok {
		counts = &TemplateCounts{}
		s.byTemplate[result.Template] = counts
	}
	if result.Saved() {
		s.saved++
		counts.Saved++
	} else {
		s.failed++
		counts.Failed++
		s.failedAt[result.FailedAt]++
	}
	if result.NarrationErr != nil {
		s.narrErrors++
	}
}

// OnRun implements pipeline.Observer
func (s *RunStats) OnRun(_ context.Context, report *pipeline.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs++
	s.lastRunID = report.RunID
	s.lastRunAt = time.Now().UTC()
}

// Snapshot returns the current counters
func (s *RunStats) Snapshot() RunSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := RunSnapshot{
		Runs:            s.runs,
		TemplatesSaved:  s.saved,
		TemplatesFailed: s.failed,
		NarrationErrors: s.narrErrors,
		FailedAt:        make(map[string]int, len(s.failedAt)),
		ByTemplate:      make(map[string]TemplateCounts, len(s.byTemplate)),
		LastRunID:       s.lastRunID,
	}
	for state, n := range s.failedAt {
		snap.FailedAt[string(state)] = n
	}
	for name, c := range s.byTemplate {
		snap.ByTemplate[name] = *c
	}
	if !s.lastRunAt.IsZero() {
		at := s.lastRunAt
		snap.LastRunAt = &at
	}
	return snap
}
