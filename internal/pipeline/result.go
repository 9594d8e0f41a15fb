package pipeline

import (
	"context"
	"time"
)

// State is the position of one template in the generation loop
type State string

const (
	StatePending    State = "PENDING"
	StateExtracting State = "EXTRACTING"
	StateNarrating  State = "NARRATING"
	StateImaging    State = "IMAGING"
	StateSaved      State = "SAVED"
	StateFailed     State = "FAILED"
)

// Terminal reports whether no further transition is possible
func (s State) Terminal() bool {
	return s == StateSaved || s == StateFailed
}

// Result is the outcome of one template
type Result struct {
	Template      string
	State         State
	Transitions   []State
	Narration     string
	NarrationErr  error
	ImagePath     string
	ImageMIMEType string
	// FailedAt is the state that was active when the template failed
	FailedAt State
	Err      error
	Duration time.Duration
}

// Saved reports whether the image was persisted
func (r Result) Saved() bool {
	return r.State == StateSaved
}

// ErrorMessage returns the failure text or an empty string
func (r Result) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

func (r *Result) advance(s State) {
	r.State = s
	r.Transitions = append(r.Transitions, s)
}

func (r *Result) fail(err error) {
	r.FailedAt = r.State
	r.Err = err
	r.advance(StateFailed)
}

// Report is the ordered outcome of one run
type Report struct {
	RunID      string
	Source     string
	Title      string
	Results    []Result
	Saved      int
	Failed     int
	Disclaimer string
	StartedAt  time.Time
	Duration   time.Duration
}

// Result returns the outcome for a template name
func (r *Report) Result(template string) (Result, bool) {
	for _, res := range r.Results {
		if res.Template == template {
			return res, true
		}
	}
	return Result{}, false
}

func (r *Report) count() {
	r.Saved, r.Failed = 0, 0
	for _, res := range r.Results {
		if res.Saved() {
			r.Saved++
		} else {
			r.Failed++
		}
	}
}

// Observer receives progress callbacks. With concurrency above 1, OnTemplate
// may be called from several goroutines at once.
type Observer interface {
	OnTemplate(ctx context.Context, runID string, result Result)
	OnRun(ctx context.Context, report *Report)
}

// Observers fans callbacks out to several observers, skipping nil entries
type Observers []Observer

func (o Observers) OnTemplate(ctx context.Context, runID string, result Result) {
	for _, obs := range o {
		if obs != nil {
			obs.OnTemplate(ctx, runID, result)
		}
	}
}

func (o Observers) OnRun(ctx context.Context, report *Report) {
	for _, obs := range o {
		if obs != nil {
			obs.OnRun(ctx, report)
		}
	}
}
