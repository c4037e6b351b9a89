package types

import "time"

// Stage names in pipeline execution order.
const (
	StageScan     = "scan"
	StageAnnotate = "annotate"
	StageCurate   = "curate"
	StageRender   = "render"
)

// StageResult records the outcome of one pipeline stage.
type StageResult struct {
	Stage    string        `json:"stage"`
	OK       bool          `json:"ok"`
	Skipped  bool          `json:"skipped"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	Items    int           `json:"items"`
}

// RunResult is the structured outcome of one pipeline run, returned to the
// external caller (CLI or dashboard) at the orchestrator boundary.
type RunResult struct {
	RunID      string        `json:"run_id"`
	Collection string        `json:"collection"`
	Success    bool          `json:"success"`
	Stages     []StageResult `json:"stages"`
	TotalItems int           `json:"total_items"`
	Errors     []string      `json:"errors,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// StageByName returns the result for the named stage, or nil.
func (r *RunResult) StageByName(name string) *StageResult {
	for i := range r.Stages {
		if r.Stages[i].Stage == name {
			return &r.Stages[i]
		}
	}
	return nil
}
