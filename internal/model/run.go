package model

import "time"

// AnalyticsResult is the full output of one analytics run.
type AnalyticsResult struct {
	RunID      string
	Metrics    []MetricRecord
	TaxEvents  []TaxEvent
	TaxSummary TaxSummary
	Overlaps   []OverlapRecord
	TERs       []TERRecord
	Peers      []PeerRecord
}

// WorkflowOutput carries the render-ready artifacts of a workflow run.
type WorkflowOutput struct {
	Result    AnalyticsResult
	Digest    string
	Narrative string
	FileBytes []byte
	FileExt   string
}

// StageResult summarizes one pipeline stage of a workflow run.
type StageResult struct {
	Stage       string
	RowsWritten int
	Errors      []string
	Duration    time.Duration
}

// RunReport collects per-stage outcomes for one workflow run. A stage error
// never aborts the remaining stages; it is recorded here instead.
type RunReport struct {
	StartedAt time.Time
	Stages    []StageResult
}

func (r *RunReport) AddStage(stage string, rows int, dur time.Duration, errs ...error) {
	res := StageResult{Stage: stage, RowsWritten: rows, Duration: dur}
	for _, err := range errs {
		if err != nil {
			res.Errors = append(res.Errors, err.Error())
		}
	}
	r.Stages = append(r.Stages, res)
}

func (r *RunReport) HasErrors() bool {
	for _, s := range r.Stages {
		if len(s.Errors) > 0 {
			return true
		}
	}
	return false
}
