package models

import "time"

// TaskResult is the per-task outcome recorded in a RunReport.
type TaskResult struct {
	TaskID   string       `json:"task_id"`
	URL      string       `json:"url"`
	Status   TaskStatus   `json:"status"`
	Attempts int          `json:"attempts"`
	Cause    *ErrorDetail `json:"cause,omitempty"`
	Record   *Record      `json:"record,omitempty"`
}

// RunReport aggregates the outcome of processing one task queue.
// Results are keyed by task ID because task completion order is not
// dispatch order.
type RunReport struct {
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
	Succeeded  int                    `json:"succeeded"`
	Failed     int                    `json:"failed"`
	Aborted    bool                   `json:"aborted"`
	AbortCause *ErrorDetail           `json:"abort_cause,omitempty"`
	Results    map[string]*TaskResult `json:"results"`
}

// NewRunReport creates an empty report stamped with the run start time.
func NewRunReport() *RunReport {
	return &RunReport{
		StartedAt: time.Now().UTC(),
		Results:   make(map[string]*TaskResult),
	}
}

// Add records one task outcome and updates the counters.
func (r *RunReport) Add(res *TaskResult) {
	r.Results[res.TaskID] = res
	switch res.Status {
	case StatusSucceeded:
		r.Succeeded++
	case StatusFailed:
		r.Failed++
	}
}

// Finalize stamps the end time and marks the report aborted when cause is
// non-nil.
func (r *RunReport) Finalize(cause *ErrorDetail) {
	r.FinishedAt = time.Now().UTC()
	if cause != nil {
		r.Aborted = true
		r.AbortCause = cause
	}
}

// Records returns the records of all succeeded tasks.
func (r *RunReport) Records() []*Record {
	records := make([]*Record, 0, r.Succeeded)
	for _, res := range r.Results {
		if res.Status == StatusSucceeded && res.Record != nil {
			records = append(records, res.Record)
		}
	}
	return records
}

// ExitCode implements the strict exit policy: 0 only when every task
// succeeded and the run finished cleanly, 1 otherwise.
func (r *RunReport) ExitCode() int {
	if r.Aborted || r.Failed > 0 {
		return 1
	}
	return 0
}

// PoolStats reports the state of the browser session pool.
type PoolStats struct {
	Capacity int `json:"capacity"`
	Live     int `json:"live"`
	Active   int `json:"active"`
}

// APIError is the JSON error envelope returned by the control API.
type APIError struct {
	Error *ErrorDetail `json:"error"`
}

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status  string    `json:"status"`
	Uptime  string    `json:"uptime"`
	Pool    PoolStats `json:"pool"`
	Version string    `json:"version"`
}
