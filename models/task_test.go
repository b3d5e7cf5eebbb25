package models

import "testing"

func TestTaskDefaults(t *testing.T) {
	task := &Task{URL: "https://example.com"}
	task.Defaults()

	if task.FetchMode != "browser" {
		t.Errorf("default fetch mode = %q, want browser", task.FetchMode)
	}
	if task.Readiness != "idle" {
		t.Errorf("default readiness = %q, want idle", task.Readiness)
	}
	if task.Timeout != 30 {
		t.Errorf("default timeout = %d, want 30", task.Timeout)
	}
	if task.Capture != "text" {
		t.Errorf("default capture = %q, want text", task.Capture)
	}
	if task.Status != StatusPending {
		t.Errorf("default status = %q, want pending", task.Status)
	}
}

func TestTaskDefaults_KeepsExplicitValues(t *testing.T) {
	task := &Task{URL: "https://example.com", FetchMode: "http", Timeout: 5}
	task.Defaults()

	if task.FetchMode != "http" {
		t.Errorf("explicit fetch mode overwritten: %q", task.FetchMode)
	}
	if task.Timeout != 5 {
		t.Errorf("explicit timeout overwritten: %d", task.Timeout)
	}
}

func TestTaskAccepts(t *testing.T) {
	tests := []struct {
		name   string
		accept []int
		status int
		want   bool
	}{
		{"default 200", nil, 200, true},
		{"default 302", nil, 302, true},
		{"default 404", nil, 404, false},
		{"default 503", nil, 503, false},
		{"zero status always passes", nil, 0, true},
		{"explicit match", []int{200, 404}, 404, true},
		{"explicit miss", []int{200}, 301, false},
		{"explicit zero status", []int{200}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := &Task{AcceptStatuses: tt.accept}
			if got := task.Accepts(tt.status); got != tt.want {
				t.Errorf("Accepts(%d) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestTaskStatusTerminal(t *testing.T) {
	if StatusPending.Terminal() || StatusInProgress.Terminal() {
		t.Error("pending and in_progress are not terminal")
	}
	if !StatusSucceeded.Terminal() || !StatusFailed.Terminal() {
		t.Error("succeeded and failed are terminal")
	}
}

func TestRunReport_ExitCode(t *testing.T) {
	r := NewRunReport()
	r.Add(&TaskResult{TaskID: "a", Status: StatusSucceeded})
	r.Finalize(nil)
	if r.ExitCode() != 0 {
		t.Errorf("clean run exit code = %d, want 0", r.ExitCode())
	}

	r = NewRunReport()
	r.Add(&TaskResult{TaskID: "a", Status: StatusSucceeded})
	r.Add(&TaskResult{TaskID: "b", Status: StatusFailed})
	r.Finalize(nil)
	if r.ExitCode() != 1 {
		t.Errorf("run with a failure exit code = %d, want 1", r.ExitCode())
	}

	r = NewRunReport()
	r.Add(&TaskResult{TaskID: "a", Status: StatusSucceeded})
	r.Finalize(&ErrorDetail{Code: ErrCodeSessionFatal, Message: "browser crashed"})
	if r.ExitCode() != 1 {
		t.Errorf("aborted run exit code = %d, want 1", r.ExitCode())
	}
}

func TestRunReport_Records(t *testing.T) {
	r := NewRunReport()
	r.Add(&TaskResult{TaskID: "a", Status: StatusSucceeded, Record: &Record{TaskID: "a"}})
	r.Add(&TaskResult{TaskID: "b", Status: StatusFailed})

	records := r.Records()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].TaskID != "a" {
		t.Errorf("record task id = %q, want a", records[0].TaskID)
	}
}
