package watch

import (
	"testing"

	"github.com/use-agent/lookout/models"
)

func TestClassify(t *testing.T) {
	rules := &models.WatchRules{
		PositiveMarkers: []string{"tasks available", "start work"},
		NegativeMarkers: []string{"no tasks", "check back later"},
		LoginMarkers:    []string{"log in", "session expired"},
	}

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"positive", "There are 3 tasks available right now", StatusHasActivity},
		{"positive case-insensitive", "TASKS AVAILABLE", StatusHasActivity},
		{"negative", "Sorry, no tasks. Check back later.", StatusNoActivity},
		{"login", "Please log in to continue", StatusLoginRequired},
		{"login beats positive", "Log in to see the tasks available", StatusLoginRequired},
		{"negative beats positive", "No tasks available, start work tomorrow", StatusNoActivity},
		{"no marker", "Welcome to the dashboard", StatusUnknown},
		{"empty content", "", StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.content, rules); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

func TestClassify_NilRules(t *testing.T) {
	if got := Classify("anything at all", nil); got != StatusUnknown {
		t.Errorf("nil rules should classify as unknown, got %q", got)
	}
}

func TestClassify_EmptyMarkerIgnored(t *testing.T) {
	rules := &models.WatchRules{PositiveMarkers: []string{""}}
	if got := Classify("some content", rules); got != StatusUnknown {
		t.Errorf("empty marker must not match everything, got %q", got)
	}
}
