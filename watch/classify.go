package watch

import (
	"strings"

	"github.com/use-agent/lookout/models"
)

// Target statuses derived from captured content.
const (
	StatusHasActivity   = "has_activity"
	StatusNoActivity    = "no_activity"
	StatusLoginRequired = "login_required"
	StatusUnknown       = "unknown"
	StatusError         = "error"
)

// Classify derives a target status from captured content using the target's
// marker lists. Login markers win over everything (an expired cookie renders
// a page that can contain anything), an explicit "nothing here" marker beats
// a positive one, and content matching no marker stays unknown rather than
// guessing.
func Classify(content string, rules *models.WatchRules) string {
	if rules == nil {
		return StatusUnknown
	}
	low := strings.ToLower(content)

	if containsAny(low, rules.LoginMarkers) {
		return StatusLoginRequired
	}
	if containsAny(low, rules.NegativeMarkers) {
		return StatusNoActivity
	}
	if containsAny(low, rules.PositiveMarkers) {
		return StatusHasActivity
	}
	return StatusUnknown
}

func containsAny(low string, markers []string) bool {
	for _, m := range markers {
		if m == "" {
			continue
		}
		if strings.Contains(low, strings.ToLower(m)) {
			return true
		}
	}
	return false
}
