// Package jobs creates and observes autonomous build jobs. A job is one
// unit of remote work: relayforge assigns it an id and a dedicated branch,
// triggers the CI platform, and from then on only observes. The branch name
// is the sole correlation mechanism between a dispatched job and its
// completion event.
package jobs

import (
	"strings"
	"time"
)

// BranchPrefix namespaces all job branches.
const BranchPrefix = "job/"

// Handle identifies a dispatched job.
type Handle struct {
	ID     string `json:"id"`
	Branch string `json:"branch"`
}

// View is the externally visible state of an active job, assembled from
// the remote CI platform.
type View struct {
	ID              string    `json:"id"`
	Branch          string    `json:"branch"`
	Status          string    `json:"status"` // "queued" or "in_progress"
	CreatedAt       time.Time `json:"created_at"`
	DurationMinutes int       `json:"duration_minutes"`
	URL             string    `json:"url,omitempty"`
	CurrentStep     *string   `json:"current_step"`
	StepsCompleted  int       `json:"steps_completed"`
	StepsTotal      int       `json:"steps_total"`
}

// BranchForID returns the dedicated branch name for a job id.
func BranchForID(id string) string {
	return BranchPrefix + id
}

// IDFromBranch extracts the job id from a job branch name. It returns
// false for branches outside the job namespace ("main", "feature/x").
func IDFromBranch(branch string) (string, bool) {
	if !strings.HasPrefix(branch, BranchPrefix) {
		return "", false
	}
	id := branch[len(BranchPrefix):]
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// IsJobBranch reports whether branch is in the job namespace.
func IsJobBranch(branch string) bool {
	_, ok := IDFromBranch(branch)
	return ok
}
