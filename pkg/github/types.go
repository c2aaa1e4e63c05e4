// Package github provides the CI platform integration for relayforge.
//
// Jobs are executed remotely by GitHub Actions: dispatching a job sends a
// repository_dispatch event, and progress is observed by listing workflow
// runs restricted to job branches.
package github

import "time"

// RunInfo describes one workflow run.
type RunInfo struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	HeadBranch string    `json:"head_branch"`
	Status     string    `json:"status"` // "queued", "in_progress", "completed"
	URL        string    `json:"url"`
	CreatedAt  time.Time `json:"created_at"`
}

// StepProgress summarizes per-step progress of a run.
type StepProgress struct {
	CurrentStep    string `json:"current_step"`
	StepsCompleted int    `json:"steps_completed"`
	StepsTotal     int    `json:"steps_total"`
}

// DispatchPayload is the client payload of a job dispatch event.
type DispatchPayload struct {
	JobID          string `json:"job_id"`
	JobDescription string `json:"job_description"`
}

// Run status constants, mirroring the GitHub Actions API.
const (
	RunStatusQueued     = "queued"
	RunStatusInProgress = "in_progress"
	RunStatusCompleted  = "completed"
)

// DispatchEventType is the repository_dispatch event type workflows
// subscribe to.
const DispatchEventType = "relay-job"
