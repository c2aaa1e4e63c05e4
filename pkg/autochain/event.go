// Package autochain decides, on CI completion, whether to automatically
// dispatch a dependent follow-up job or surface the result for human
// approval. The gate is a confidence score extracted from free-form text.
package autochain

import (
	"encoding/json"

	"github.com/relayforge/relayforge/pkg/jobs"
)

// Known webhook event types (the X-GitHub-Event header value).
const (
	EventPullRequest = "pull_request"
	EventPing        = "ping"
)

// JobResults is the structured completion summary the CI workflow attaches
// to the pull-request body payload.
type JobResults struct {
	JobDescription string   `json:"job_description"`
	CommitMessage  string   `json:"commit_message"`
	ChangedFiles   []string `json:"changed_files"`
	LogText        string   `json:"log_text"`
	PRURL          string   `json:"pr_url"`
	MergeResult    string   `json:"merge_result"`
}

// PullRequestEvent is the completion event shape the engine acts on.
type PullRequestEvent struct {
	Action      string      `json:"action"`
	PullRequest struct {
		HeadRef string `json:"head_ref"`
		HTMLURL string `json:"html_url"`
		Merged  bool   `json:"merged"`
	} `json:"pull_request"`
	JobResults *JobResults `json:"job_results"`
}

// rawPullRequestEvent mirrors the wire format, where the head branch is
// nested under pull_request.head.ref.
type rawPullRequestEvent struct {
	Action      string `json:"action"`
	PullRequest struct {
		HTMLURL string `json:"html_url"`
		Merged  bool   `json:"merged"`
		Head    struct {
			Ref string `json:"ref"`
		} `json:"head"`
	} `json:"pull_request"`
	JobResults *JobResults `json:"job_results"`
}

// ParsePullRequestEvent parses a webhook body into a PullRequestEvent.
// A body that does not decode, or decodes without a pull_request object,
// returns ok=false; the caller treats that as an unhandled event, not an
// error.
func ParsePullRequestEvent(body []byte) (*PullRequestEvent, bool) {
	var raw rawPullRequestEvent
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, false
	}
	if raw.PullRequest.Head.Ref == "" {
		return nil, false
	}

	event := &PullRequestEvent{
		Action:     raw.Action,
		JobResults: raw.JobResults,
	}
	event.PullRequest.HeadRef = raw.PullRequest.Head.Ref
	event.PullRequest.HTMLURL = raw.PullRequest.HTMLURL
	event.PullRequest.Merged = raw.PullRequest.Merged
	return event, true
}

// JobID returns the job id the event belongs to, if its head branch is a
// job branch.
func (e *PullRequestEvent) JobID() (string, bool) {
	return jobs.IDFromBranch(e.PullRequest.HeadRef)
}
