package github

import (
	"context"
	"encoding/json"
	"log/slog"

	gh "github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	"github.com/relayforge/relayforge/pkg/config"
	rferrors "github.com/relayforge/relayforge/pkg/errors"
)

// Client defines the CI platform operations relayforge needs.
type Client interface {
	// Dispatch sends a repository_dispatch event carrying the job payload.
	Dispatch(ctx context.Context, payload DispatchPayload) error

	// ListRuns lists workflow runs with the given status, optionally
	// restricted to a branch. Status is one of the RunStatus constants.
	ListRuns(ctx context.Context, status, branch string) ([]RunInfo, error)

	// RunSteps fetches per-step progress for a run.
	RunSteps(ctx context.Context, runID int64) (*StepProgress, error)

	// FileContent fetches the decoded content of a file at a ref.
	FileContent(ctx context.Context, path, ref string) (string, error)
}

// APIClient implements Client using the GitHub REST API.
type APIClient struct {
	client *gh.Client
	owner  string
	repo   string
	logger *slog.Logger
}

// Compile-time check that APIClient implements Client.
var _ Client = (*APIClient)(nil)

// NewAPIClient creates a GitHub API client for the configured repository.
func NewAPIClient(cfg *config.GitHubConfig, logger *slog.Logger) (*APIClient, error) {
	if cfg == nil {
		return nil, rferrors.NewGitHubError("NewAPIClient", "github config is required")
	}
	if cfg.Token == "" {
		return nil, rferrors.NewGitHubError("NewAPIClient", "token is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	tc := oauth2.NewClient(context.Background(), ts)

	return &APIClient{
		client: gh.NewClient(tc),
		owner:  cfg.Owner,
		repo:   cfg.Repo,
		logger: logger,
	}, nil
}

// Dispatch sends a repository_dispatch event for a job. Workflows in the
// remote repository listen for DispatchEventType and check out the job
// branch themselves.
func (c *APIClient) Dispatch(ctx context.Context, payload DispatchPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return rferrors.NewGitHubErrorWithCause("RepositoryDispatch", "failed to marshal payload", err)
	}
	rawMsg := json.RawMessage(raw)

	c.logger.Debug("dispatching job", "job_id", payload.JobID)

	_, resp, err := c.client.Repositories.Dispatch(ctx, c.owner, c.repo, gh.DispatchRequestOptions{
		EventType:     DispatchEventType,
		ClientPayload: &rawMsg,
	})
	if err != nil {
		return toGitHubError("RepositoryDispatch", resp, err)
	}
	return nil
}

// ListRuns lists workflow runs with the given status.
func (c *APIClient) ListRuns(ctx context.Context, status, branch string) ([]RunInfo, error) {
	opts := &gh.ListWorkflowRunsOptions{
		Status:      status,
		Branch:      branch,
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	runs, resp, err := c.client.Actions.ListRepositoryWorkflowRuns(ctx, c.owner, c.repo, opts)
	if err != nil {
		return nil, toGitHubError("ListWorkflowRuns", resp, err)
	}

	result := make([]RunInfo, 0, len(runs.WorkflowRuns))
	for _, run := range runs.WorkflowRuns {
		result = append(result, RunInfo{
			ID:         run.GetID(),
			Name:       run.GetName(),
			HeadBranch: run.GetHeadBranch(),
			Status:     run.GetStatus(),
			URL:        run.GetHTMLURL(),
			CreatedAt:  run.GetCreatedAt().Time,
		})
	}
	return result, nil
}

// RunSteps fetches the jobs of a run and aggregates step progress across
// them. The in-progress step of the first in-progress job wins.
func (c *APIClient) RunSteps(ctx context.Context, runID int64) (*StepProgress, error) {
	jobs, resp, err := c.client.Actions.ListWorkflowJobs(ctx, c.owner, c.repo, runID, &gh.ListWorkflowJobsOptions{})
	if err != nil {
		return nil, toGitHubError("ListWorkflowJobs", resp, err)
	}

	progress := &StepProgress{}
	for _, job := range jobs.Jobs {
		for _, step := range job.Steps {
			progress.StepsTotal++
			if step.GetStatus() == RunStatusCompleted {
				progress.StepsCompleted++
				continue
			}
			if step.GetStatus() == RunStatusInProgress && progress.CurrentStep == "" {
				progress.CurrentStep = step.GetName()
			}
		}
	}
	return progress, nil
}

// FileContent fetches the decoded content of a file at a ref.
func (c *APIClient) FileContent(ctx context.Context, path, ref string) (string, error) {
	file, _, resp, err := c.client.Repositories.GetContents(ctx, c.owner, c.repo, path,
		&gh.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return "", toGitHubError("GetContents", resp, err)
	}
	if file == nil {
		return "", rferrors.NewGitHubError("GetContents", path+" is a directory, not a file")
	}

	content, err := file.GetContent()
	if err != nil {
		return "", rferrors.NewGitHubErrorWithCause("GetContents", "failed to decode content", err)
	}
	return content, nil
}

// toGitHubError converts a go-github error into a typed GitHubError,
// preserving the HTTP status for retryability classification.
func toGitHubError(operation string, resp *gh.Response, err error) error {
	if resp != nil {
		return rferrors.NewGitHubErrorWithStatus(operation, resp.StatusCode, err.Error())
	}
	// No response means a transport-level failure, which is worth retrying.
	return &rferrors.GitHubError{
		Operation: operation,
		Message:   "request failed",
		Retryable: true,
		Cause:     err,
	}
}
