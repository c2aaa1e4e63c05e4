package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rferrors "github.com/relayforge/relayforge/pkg/errors"
	"github.com/relayforge/relayforge/pkg/github"
)

func statusFixture(now time.Time) *fakeCI {
	return &fakeCI{
		runs: map[string][]github.RunInfo{
			github.RunStatusInProgress: {
				{ID: 11, HeadBranch: "job/abc123", Status: github.RunStatusInProgress, CreatedAt: now.Add(-10 * time.Minute)},
				{ID: 12, HeadBranch: "main", Status: github.RunStatusInProgress, CreatedAt: now},
			},
			github.RunStatusQueued: {
				{ID: 21, HeadBranch: "job/def456", Status: github.RunStatusQueued, CreatedAt: now.Add(-90 * time.Second)},
				{ID: 22, HeadBranch: "feature/x", Status: github.RunStatusQueued, CreatedAt: now},
			},
		},
		steps: map[int64]*github.StepProgress{
			11: {CurrentStep: "Run tests", StepsCompleted: 3, StepsTotal: 5},
		},
	}
}

func TestStatusService_FiltersToJobBranches(t *testing.T) {
	now := time.Now()
	ci := statusFixture(now)
	s := NewStatusService(ci, nil)
	s.now = func() time.Time { return now }

	report, err := s.Status(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, report.Jobs, 2, "non-job branches are excluded")
	assert.Equal(t, 1, report.Running)
	assert.Equal(t, 1, report.Queued)

	byID := map[string]View{}
	for _, j := range report.Jobs {
		byID[j.ID] = j
	}

	running := byID["abc123"]
	require.NotNil(t, running.CurrentStep)
	assert.Equal(t, "Run tests", *running.CurrentStep)
	assert.Equal(t, 3, running.StepsCompleted)
	assert.Equal(t, 5, running.StepsTotal)
	assert.Equal(t, 10, running.DurationMinutes)

	queued := byID["def456"]
	assert.Nil(t, queued.CurrentStep)
	assert.Equal(t, 2, queued.DurationMinutes, "90s rounds to 2 minutes")
}

func TestStatusService_FilterByJobID(t *testing.T) {
	now := time.Now()
	s := NewStatusService(statusFixture(now), nil)
	s.now = func() time.Time { return now }

	report, err := s.Status(context.Background(), "def456")
	require.NoError(t, err)
	require.Len(t, report.Jobs, 1)
	assert.Equal(t, "def456", report.Jobs[0].ID)
}

func TestStatusService_StepFailureDegrades(t *testing.T) {
	now := time.Now()
	ci := statusFixture(now)
	ci.stepErr = rferrors.NewGitHubErrorWithStatus("ListWorkflowJobs", 500, "boom")
	s := NewStatusService(ci, nil)
	s.now = func() time.Time { return now }

	report, err := s.Status(context.Background(), "abc123")
	require.NoError(t, err, "step detail failure must not fail the response")
	require.Len(t, report.Jobs, 1)
	assert.Nil(t, report.Jobs[0].CurrentStep)
}

func TestStatusService_CachesRemoteReads(t *testing.T) {
	now := time.Now()
	ci := statusFixture(now)
	s := NewStatusService(ci, nil)
	s.now = func() time.Time { return now }

	_, err := s.Status(context.Background(), "")
	require.NoError(t, err)
	_, err = s.Status(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, 2, ci.listCalls, "second call within the TTL must hit the cache")
	assert.Equal(t, 2, ci.stepCalls)
}
