package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/relayforge/relayforge/pkg/cache"
	"github.com/relayforge/relayforge/pkg/github"
)

// StatusTTL bounds call volume against the CI platform's rate limit.
const StatusTTL = 30 * time.Second

// StatusReport summarizes the active jobs.
type StatusReport struct {
	Jobs    []View `json:"jobs"`
	Queued  int    `json:"queued"`
	Running int    `json:"running"`
}

// StatusService queries the CI platform for running and queued jobs,
// enriches them with step-level progress, and memoizes every remote read
// behind a TTL cache.
type StatusService struct {
	ci        github.Client
	runCache  *cache.TTL[string, []github.RunInfo]
	stepCache *cache.TTL[int64, *github.StepProgress]
	logger    *slog.Logger
	now       func() time.Time
}

// NewStatusService creates a StatusService.
func NewStatusService(ci github.Client, logger *slog.Logger) *StatusService {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusService{
		ci:        ci,
		runCache:  cache.New[string, []github.RunInfo](),
		stepCache: cache.New[int64, *github.StepProgress](),
		logger:    logger,
		now:       time.Now,
	}
}

// Sweep drops expired cache entries and returns how many were removed.
func (s *StatusService) Sweep() int {
	return s.runCache.Sweep() + s.stepCache.Sweep()
}

// Status reports active jobs. If jobID is non-empty the result is filtered
// to that job's branch. The two run-list queries are issued concurrently;
// a step-detail failure for one run degrades that run's view rather than
// failing the response.
func (s *StatusService) Status(ctx context.Context, jobID string) (*StatusReport, error) {
	var (
		wg         sync.WaitGroup
		inProgress []github.RunInfo
		queued     []github.RunInfo
		errRunning error
		errQueued  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		inProgress, errRunning = s.listRuns(ctx, github.RunStatusInProgress)
	}()
	go func() {
		defer wg.Done()
		queued, errQueued = s.listRuns(ctx, github.RunStatusQueued)
	}()
	wg.Wait()

	if errRunning != nil {
		return nil, errRunning
	}
	if errQueued != nil {
		return nil, errQueued
	}

	report := &StatusReport{Jobs: []View{}}
	for _, run := range append(inProgress, queued...) {
		id, ok := IDFromBranch(run.HeadBranch)
		if !ok {
			continue
		}
		if jobID != "" && id != jobID {
			continue
		}

		view := View{
			ID:              id,
			Branch:          run.HeadBranch,
			Status:          run.Status,
			CreatedAt:       run.CreatedAt,
			DurationMinutes: roundToMinutes(s.now().Sub(run.CreatedAt)),
			URL:             run.URL,
		}

		if progress := s.runSteps(ctx, run.ID); progress != nil {
			if progress.CurrentStep != "" {
				step := progress.CurrentStep
				view.CurrentStep = &step
			}
			view.StepsCompleted = progress.StepsCompleted
			view.StepsTotal = progress.StepsTotal
		}

		report.Jobs = append(report.Jobs, view)
		switch run.Status {
		case github.RunStatusQueued:
			report.Queued++
		case github.RunStatusInProgress:
			report.Running++
		}
	}

	return report, nil
}

// listRuns fetches runs by status through the cache, filtered to job branches.
func (s *StatusService) listRuns(ctx context.Context, status string) ([]github.RunInfo, error) {
	return s.runCache.GetOrSet("runs:"+status, StatusTTL, func() ([]github.RunInfo, error) {
		runs, err := s.ci.ListRuns(ctx, status, "")
		if err != nil {
			return nil, err
		}
		jobRuns := make([]github.RunInfo, 0, len(runs))
		for _, run := range runs {
			if IsJobBranch(run.HeadBranch) {
				jobRuns = append(jobRuns, run)
			}
		}
		return jobRuns, nil
	})
}

// runSteps fetches step progress through the cache, best-effort.
func (s *StatusService) runSteps(ctx context.Context, runID int64) *github.StepProgress {
	progress, err := s.stepCache.GetOrSet(runID, StatusTTL, func() (*github.StepProgress, error) {
		return s.ci.RunSteps(ctx, runID)
	})
	if err != nil {
		s.logger.Warn("failed to fetch step detail", "run_id", fmt.Sprint(runID), "error", err)
		return nil
	}
	return progress
}

// roundToMinutes rounds a duration to the nearest minute.
func roundToMinutes(d time.Duration) int {
	return int((d + 30*time.Second) / time.Minute)
}
