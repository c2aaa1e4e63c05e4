package jobs

import (
	"context"
	"sync"

	"github.com/relayforge/relayforge/pkg/github"
)

// fakeCI is an in-memory github.Client for tests.
type fakeCI struct {
	mu            sync.Mutex
	dispatches    []github.DispatchPayload
	dispatchErrs  []error // consumed per call; nil entry means success
	runs          map[string][]github.RunInfo
	steps         map[int64]*github.StepProgress
	stepErr       error
	listCalls     int
	stepCalls     int
	fileContents  map[string]string
}

var _ github.Client = (*fakeCI)(nil)

func (f *fakeCI) Dispatch(_ context.Context, payload github.DispatchPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatches = append(f.dispatches, payload)
	if len(f.dispatchErrs) > 0 {
		err := f.dispatchErrs[0]
		f.dispatchErrs = f.dispatchErrs[1:]
		return err
	}
	return nil
}

func (f *fakeCI) ListRuns(_ context.Context, status, branch string) ([]github.RunInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	runs := f.runs[status]
	if branch == "" {
		return runs, nil
	}
	var filtered []github.RunInfo
	for _, r := range runs {
		if r.HeadBranch == branch {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

func (f *fakeCI) RunSteps(_ context.Context, runID int64) (*github.StepProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stepCalls++
	if f.stepErr != nil {
		return nil, f.stepErr
	}
	return f.steps[runID], nil
}

func (f *fakeCI) FileContent(_ context.Context, path, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fileContents[path], nil
}
