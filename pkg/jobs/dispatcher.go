package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	rferrors "github.com/relayforge/relayforge/pkg/errors"
	"github.com/relayforge/relayforge/pkg/github"
)

// Dispatcher creates uniquely identified jobs and triggers remote CI
// execution for them. Dispatch is fire-and-forget: completion is observed
// later via the completion webhook or by polling.
type Dispatcher struct {
	ci     github.Client
	logger *slog.Logger
	retry  rferrors.RetryConfig
	newID  func() string
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(ci github.Client, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		ci:     ci,
		logger: logger,
		retry: rferrors.RetryConfig{
			Attempts:  3,
			BaseDelay: time.Second,
			MaxDelay:  10 * time.Second,
			Jitter:    rferrors.DefaultJitter,
			Label:     "repository dispatch",
		},
		newID: newJobID,
	}
}

// Create generates a fresh job id, maps it to its branch, and triggers the
// CI platform with retries. The dispatch is a single network round trip
// whose failure must not silently drop the job.
func (d *Dispatcher) Create(ctx context.Context, description string) (Handle, error) {
	if description == "" {
		return Handle{}, rferrors.NewValidationError("description", "job description is required")
	}

	handle := Handle{ID: d.newID()}
	handle.Branch = BranchForID(handle.ID)

	err := rferrors.Retry(ctx, d.retry, func() error {
		return d.ci.Dispatch(ctx, github.DispatchPayload{
			JobID:          handle.ID,
			JobDescription: description,
		})
	})
	if err != nil {
		return Handle{}, rferrors.Wrapf(err, "failed to dispatch job %s", handle.ID)
	}

	d.logger.Info("job dispatched", "job_id", handle.ID, "branch", handle.Branch)
	return handle, nil
}

// newJobID returns a collision-resistant job id. The UUID is shortened to
// its first segment plus a time component to keep branch names readable.
func newJobID() string {
	return uuid.NewString()[:8] + "-" + time.Now().UTC().Format("20060102150405")
}
