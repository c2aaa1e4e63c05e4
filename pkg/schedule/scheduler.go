// Package schedule runs recurring maintenance tasks on cron expressions.
package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	rferrors "github.com/relayforge/relayforge/pkg/errors"
)

// Task is one recurring unit of work. Run receives a context cancelled on
// scheduler shutdown.
type Task struct {
	Name    string
	Spec    string // standard five-field cron expression
	Enabled bool
	Run     func(ctx context.Context)
}

type entry struct {
	task     Task
	schedule cron.Schedule
}

// Scheduler runs each enabled task in its own goroutine, waking at the
// times its cron expression produces.
type Scheduler struct {
	entries []entry
	logger  *slog.Logger
	now     func() time.Time
	wg      sync.WaitGroup
}

// NewScheduler creates an empty Scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		logger: logger,
		now:    time.Now,
	}
}

// Add registers a task. Disabled tasks are accepted and skipped so config
// toggles do not change call sites. The cron expression is validated here.
func (s *Scheduler) Add(task Task) error {
	sched, err := cron.ParseStandard(task.Spec)
	if err != nil {
		return rferrors.Wrapf(err, "invalid cron expression %q for task %s", task.Spec, task.Name)
	}
	s.entries = append(s.entries, entry{task: task, schedule: sched})
	return nil
}

// Start launches the enabled tasks and returns immediately. Cancel ctx to
// stop; Wait blocks until all task goroutines have exited.
func (s *Scheduler) Start(ctx context.Context) {
	for _, e := range s.entries {
		if !e.task.Enabled {
			s.logger.Debug("scheduled task disabled", "task", e.task.Name)
			continue
		}
		s.wg.Add(1)
		go s.runLoop(ctx, e)
		s.logger.Info("scheduled task started", "task", e.task.Name, "spec", e.task.Spec)
	}
}

// Wait blocks until every running task goroutine has stopped.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) runLoop(ctx context.Context, e entry) {
	defer s.wg.Done()

	for {
		next := e.schedule.Next(s.now())
		timer := time.NewTimer(next.Sub(s.now()))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.runTask(ctx, e.task)
	}
}

// runTask isolates one invocation so a panicking task does not take down
// the scheduler.
func (s *Scheduler) runTask(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled task panicked", "task", task.Name, "panic", r)
		}
	}()

	start := s.now()
	task.Run(ctx)
	s.logger.Debug("scheduled task finished", "task", task.Name, "duration", s.now().Sub(start))
}
