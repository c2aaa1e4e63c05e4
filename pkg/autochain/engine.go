package autochain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/relayforge/relayforge/pkg/cache"
	"github.com/relayforge/relayforge/pkg/github"
	"github.com/relayforge/relayforge/pkg/jobs"
)

// AutoChainThreshold is the minimum confidence score for dispatching a
// follow-up job without human approval.
const AutoChainThreshold = 8

// dedupTTL bounds how long a handled completion event blocks redeliveries.
const dedupTTL = 24 * time.Hour

// Decision is the outcome of processing one completion event.
type Decision struct {
	Skipped    bool         // event was not a job completion, or a duplicate delivery
	Notify     string       // chat message to send; empty when Skipped
	Chain      *jobs.Handle // non-nil when a follow-up job was dispatched
	Confidence *int
	SpecFile   string
}

// Dispatcher is the subset of the job dispatcher the engine needs.
type Dispatcher interface {
	Create(ctx context.Context, description string) (jobs.Handle, error)
}

// Engine implements the auto-chain decision.
type Engine struct {
	ci         github.Client
	dispatcher Dispatcher
	handled    *cache.TTL[string, bool]
	logger     *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(ci github.Client, dispatcher Dispatcher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		ci:         ci,
		dispatcher: dispatcher,
		handled:    cache.New[string, bool](),
		logger:     logger,
	}
}

// Sweep drops expired dedup entries and returns how many were removed.
func (e *Engine) Sweep() int {
	return e.handled.Sweep()
}

// Decide processes a completion event. Non-completion shapes and duplicate
// deliveries are skipped, never errors. Webhook platforms redeliver on
// timeout, so the engine marks the job handled before dispatching; without
// the guard a redelivery would double-dispatch the follow-up job.
func (e *Engine) Decide(ctx context.Context, eventType string, body []byte, deliveryID string) (*Decision, error) {
	if eventType != EventPullRequest {
		return &Decision{Skipped: true}, nil
	}

	event, ok := ParsePullRequestEvent(body)
	if !ok {
		return &Decision{Skipped: true}, nil
	}

	jobID, ok := event.JobID()
	if !ok {
		return &Decision{Skipped: true}, nil
	}

	if e.alreadyHandled(jobID, deliveryID) {
		e.logger.Info("duplicate completion delivery skipped", "job_id", jobID, "delivery_id", deliveryID)
		return &Decision{Skipped: true}, nil
	}

	results := event.JobResults
	if results == nil {
		results = &JobResults{}
	}
	if results.PRURL == "" {
		results.PRURL = event.PullRequest.HTMLURL
	}

	detection := e.detect(ctx, event, results)

	if detection == nil {
		return &Decision{
			Notify: e.completionMessage(jobID, results),
		}, nil
	}

	decision := &Decision{
		Confidence: detection.Confidence,
		SpecFile:   detection.SpecFile,
	}

	if detection.Confidence != nil && *detection.Confidence >= AutoChainThreshold {
		handle, err := e.dispatcher.Create(ctx, buildJobDescription(detection))
		if err != nil {
			// The guard entry stays; a retried delivery must not
			// double-dispatch even after a partial failure.
			return nil, err
		}
		decision.Chain = &handle
		decision.Notify = e.autoChainMessage(jobID, detection, handle)
		e.logger.Info("auto-chain dispatched",
			"job_id", jobID,
			"next_job_id", handle.ID,
			"spec_file", detection.SpecFile,
			"confidence", *detection.Confidence,
		)
		return decision, nil
	}

	decision.Notify = e.approvalMessage(jobID, detection)
	return decision, nil
}

// alreadyHandled marks the event handled and reports whether it had been
// handled before. Both the platform delivery id and the job's terminal
// marker are recorded; either one suffices to suppress a duplicate.
func (e *Engine) alreadyHandled(jobID, deliveryID string) bool {
	duplicate := false
	if deliveryID != "" {
		if _, seen := e.handled.Get("delivery:" + deliveryID); seen {
			duplicate = true
		}
		e.handled.Set("delivery:"+deliveryID, true, dedupTTL)
	}
	if _, seen := e.handled.Get("job:" + jobID); seen {
		duplicate = true
	}
	e.handled.Set("job:"+jobID, true, dedupTTL)
	return duplicate
}

// detect looks for an active specification in the completion event and
// extracts the confidence score from all available text.
func (e *Engine) detect(ctx context.Context, event *PullRequestEvent, results *JobResults) *PRPDetection {
	specFile, found := DetectSpecFile(results.ChangedFiles)
	if !found {
		return nil
	}

	detection := &PRPDetection{
		SystemName: SystemNameFromSpecFile(specFile),
		SpecFile:   specFile,
	}

	// Spec content is best-effort enrichment; the branch may already be
	// merged away by the time we fetch.
	content, err := e.ci.FileContent(ctx, specFile, event.PullRequest.HeadRef)
	if err != nil {
		e.logger.Warn("failed to fetch spec content", "spec_file", specFile, "error", err)
	} else {
		detection.SpecContent = content
	}

	scanText := strings.Join([]string{
		results.CommitMessage,
		results.LogText,
		results.JobDescription,
		detection.SpecContent,
	}, "\n")
	detection.Confidence = ExtractConfidence(scanText)

	return detection
}

// buildJobDescription produces the follow-up build job's description.
func buildJobDescription(d *PRPDetection) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Execute the specification %s and build the %s system.\n\n", d.SpecFile, d.SystemName)
	if d.SpecContent != "" {
		b.WriteString(d.SpecContent)
	}
	return b.String()
}

func (e *Engine) completionMessage(jobID string, results *JobResults) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Job `%s` completed.*\n", jobID)
	if results.CommitMessage != "" {
		fmt.Fprintf(&b, "Commit: %s\n", firstLine(results.CommitMessage))
	}
	if results.MergeResult != "" {
		fmt.Fprintf(&b, "Merge: %s\n", results.MergeResult)
	}
	if results.PRURL != "" {
		fmt.Fprintf(&b, "[View pull request](%s)", results.PRURL)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (e *Engine) autoChainMessage(jobID string, d *PRPDetection, next jobs.Handle) string {
	return fmt.Sprintf(
		"*Job `%s` completed* with specification `%s` (confidence %d/10).\n"+
			"Build job `%s` was kicked off automatically on branch `%s`.",
		jobID, d.SpecFile, *d.Confidence, next.ID, next.Branch)
}

func (e *Engine) approvalMessage(jobID string, d *PRPDetection) string {
	confidence := "not stated"
	if d.Confidence != nil {
		confidence = fmt.Sprintf("%d/10", *d.Confidence)
	}
	return fmt.Sprintf(
		"*Job `%s` completed* with specification `%s`.\n"+
			"Confidence is %s, below the auto-build threshold.\n"+
			"Reply with *build %s* to approve the follow-up job.",
		jobID, d.SpecFile, confidence, d.SystemName)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
