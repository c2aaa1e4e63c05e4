// Package assistant turns inbound chat messages into replies and build
// jobs. Short imperative commands are handled directly; everything else
// is forwarded to the LLM with conversation context, and the reply is
// scanned for a job-creation directive.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/relayforge/relayforge/pkg/ai"
	"github.com/relayforge/relayforge/pkg/conversation"
	rferrors "github.com/relayforge/relayforge/pkg/errors"
	"github.com/relayforge/relayforge/pkg/jobs"
)

// systemPrompt frames the LLM's role and the directive protocol. The model
// never executes anything itself; it can only emit a CREATE_JOB line that
// this service acts on.
const systemPrompt = `You are RelayForge, an assistant that manages autonomous CI build jobs for a software repository.

Users chat with you to start builds, check progress, and discuss results. When the user clearly asks you to start a build job, include exactly one line in your reply of the form:

CREATE_JOB: <one-line description of what the job should build>

Only emit CREATE_JOB when the user has asked for a build. For questions, status discussions, or anything ambiguous, reply normally without the directive and ask for clarification if needed. Keep replies concise and use plain markdown.`

// directivePattern matches a CREATE_JOB line anywhere in the model reply.
// Only the first match is acted on.
var directivePattern = regexp.MustCompile(`(?m)^\s*CREATE_JOB:\s*(.+?)\s*$`)

// JobCreator dispatches a new build job.
type JobCreator interface {
	Create(ctx context.Context, description string) (jobs.Handle, error)
}

// StatusProvider reports active jobs.
type StatusProvider interface {
	Status(ctx context.Context, jobID string) (*jobs.StatusReport, error)
}

// Service is the conversational front door shared by the Telegram webhook
// and the web chat endpoint.
type Service struct {
	provider   ai.Provider
	store      conversation.Store
	dispatcher JobCreator
	status     StatusProvider
	logger     *slog.Logger
}

// NewService creates a Service.
func NewService(provider ai.Provider, store conversation.Store, dispatcher JobCreator, status StatusProvider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		provider:   provider,
		store:      store,
		dispatcher: dispatcher,
		status:     status,
		logger:     logger,
	}
}

// HandleMessage processes one inbound chat message and returns the markdown
// reply to send back. Commands are serviced locally; free-form text goes to
// the LLM with the stored conversation history.
func (s *Service) HandleMessage(ctx context.Context, conversationID, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", rferrors.NewValidationError("text", "message is empty")
	}

	if reply, handled, err := s.handleCommand(ctx, conversationID, text); handled {
		return reply, err
	}

	return s.chat(ctx, conversationID, text)
}

// ClearHistory discards the stored conversation.
func (s *Service) ClearHistory(conversationID string) {
	s.store.Clear(conversationID)
}

// History returns the stored conversation.
func (s *Service) History(conversationID string) []conversation.Entry {
	return s.store.Get(conversationID)
}

// handleCommand services the short imperative commands that should not
// cost an LLM round trip.
func (s *Service) handleCommand(ctx context.Context, conversationID, text string) (string, bool, error) {
	lower := strings.ToLower(text)

	switch {
	case lower == "clear" || lower == "reset":
		s.store.Clear(conversationID)
		return "Conversation history cleared.", true, nil

	case lower == "status" || strings.HasPrefix(lower, "status "):
		jobID := strings.TrimSpace(text[len("status"):])
		reply, err := s.statusReply(ctx, jobID)
		return reply, true, err

	case strings.HasPrefix(lower, "build "):
		description := strings.TrimSpace(text[len("build"):])
		reply, err := s.createJob(ctx, description)
		if err == nil {
			s.store.Append(conversationID, conversation.RoleUser, text)
			s.store.Append(conversationID, conversation.RoleAssistant, reply)
		}
		return reply, true, err
	}

	return "", false, nil
}

// chat forwards the message to the LLM with history and executes any job
// directive in the reply.
func (s *Service) chat(ctx context.Context, conversationID, text string) (string, error) {
	if s.provider == nil || !s.provider.IsAvailable() {
		return "No AI provider is configured. You can still use *build <description>*, *status*, and *clear*.", nil
	}

	history := s.store.Get(conversationID)

	messages := make([]ai.Message, 0, len(history)+2)
	messages = append(messages, ai.Message{Role: "system", Content: systemPrompt})
	for _, e := range history {
		messages = append(messages, ai.Message{Role: string(e.Role), Content: e.Content})
	}
	messages = append(messages, ai.Message{Role: "user", Content: text})

	resp, err := s.provider.Chat(ctx, messages)
	if err != nil {
		return "", rferrors.Wrap(err, "chat completion failed")
	}

	reply := s.applyDirective(ctx, resp.Content)

	s.store.Append(conversationID, conversation.RoleUser, text)
	s.store.Append(conversationID, conversation.RoleAssistant, reply)

	return reply, nil
}

// applyDirective acts on the first CREATE_JOB line in the model reply,
// replacing it with the dispatch outcome. A failed dispatch is reported in
// the reply rather than returned as an error so the user sees what
// happened.
func (s *Service) applyDirective(ctx context.Context, reply string) string {
	match := directivePattern.FindStringSubmatchIndex(reply)
	if match == nil {
		return reply
	}

	description := reply[match[2]:match[3]]
	confirmation, err := s.createJob(ctx, description)
	if err != nil {
		s.logger.Error("directive dispatch failed", "error", err)
		confirmation = fmt.Sprintf("I tried to start that job but dispatch failed: %v", err)
	}

	replaced := reply[:match[0]] + confirmation + reply[match[1]:]
	return strings.TrimSpace(replaced)
}

// createJob dispatches a job and renders the confirmation message.
func (s *Service) createJob(ctx context.Context, description string) (string, error) {
	handle, err := s.dispatcher.Create(ctx, description)
	if err != nil {
		return "", err
	}
	s.logger.Info("job created from chat", "job_id", handle.ID, "branch", handle.Branch)
	return fmt.Sprintf("Started job **%s** on branch `%s`.\nSend *status %s* to check progress.", handle.ID, handle.Branch, handle.ID), nil
}

// statusReply renders the active-jobs report as chat markdown.
func (s *Service) statusReply(ctx context.Context, jobID string) (string, error) {
	report, err := s.status.Status(ctx, jobID)
	if err != nil {
		return "", rferrors.Wrap(err, "status query failed")
	}

	if len(report.Jobs) == 0 {
		if jobID != "" {
			return fmt.Sprintf("No active run found for job **%s**. It may have completed already.", jobID), nil
		}
		return "No active jobs. Send *build <description>* to start one.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Active jobs** (%d running, %d queued)\n", report.Running, report.Queued)
	for _, job := range report.Jobs {
		fmt.Fprintf(&b, "\n**%s** — %s, %dm", job.ID, job.Status, job.DurationMinutes)
		if job.StepsTotal > 0 {
			fmt.Fprintf(&b, ", step %d/%d", job.StepsCompleted, job.StepsTotal)
		}
		if job.CurrentStep != nil {
			fmt.Fprintf(&b, " (%s)", *job.CurrentStep)
		}
		if job.URL != "" {
			fmt.Fprintf(&b, "\n[view run](%s)", job.URL)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
