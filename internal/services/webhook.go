package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/krishkalaria12/echo-interview/internal/clients/openai"
	goredis "github.com/krishkalaria12/echo-interview/internal/clients/redis"
	"github.com/krishkalaria12/echo-interview/internal/clients/stream"
	"github.com/krishkalaria12/echo-interview/internal/data/repos/identity"
	"github.com/krishkalaria12/echo-interview/internal/data/repos/interviews"
	"github.com/krishkalaria12/echo-interview/internal/domain"
	apperrors "github.com/krishkalaria12/echo-interview/internal/pkg/errors"
	"github.com/krishkalaria12/echo-interview/internal/pkg/logger"
	"github.com/krishkalaria12/echo-interview/internal/prompts"
	"github.com/krishkalaria12/echo-interview/internal/temporalx"
	wf "github.com/krishkalaria12/echo-interview/internal/temporalx/interviews"
)

// WebhookEvent is the provider event envelope. Only the fields the
// dispatcher reads are modeled; everything else passes through untouched.
type WebhookEvent struct {
	Type    string `json:"type"`
	CallCID string `json:"call_cid"`

	Call *struct {
		CID    string         `json:"cid"`
		Custom map[string]any `json:"custom"`
	} `json:"call"`

	CallTranscription *struct {
		URL string `json:"url"`
	} `json:"call_transcription"`

	CallRecording *struct {
		URL string `json:"url"`
	} `json:"call_recording"`

	User *struct {
		ID string `json:"id"`
	} `json:"user"`

	ChannelID string `json:"channel_id"`

	Message *struct {
		Text string `json:"text"`
	} `json:"message"`
}

// WorkflowStarter is the slice of the Temporal client the dispatcher needs.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options temporalsdkclient.StartWorkflowOptions, workflow interface{}, args ...interface{}) (temporalsdkclient.WorkflowRun, error)
}

// ChatClient is the provider chat surface used by the message.new branch.
type ChatClient interface {
	ConnectAgent(ctx context.Context, callID, agentUserID, instructions string) error
	EndCall(ctx context.Context, callID string) error
	UpsertUser(ctx context.Context, user stream.ChatUser) error
	LastMessages(ctx context.Context, channelID string, limit int) ([]stream.Message, error)
	SendMessage(ctx context.Context, channelID, userID, text string) error
}

// ModelChat is the model surface for post-interview Q&A.
type ModelChat interface {
	ChatComplete(ctx context.Context, instructions string, messages []openai.ChatMessage) (string, error)
}

// WebhookService dispatches provider events into state transitions,
// workflow emissions, and chat replies. Every handled branch is idempotent
// under duplicate delivery.
type WebhookService interface {
	HandleEvent(ctx context.Context, ev *WebhookEvent) error
	EmitEnrichment(ctx context.Context, interviewID uuid.UUID) error
}

type webhookService struct {
	log        *logger.Logger
	interviews interviews.InterviewRepo
	agents     interviews.AgentRepo
	users      identity.UserRepo
	provider   ChatClient
	model      ModelChat
	workflows  WorkflowStarter
	guard      goredis.Guard
	taskQueue  string
}

func NewWebhookService(
	log *logger.Logger,
	interviewRepo interviews.InterviewRepo,
	agentRepo interviews.AgentRepo,
	userRepo identity.UserRepo,
	provider ChatClient,
	model ModelChat,
	workflows WorkflowStarter,
	guard goredis.Guard,
) WebhookService {
	return &webhookService{
		log:        log.With("service", "WebhookService"),
		interviews: interviewRepo,
		agents:     agentRepo,
		users:      userRepo,
		provider:   provider,
		model:      model,
		workflows:  workflows,
		guard:      guard,
		taskQueue:  temporalx.LoadConfig().TaskQueue,
	}
}

func (s *webhookService) HandleEvent(ctx context.Context, ev *WebhookEvent) error {
	if ev == nil {
		return fmt.Errorf("%w: missing event", apperrors.ErrInvalidArgument)
	}

	switch ev.Type {
	case "call.session_started":
		return s.sessionStarted(ctx, ev)
	case "call.session_participant_left":
		return s.participantLeft(ctx, ev)
	case "call.session_ended":
		return s.sessionEnded(ctx, ev)
	case "call.transcription_ready":
		return s.transcriptionReady(ctx, ev)
	case "call.recording_ready":
		return s.recordingReady(ctx, ev)
	case "message.new":
		return s.messageNew(ctx, ev)
	default:
		// Unrecognized events are acknowledged and dropped.
		s.log.Debug("ignoring webhook event", "type", ev.Type)
		return nil
	}
}

// customInterviewID reads the interview id the frontend stamps onto the call.
func customInterviewID(ev *WebhookEvent) (uuid.UUID, error) {
	if ev.Call == nil || ev.Call.Custom == nil {
		return uuid.Nil, fmt.Errorf("%w: missing interviewId", apperrors.ErrInvalidArgument)
	}
	raw, _ := ev.Call.Custom["interviewId"].(string)
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: missing interviewId", apperrors.ErrInvalidArgument)
	}
	return id, nil
}

// cidInterviewID parses the interview id out of a "type:id" call cid.
func cidInterviewID(callCID string) (uuid.UUID, error) {
	_, rest, ok := strings.Cut(callCID, ":")
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: missing interviewId", apperrors.ErrInvalidArgument)
	}
	id, err := uuid.Parse(strings.TrimSpace(rest))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: missing interviewId", apperrors.ErrInvalidArgument)
	}
	return id, nil
}

func (s *webhookService) sessionStarted(ctx context.Context, ev *WebhookEvent) error {
	id, err := customInterviewID(ev)
	if err != nil {
		return err
	}

	iv, err := s.interviews.GetStartable(ctx, id)
	if err != nil {
		return err
	}
	if iv == nil {
		return fmt.Errorf("%w: interview not found", apperrors.ErrNotFound)
	}

	if err := s.interviews.MarkActive(ctx, id, time.Now().UTC()); err != nil {
		return err
	}

	agent, err := s.agents.GetByInterviewID(ctx, id)
	if err != nil {
		return err
	}
	if agent == nil {
		return fmt.Errorf("%w: agent not found", apperrors.ErrNotFound)
	}

	instructions := agent.Instructions
	if strings.TrimSpace(instructions) == "" {
		instructions, err = s.generateInstructions(ctx, iv)
		if err != nil {
			return err
		}
		if err := s.agents.UpdateInstructions(ctx, agent.ID, instructions); err != nil {
			return err
		}
	}

	if err := s.provider.ConnectAgent(ctx, id.String(), agent.ID.String(), instructions); err != nil {
		return fmt.Errorf("connect agent: %w", err)
	}

	s.log.Info("interview started", "interview_id", id, "agent_id", agent.ID)
	return nil
}

// generateInstructions builds the interviewer system prompt for agents that
// were created without one.
func (s *webhookService) generateInstructions(ctx context.Context, iv *domain.Interview) (string, error) {
	candidateName := ""
	if user, err := s.users.GetByID(ctx, iv.UserID); err != nil {
		return "", err
	} else if user != nil {
		candidateName = user.Name
	}
	return prompts.Interviewer(prompts.InterviewerConfig{
		Interview:     iv,
		CandidateName: candidateName,
	}), nil
}

func (s *webhookService) participantLeft(ctx context.Context, ev *WebhookEvent) error {
	id, err := cidInterviewID(ev.CallCID)
	if err != nil {
		return err
	}
	if err := s.provider.EndCall(ctx, id.String()); err != nil {
		return fmt.Errorf("end call: %w", err)
	}
	return nil
}

func (s *webhookService) sessionEnded(ctx context.Context, ev *WebhookEvent) error {
	id, err := customInterviewID(ev)
	if err != nil {
		return err
	}

	moved, err := s.interviews.MarkProcessingIfActive(ctx, id, time.Now().UTC())
	if err != nil {
		return err
	}
	if !moved {
		// Duplicate or out-of-order delivery; already past active.
		s.log.Debug("session_ended ignored", "interview_id", id)
	}
	return nil
}

func (s *webhookService) transcriptionReady(ctx context.Context, ev *WebhookEvent) error {
	id, err := cidInterviewID(ev.CallCID)
	if err != nil {
		return err
	}
	if ev.CallTranscription == nil || strings.TrimSpace(ev.CallTranscription.URL) == "" {
		return fmt.Errorf("%w: missing transcription url", apperrors.ErrInvalidArgument)
	}

	iv, err := s.interviews.SetTranscriptURL(ctx, id, ev.CallTranscription.URL)
	if err != nil {
		return err
	}
	if iv == nil {
		return fmt.Errorf("%w: interview not found", apperrors.ErrInvalidArgument)
	}

	// Avoid duplicate processing events if already completed.
	if iv.Status == domain.StatusCompleted {
		return nil
	}
	return s.emitProcessing(ctx, id, iv.TranscriptURL)
}

// emitProcessing starts summarization and analysis exactly once per
// interview: a Redis SETNX guard collapses duplicate deliveries, and the
// deterministic workflow IDs backstop it on the Temporal side.
func (s *webhookService) emitProcessing(ctx context.Context, id uuid.UUID, transcriptURL string) error {
	if s.workflows == nil {
		return fmt.Errorf("temporal is not configured; cannot emit processing for interview %s", id)
	}
	if s.guard != nil {
		first, err := s.guard.Once(ctx, wf.SummarizeWorkflowID(id.String()))
		if err != nil {
			return fmt.Errorf("dedupe guard: %w", err)
		}
		if !first {
			s.log.Debug("processing already emitted", "interview_id", id)
			return nil
		}
	}

	payload := wf.ProcessingPayload{
		InterviewID:   id.String(),
		TranscriptURL: transcriptURL,
	}

	if _, err := s.workflows.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:        wf.SummarizeWorkflowID(id.String()),
		TaskQueue: s.taskQueue,
	}, wf.SummarizeWorkflowName, payload); err != nil {
		return fmt.Errorf("start summarize workflow: %w", err)
	}

	if _, err := s.workflows.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:        wf.AnalysisWorkflowID(id.String()),
		TaskQueue: s.taskQueue,
	}, wf.AnalysisWorkflowName, payload); err != nil {
		return fmt.Errorf("start analysis workflow: %w", err)
	}

	s.log.Info("processing emitted", "interview_id", id)
	return nil
}

func (s *webhookService) recordingReady(ctx context.Context, ev *WebhookEvent) error {
	id, err := cidInterviewID(ev.CallCID)
	if err != nil {
		return err
	}
	if ev.CallRecording == nil || strings.TrimSpace(ev.CallRecording.URL) == "" {
		return fmt.Errorf("%w: missing recording url", apperrors.ErrInvalidArgument)
	}
	return s.interviews.SetRecordingURL(ctx, id, ev.CallRecording.URL)
}

func (s *webhookService) messageNew(ctx context.Context, ev *WebhookEvent) error {
	if ev.User == nil || ev.User.ID == "" || ev.ChannelID == "" ||
		ev.Message == nil || strings.TrimSpace(ev.Message.Text) == "" {
		return fmt.Errorf("%w: missing userId, channelId, or text", apperrors.ErrInvalidArgument)
	}

	id, err := uuid.Parse(ev.ChannelID)
	if err != nil {
		return fmt.Errorf("%w: invalid channel id", apperrors.ErrInvalidArgument)
	}

	iv, err := s.interviews.GetByIDAndStatus(ctx, id, domain.StatusCompleted)
	if err != nil {
		return err
	}
	if iv == nil {
		return fmt.Errorf("%w: interview not found", apperrors.ErrNotFound)
	}

	agent, err := s.agents.GetByInterviewID(ctx, id)
	if err != nil {
		return err
	}
	if agent == nil {
		return fmt.Errorf("%w: agent not found", apperrors.ErrNotFound)
	}

	// The agent's own messages come back through the webhook too.
	if ev.User.ID == agent.ID.String() {
		return nil
	}

	history, err := s.provider.LastMessages(ctx, ev.ChannelID, 5)
	if err != nil {
		return fmt.Errorf("load channel history: %w", err)
	}

	messages := make([]openai.ChatMessage, 0, len(history)+1)
	for _, m := range history {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		role := "user"
		if m.UserID == agent.ID.String() {
			role = "assistant"
		}
		messages = append(messages, openai.ChatMessage{Role: role, Content: m.Text})
	}
	messages = append(messages, openai.ChatMessage{Role: "user", Content: ev.Message.Text})

	summary := ""
	if iv.Summary != nil {
		summary = *iv.Summary
	}
	instructions := prompts.ChatInstructions(summary, agent.Instructions)

	reply, err := s.model.ChatComplete(ctx, instructions, messages)
	if err != nil {
		return fmt.Errorf("chat completion: %w", err)
	}

	avatar := prompts.AvatarURI(agent.Name)
	if err := s.provider.UpsertUser(ctx, stream.ChatUser{
		ID:    agent.ID.String(),
		Name:  agent.Name,
		Image: avatar,
	}); err != nil {
		return fmt.Errorf("upsert agent identity: %w", err)
	}

	if err := s.provider.SendMessage(ctx, ev.ChannelID, agent.ID.String(), reply); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

// EmitEnrichment starts the candidate profile enrichment workflow for an
// upcoming interview.
func (s *webhookService) EmitEnrichment(ctx context.Context, interviewID uuid.UUID) error {
	if s.workflows == nil {
		return fmt.Errorf("temporal is not configured; cannot emit enrichment for interview %s", interviewID)
	}
	iv, err := s.interviews.GetByID(ctx, interviewID)
	if err != nil {
		return err
	}
	if iv == nil {
		return fmt.Errorf("%w: interview not found", apperrors.ErrNotFound)
	}

	agent, err := s.agents.GetByInterviewID(ctx, interviewID)
	if err != nil {
		return err
	}
	if agent == nil {
		return fmt.Errorf("%w: agent not found", apperrors.ErrNotFound)
	}

	payload := wf.EnrichPayload{
		InterviewID:  interviewID.String(),
		AgentID:      agent.ID.String(),
		Position:     iv.Position,
		ResumeURL:    iv.ResumeURL,
		PortfolioURL: iv.PortfolioURL,
		GithubURL:    iv.GithubURL,
		LinkedinURL:  iv.LinkedinURL,
	}

	if _, err := s.workflows.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:        wf.EnrichWorkflowID(interviewID.String()),
		TaskQueue: s.taskQueue,
	}, wf.EnrichWorkflowName, payload); err != nil {
		return fmt.Errorf("start enrich workflow: %w", err)
	}

	s.log.Info("enrichment emitted", "interview_id", interviewID)
	return nil
}
