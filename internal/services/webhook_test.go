package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/krishkalaria12/echo-interview/internal/clients/openai"
	goredis "github.com/krishkalaria12/echo-interview/internal/clients/redis"
	"github.com/krishkalaria12/echo-interview/internal/clients/stream"
	"github.com/krishkalaria12/echo-interview/internal/data/repos/identity"
	"github.com/krishkalaria12/echo-interview/internal/data/repos/interviews"
	"github.com/krishkalaria12/echo-interview/internal/data/repos/testutil"
	"github.com/krishkalaria12/echo-interview/internal/domain"
	apperrors "github.com/krishkalaria12/echo-interview/internal/pkg/errors"
)

type fakeProvider struct {
	connectCalls int
	connectAgent string
	connectInstr string
	endedCalls   []string
	history      []stream.Message
	upserted     []stream.ChatUser
	sent         []struct {
		ChannelID string
		UserID    string
		Text      string
	}
}

func (f *fakeProvider) ConnectAgent(_ context.Context, callID, agentUserID, instructions string) error {
	f.connectCalls++
	f.connectAgent = agentUserID
	f.connectInstr = instructions
	return nil
}

func (f *fakeProvider) EndCall(_ context.Context, callID string) error {
	f.endedCalls = append(f.endedCalls, callID)
	return nil
}

func (f *fakeProvider) UpsertUser(_ context.Context, u stream.ChatUser) error {
	f.upserted = append(f.upserted, u)
	return nil
}

func (f *fakeProvider) LastMessages(_ context.Context, _ string, _ int) ([]stream.Message, error) {
	return f.history, nil
}

func (f *fakeProvider) SendMessage(_ context.Context, channelID, userID, text string) error {
	f.sent = append(f.sent, struct {
		ChannelID string
		UserID    string
		Text      string
	}{channelID, userID, text})
	return nil
}

type fakeModel struct {
	reply    string
	gotInstr string
	gotMsgs  []openai.ChatMessage
}

func (f *fakeModel) ChatComplete(_ context.Context, instructions string, messages []openai.ChatMessage) (string, error) {
	f.gotInstr = instructions
	f.gotMsgs = messages
	return f.reply, nil
}

type startedWorkflow struct {
	ID       string
	Workflow string
}

type fakeStarter struct {
	started []startedWorkflow
}

func (f *fakeStarter) ExecuteWorkflow(_ context.Context, options temporalsdkclient.StartWorkflowOptions, workflow interface{}, _ ...interface{}) (temporalsdkclient.WorkflowRun, error) {
	name, _ := workflow.(string)
	f.started = append(f.started, startedWorkflow{ID: options.ID, Workflow: name})
	return nil, nil
}

type fakeGuard struct {
	seen map[string]bool
}

func (f *fakeGuard) Once(_ context.Context, key string) (bool, error) {
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func (f *fakeGuard) RecordDeadLetter(context.Context, goredis.DeadLetter) error { return nil }

func (f *fakeGuard) Close() error { return nil }

type fixture struct {
	svc        WebhookService
	interviews interviews.InterviewRepo
	agents     interviews.AgentRepo
	users      identity.UserRepo
	provider   *fakeProvider
	model      *fakeModel
	starter    *fakeStarter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := testutil.MemDB(t)
	log := testutil.Logger(t)

	f := &fixture{
		interviews: interviews.NewInterviewRepo(gdb, log),
		agents:     interviews.NewAgentRepo(gdb, log),
		users:      identity.NewUserRepo(gdb, log),
		provider:   &fakeProvider{},
		model:      &fakeModel{reply: "model reply"},
		starter:    &fakeStarter{},
	}
	f.svc = NewWebhookService(log, f.interviews, f.agents, f.users, f.provider, f.model, f.starter, &fakeGuard{})
	return f
}

func seedInterview(t *testing.T, f *fixture, status domain.InterviewStatus) *domain.Interview {
	t.Helper()
	iv := &domain.Interview{
		Name:            "Backend screen",
		UserID:          uuid.New(),
		Position:        "Backend Engineer",
		ExperienceLevel: domain.LevelMid,
		InterviewType:   domain.TypeTechnical,
		ResumeURL:       "https://example.com/resume.pdf",
		Status:          status,
	}
	if err := f.interviews.Create(context.Background(), iv); err != nil {
		t.Fatalf("seed interview: %v", err)
	}
	return iv
}

func seedAgent(t *testing.T, f *fixture, interviewID uuid.UUID) *domain.Agent {
	t.Helper()
	agent := &domain.Agent{
		Name:         "Lisa",
		UserID:       uuid.New(),
		InterviewID:  &interviewID,
		Instructions: "You are the interviewer.",
	}
	if err := f.agents.Create(context.Background(), agent); err != nil {
		t.Fatalf("seed agent: %v", err)
	}
	return agent
}

func sessionStartedEvent(id uuid.UUID) *WebhookEvent {
	ev := &WebhookEvent{Type: "call.session_started"}
	ev.Call = &struct {
		CID    string         `json:"cid"`
		Custom map[string]any `json:"custom"`
	}{
		CID:    "default:" + id.String(),
		Custom: map[string]any{"interviewId": id.String()},
	}
	return ev
}

func TestSessionStartedMarksActiveAndConnectsAgent(t *testing.T) {
	f := newFixture(t)
	iv := seedInterview(t, f, domain.StatusUpcoming)
	agent := seedAgent(t, f, iv.ID)

	if err := f.svc.HandleEvent(context.Background(), sessionStartedEvent(iv.ID)); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	got, err := f.interviews.GetByID(context.Background(), iv.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.StatusActive {
		t.Fatalf("status = %q, want active", got.Status)
	}
	if got.StartedAt == nil {
		t.Fatalf("expected startedAt to be set")
	}
	if f.provider.connectCalls != 1 {
		t.Fatalf("connect calls = %d, want 1", f.provider.connectCalls)
	}
	if f.provider.connectAgent != agent.ID.String() {
		t.Fatalf("connected agent = %q, want %q", f.provider.connectAgent, agent.ID)
	}
	if f.provider.connectInstr != agent.Instructions {
		t.Fatalf("instructions not forwarded")
	}
}

func TestSessionStartedGeneratesMissingInstructions(t *testing.T) {
	f := newFixture(t)
	iv := seedInterview(t, f, domain.StatusUpcoming)
	candidate := &domain.User{ID: iv.UserID, Name: "Priya", Email: "priya@example.com"}
	if err := f.users.Create(context.Background(), candidate); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	agent := &domain.Agent{
		Name:        "Lisa",
		UserID:      uuid.New(),
		InterviewID: &iv.ID,
	}
	if err := f.agents.Create(context.Background(), agent); err != nil {
		t.Fatalf("seed agent: %v", err)
	}

	if err := f.svc.HandleEvent(context.Background(), sessionStartedEvent(iv.ID)); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if !strings.Contains(f.provider.connectInstr, iv.Position) {
		t.Fatalf("generated instructions missing position:\n%s", f.provider.connectInstr)
	}
	if !strings.Contains(f.provider.connectInstr, "Priya") {
		t.Fatalf("generated instructions missing candidate name")
	}

	got, err := f.agents.GetByID(context.Background(), agent.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Instructions != f.provider.connectInstr {
		t.Fatalf("generated instructions not persisted on the agent")
	}
}

func TestSessionStartedReplayIsRejected(t *testing.T) {
	f := newFixture(t)
	iv := seedInterview(t, f, domain.StatusActive)
	seedAgent(t, f, iv.ID)

	err := f.svc.HandleEvent(context.Background(), sessionStartedEvent(iv.ID))
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if f.provider.connectCalls != 0 {
		t.Fatalf("agent connected on replayed start")
	}
}

func TestSessionStartedMissingInterviewID(t *testing.T) {
	f := newFixture(t)
	ev := &WebhookEvent{Type: "call.session_started"}
	err := f.svc.HandleEvent(context.Background(), ev)
	if !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestParticipantLeftEndsCall(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	ev := &WebhookEvent{Type: "call.session_participant_left", CallCID: "default:" + id.String()}

	if err := f.svc.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(f.provider.endedCalls) != 1 || f.provider.endedCalls[0] != id.String() {
		t.Fatalf("ended calls = %v", f.provider.endedCalls)
	}
}

func TestParticipantLeftMalformedCID(t *testing.T) {
	f := newFixture(t)
	ev := &WebhookEvent{Type: "call.session_participant_left", CallCID: "no-separator"}
	if err := f.svc.HandleEvent(context.Background(), ev); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestSessionEndedOnlyTransitionsActive(t *testing.T) {
	f := newFixture(t)
	active := seedInterview(t, f, domain.StatusActive)
	completed := seedInterview(t, f, domain.StatusCompleted)

	for _, iv := range []*domain.Interview{active, completed} {
		if err := f.svc.HandleEvent(context.Background(), &WebhookEvent{
			Type: "call.session_ended",
			Call: &struct {
				CID    string         `json:"cid"`
				Custom map[string]any `json:"custom"`
			}{Custom: map[string]any{"interviewId": iv.ID.String()}},
		}); err != nil {
			t.Fatalf("HandleEvent(%s): %v", iv.ID, err)
		}
	}

	got, _ := f.interviews.GetByID(context.Background(), active.ID)
	if got.Status != domain.StatusProcessing {
		t.Fatalf("active interview status = %q, want processing", got.Status)
	}
	if got.EndedAt == nil {
		t.Fatalf("expected endedAt to be set")
	}
	got, _ = f.interviews.GetByID(context.Background(), completed.ID)
	if got.Status != domain.StatusCompleted {
		t.Fatalf("completed interview moved to %q", got.Status)
	}
}

func transcriptionEvent(id uuid.UUID, url string) *WebhookEvent {
	ev := &WebhookEvent{Type: "call.transcription_ready", CallCID: "default:" + id.String()}
	ev.CallTranscription = &struct {
		URL string `json:"url"`
	}{URL: url}
	return ev
}

func TestTranscriptionReadyPersistsURLAndEmitsOnce(t *testing.T) {
	f := newFixture(t)
	iv := seedInterview(t, f, domain.StatusProcessing)

	ev := transcriptionEvent(iv.ID, "https://example.com/t.jsonl")
	if err := f.svc.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	got, _ := f.interviews.GetByID(context.Background(), iv.ID)
	if got.TranscriptURL != "https://example.com/t.jsonl" {
		t.Fatalf("transcript url = %q", got.TranscriptURL)
	}

	if len(f.starter.started) != 2 {
		t.Fatalf("started %d workflows, want 2", len(f.starter.started))
	}
	wantIDs := map[string]bool{
		"interviews/processing:" + iv.ID.String(): false,
		"interviews/analysis:" + iv.ID.String():   false,
	}
	for _, s := range f.starter.started {
		if _, ok := wantIDs[s.ID]; !ok {
			t.Fatalf("unexpected workflow id %q", s.ID)
		}
		wantIDs[s.ID] = true
	}
	for id, seen := range wantIDs {
		if !seen {
			t.Fatalf("workflow %q not started", id)
		}
	}

	// Duplicate delivery: the guard collapses it.
	if err := f.svc.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("duplicate HandleEvent: %v", err)
	}
	if len(f.starter.started) != 2 {
		t.Fatalf("duplicate delivery started more workflows: %d", len(f.starter.started))
	}
}

func TestTranscriptionReadyCompletedDoesNotEmit(t *testing.T) {
	f := newFixture(t)
	iv := seedInterview(t, f, domain.StatusCompleted)

	if err := f.svc.HandleEvent(context.Background(), transcriptionEvent(iv.ID, "https://example.com/t.jsonl")); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	got, _ := f.interviews.GetByID(context.Background(), iv.ID)
	if got.TranscriptURL == "" {
		t.Fatalf("transcript url not persisted for completed interview")
	}
	if len(f.starter.started) != 0 {
		t.Fatalf("workflows emitted for completed interview")
	}
}

func TestTranscriptionReadyUnknownInterview(t *testing.T) {
	f := newFixture(t)
	err := f.svc.HandleEvent(context.Background(), transcriptionEvent(uuid.New(), "https://example.com/t.jsonl"))
	if !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
	if len(f.starter.started) != 0 {
		t.Fatalf("workflows emitted for unknown interview")
	}
}

func TestRecordingReadyPersistsURL(t *testing.T) {
	f := newFixture(t)
	iv := seedInterview(t, f, domain.StatusProcessing)

	ev := &WebhookEvent{Type: "call.recording_ready", CallCID: "default:" + iv.ID.String()}
	ev.CallRecording = &struct {
		URL string `json:"url"`
	}{URL: "https://example.com/rec.mp4"}

	if err := f.svc.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	got, _ := f.interviews.GetByID(context.Background(), iv.ID)
	if got.RecordingURL != "https://example.com/rec.mp4" {
		t.Fatalf("recording url = %q", got.RecordingURL)
	}
}

func messageEvent(channelID, userID, text string) *WebhookEvent {
	ev := &WebhookEvent{Type: "message.new", ChannelID: channelID}
	ev.User = &struct {
		ID string `json:"id"`
	}{ID: userID}
	ev.Message = &struct {
		Text string `json:"text"`
	}{Text: text}
	return ev
}

func TestMessageNewRepliesAsAgent(t *testing.T) {
	f := newFixture(t)
	iv := seedInterview(t, f, domain.StatusCompleted)
	summary := "## Overview\nWent well."
	if err := f.interviews.SaveSummary(context.Background(), iv.ID, summary); err != nil {
		t.Fatalf("SaveSummary: %v", err)
	}
	agent := seedAgent(t, f, iv.ID)

	f.provider.history = []stream.Message{
		{ID: "1", Text: "How did I do?", UserID: "candidate-1"},
		{ID: "2", Text: "", UserID: "candidate-1"},
		{ID: "3", Text: "You communicated clearly.", UserID: agent.ID.String()},
	}

	if err := f.svc.HandleEvent(context.Background(), messageEvent(iv.ID.String(), "candidate-1", "What should I improve?")); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if !strings.Contains(f.model.gotInstr, summary) {
		t.Fatalf("summary missing from chat instructions")
	}
	// Blank history entries are dropped; the new message is appended last.
	if len(f.model.gotMsgs) != 3 {
		t.Fatalf("model got %d messages, want 3", len(f.model.gotMsgs))
	}
	if f.model.gotMsgs[0].Role != "user" || f.model.gotMsgs[1].Role != "assistant" {
		t.Fatalf("roles = %q,%q", f.model.gotMsgs[0].Role, f.model.gotMsgs[1].Role)
	}
	if last := f.model.gotMsgs[2]; last.Role != "user" || last.Content != "What should I improve?" {
		t.Fatalf("last message = %+v", last)
	}

	if len(f.provider.upserted) != 1 {
		t.Fatalf("upserted %d users, want 1", len(f.provider.upserted))
	}
	if !strings.Contains(f.provider.upserted[0].Image, "seed=Lisa") {
		t.Fatalf("avatar = %q", f.provider.upserted[0].Image)
	}
	if len(f.provider.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(f.provider.sent))
	}
	sent := f.provider.sent[0]
	if sent.UserID != agent.ID.String() || sent.Text != "model reply" {
		t.Fatalf("sent = %+v", sent)
	}
}

func TestMessageNewRequiresCompletedInterview(t *testing.T) {
	f := newFixture(t)
	iv := seedInterview(t, f, domain.StatusUpcoming)
	seedAgent(t, f, iv.ID)

	err := f.svc.HandleEvent(context.Background(), messageEvent(iv.ID.String(), "candidate-1", "hello"))
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if len(f.provider.sent) != 0 {
		t.Fatalf("reply sent for non-completed interview")
	}
}

func TestMessageNewIgnoresAgentEcho(t *testing.T) {
	f := newFixture(t)
	iv := seedInterview(t, f, domain.StatusCompleted)
	agent := seedAgent(t, f, iv.ID)

	if err := f.svc.HandleEvent(context.Background(), messageEvent(iv.ID.String(), agent.ID.String(), "my own reply")); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(f.provider.sent) != 0 {
		t.Fatalf("agent replied to itself")
	}
}

func TestUnknownEventIsIgnored(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.HandleEvent(context.Background(), &WebhookEvent{Type: "call.rejected"}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
}

func TestEmitEnrichmentStartsWorkflow(t *testing.T) {
	f := newFixture(t)
	iv := seedInterview(t, f, domain.StatusUpcoming)
	seedAgent(t, f, iv.ID)

	if err := f.svc.EmitEnrichment(context.Background(), iv.ID); err != nil {
		t.Fatalf("EmitEnrichment: %v", err)
	}
	if len(f.starter.started) != 1 {
		t.Fatalf("started %d workflows, want 1", len(f.starter.started))
	}
	want := "interviews/profile.enrich:" + iv.ID.String()
	if f.starter.started[0].ID != want {
		t.Fatalf("workflow id = %q, want %q", f.starter.started[0].ID, want)
	}
}

func TestEmitEnrichmentUnknownInterview(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.EmitEnrichment(context.Background(), uuid.New()); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
