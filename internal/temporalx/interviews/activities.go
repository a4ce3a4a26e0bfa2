package interviews

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"
	"gorm.io/datatypes"

	"github.com/krishkalaria12/echo-interview/internal/analysis"
	goredis "github.com/krishkalaria12/echo-interview/internal/clients/redis"
	"github.com/krishkalaria12/echo-interview/internal/data/repos/interviews"
	"github.com/krishkalaria12/echo-interview/internal/enrichment"
	"github.com/krishkalaria12/echo-interview/internal/pkg/logger"
	"github.com/krishkalaria12/echo-interview/internal/prompts"
	"github.com/krishkalaria12/echo-interview/internal/transcript"
)

// Non-retryable application error types: retrying cannot heal these.
const (
	ErrTypeMissingTranscriptURL = "MissingTranscriptURL"
	ErrTypeInterviewNotFound    = "InterviewNotFound"
	ErrTypeAgentNotFound        = "AgentNotFound"
)

// ModelClient is the model surface the activities need directly.
type ModelClient interface {
	GenerateText(ctx context.Context, system string, user string) (string, error)
}

type Activities struct {
	Log        *logger.Logger
	Interviews interviews.InterviewRepo
	Agents     interviews.AgentRepo
	Fetcher    *transcript.Fetcher
	Resolver   *transcript.Resolver
	Analyzer   *analysis.Analyzer
	Enricher   *enrichment.Enricher
	Model      ModelClient
	Guard      goredis.Guard
}

// FetchTranscript downloads and parses the transcript. The payload URL
// wins; the stored transcriptUrl is the fallback for replays started
// before the artifact URL was known. Speaker resolution is a separate
// activity so a database hiccup there never re-downloads the artifact.
func (a *Activities) FetchTranscript(ctx context.Context, p ProcessingPayload) (TranscriptResult, error) {
	res := TranscriptResult{InterviewID: p.InterviewID}

	url := strings.TrimSpace(p.TranscriptURL)
	if url == "" {
		id, err := uuid.Parse(p.InterviewID)
		if err != nil {
			return res, temporal.NewNonRetryableApplicationError("invalid interview id", ErrTypeInterviewNotFound, err)
		}
		iv, err := a.Interviews.GetByID(ctx, id)
		if err != nil {
			return res, err
		}
		if iv == nil {
			return res, temporal.NewNonRetryableApplicationError("interview not found", ErrTypeInterviewNotFound, nil)
		}
		url = strings.TrimSpace(iv.TranscriptURL)
	}
	if url == "" {
		return res, temporal.NewNonRetryableApplicationError("interview has no transcript url", ErrTypeMissingTranscriptURL, nil)
	}

	items, err := a.Fetcher.Fetch(ctx, url)
	if err != nil {
		return res, err
	}
	res.Items = fromTranscript(items)
	return res, nil
}

// ResolveSpeakers attaches member names and images to the parsed
// utterances, looking speaker ids up among users and agents.
func (a *Activities) ResolveSpeakers(ctx context.Context, tr TranscriptResult) (TranscriptResult, error) {
	resolved, err := a.Resolver.Resolve(ctx, toTranscript(tr.Items))
	if err != nil {
		return tr, err
	}
	tr.Items = fromTranscript(resolved)
	return tr, nil
}

// Summarize produces the markdown summary for a resolved transcript.
func (a *Activities) Summarize(ctx context.Context, tr TranscriptResult) (string, error) {
	flat := transcript.PlainText(toTranscript(tr.Items))
	summary, err := a.Model.GenerateText(ctx, prompts.SummaryPrompt,
		"Summarize the following transcript:\n\n"+flat)
	if err != nil {
		return "", fmt.Errorf("summarize transcript: %w", err)
	}
	return strings.TrimSpace(summary), nil
}

// SaveSummary persists the summary and flips the interview to completed in
// one update.
func (a *Activities) SaveSummary(ctx context.Context, interviewID string, summary string) error {
	id, err := uuid.Parse(interviewID)
	if err != nil {
		return temporal.NewNonRetryableApplicationError("invalid interview id", ErrTypeInterviewNotFound, err)
	}
	return a.Interviews.SaveSummary(ctx, id, summary)
}

// Analyze evaluates the transcript, feeding the previously stored summary
// to the evaluator for comparison.
func (a *Activities) Analyze(ctx context.Context, tr TranscriptResult) (AnalysisActivityResult, error) {
	var out AnalysisActivityResult

	previousSummary := ""
	if id, err := uuid.Parse(tr.InterviewID); err == nil {
		if iv, err := a.Interviews.GetByID(ctx, id); err == nil && iv != nil && iv.Summary != nil {
			previousSummary = *iv.Summary
		}
	}

	res, err := a.Analyzer.Analyze(ctx, toTranscript(tr.Items), previousSummary)
	if err != nil {
		return out, err
	}
	if res.Fidelity == analysis.Unparseable {
		// Retryable: a fresh model call usually yields parseable output,
		// and persisting an all-null evaluation helps nobody.
		return out, fmt.Errorf("analysis output unparseable")
	}

	out = AnalysisActivityResult{
		OverallScore:   res.OverallScore,
		Recommendation: res.Recommendation,
		Summary:        res.Summary,
		Strengths:      res.Strengths,
		Improvements:   res.Improvements,
		Feedback:       res.Feedback,
		Extra:          res.Extra,
		Fidelity:       string(res.Fidelity),
	}
	return out, nil
}

// SaveAnalysis persists the evaluation atomically.
func (a *Activities) SaveAnalysis(ctx context.Context, interviewID string, res AnalysisActivityResult) error {
	id, err := uuid.Parse(interviewID)
	if err != nil {
		return temporal.NewNonRetryableApplicationError("invalid interview id", ErrTypeInterviewNotFound, err)
	}

	upd := interviews.AnalysisUpdate{
		OverallScore:   res.OverallScore,
		Recommendation: res.Recommendation,
		Summary:        res.Summary,
		Strengths:      res.Strengths,
		Improvements:   res.Improvements,
		Feedback:       res.Feedback,
	}
	if len(res.Extra) > 0 {
		raw, err := json.Marshal(res.Extra)
		if err != nil {
			return err
		}
		upd.Analysis = datatypes.JSON(raw)
	}
	return a.Interviews.SaveAnalysis(ctx, id, upd)
}

// BuildProfile runs the enrichment pipeline for one interview.
func (a *Activities) BuildProfile(ctx context.Context, p EnrichPayload) (ProfileResult, error) {
	out := ProfileResult{InterviewID: p.InterviewID, AgentID: p.AgentID}

	sources := []enrichment.Source{
		{Kind: "resume", URL: p.ResumeURL},
		{Kind: "portfolio", URL: p.PortfolioURL},
		{Kind: "github", URL: p.GithubURL},
		{Kind: "linkedin", URL: p.LinkedinURL},
	}
	profile, err := a.Enricher.BuildProfile(ctx, p.Position, sources)
	if err != nil {
		return out, err
	}
	out.Profile = profile
	return out, nil
}

// ApplyProfile folds the profile into the agent's stored instructions,
// replacing any previously enriched section.
func (a *Activities) ApplyProfile(ctx context.Context, res ProfileResult) error {
	id, err := uuid.Parse(res.AgentID)
	if err != nil {
		return temporal.NewNonRetryableApplicationError("invalid agent id", ErrTypeAgentNotFound, err)
	}
	agent, err := a.Agents.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if agent == nil {
		return temporal.NewNonRetryableApplicationError("agent not found", ErrTypeAgentNotFound, nil)
	}

	updated := enrichment.ApplyToInstructions(agent.Instructions, res.Profile)
	return a.Agents.UpdateInstructions(ctx, id, updated)
}

// DeadLetter records a terminally failed run. Best-effort: without Redis it
// only logs.
func (a *Activities) DeadLetter(ctx context.Context, workflowID, workflowName, interviewID, errMsg string) error {
	if a.Guard == nil {
		if a.Log != nil {
			a.Log.Warn("workflow failed with no dead-letter store",
				"workflow", workflowName, "workflow_id", workflowID,
				"interview_id", interviewID, "error", errMsg)
		}
		return nil
	}
	return a.Guard.RecordDeadLetter(ctx, goredis.DeadLetter{
		WorkflowID:  workflowID,
		Workflow:    workflowName,
		InterviewID: interviewID,
		Error:       errMsg,
	})
}

func fromTranscript(items []transcript.Utterance) []Utterance {
	out := make([]Utterance, len(items))
	for i, u := range items {
		out[i] = Utterance{
			SpeakerID: u.SpeakerID,
			Type:      u.Type,
			Text:      u.Text,
			StartTs:   u.StartTs,
			StopTs:    u.StopTs,
		}
		if u.User != nil {
			out[i].User = &Member{Name: u.User.Name, Image: u.User.Image}
		}
	}
	return out
}

func toTranscript(items []Utterance) []transcript.Utterance {
	out := make([]transcript.Utterance, len(items))
	for i, u := range items {
		out[i] = transcript.Utterance{
			SpeakerID: u.SpeakerID,
			Type:      u.Type,
			Text:      u.Text,
			StartTs:   u.StartTs,
			StopTs:    u.StopTs,
		}
		if u.User != nil {
			out[i].User = &transcript.Member{Name: u.User.Name, Image: u.User.Image}
		}
	}
	return out
}
