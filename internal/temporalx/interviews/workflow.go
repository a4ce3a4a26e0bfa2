package interviews

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

func defaultActivityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    4,
			NonRetryableErrorTypes: []string{
				ErrTypeMissingTranscriptURL,
				ErrTypeInterviewNotFound,
				ErrTypeAgentNotFound,
			},
		},
	}
}

// SummarizeWorkflow fetches and summarizes the transcript, then persists
// {summary, status: completed} atomically. Each step is an activity, so a
// replay after a crash resumes from the last completed step.
func SummarizeWorkflow(ctx workflow.Context, p ProcessingPayload) error {
	ctx = workflow.WithActivityOptions(ctx, defaultActivityOptions())

	var tr TranscriptResult
	if err := workflow.ExecuteActivity(ctx, ActivityFetchTranscript, p).Get(ctx, &tr); err != nil {
		return deadLetter(ctx, SummarizeWorkflowName, p.InterviewID, err)
	}

	if err := workflow.ExecuteActivity(ctx, ActivityResolveSpeakers, tr).Get(ctx, &tr); err != nil {
		return deadLetter(ctx, SummarizeWorkflowName, p.InterviewID, err)
	}

	var summary string
	if err := workflow.ExecuteActivity(ctx, ActivitySummarize, tr).Get(ctx, &summary); err != nil {
		return deadLetter(ctx, SummarizeWorkflowName, p.InterviewID, err)
	}

	if err := workflow.ExecuteActivity(ctx, ActivitySaveSummary, p.InterviewID, summary).Get(ctx, nil); err != nil {
		return deadLetter(ctx, SummarizeWorkflowName, p.InterviewID, err)
	}
	return nil
}

// AnalysisWorkflow evaluates the transcript into a structured result and
// persists it in a single update. The analyze step itself guards the empty
// transcript case without a model call.
func AnalysisWorkflow(ctx workflow.Context, p ProcessingPayload) error {
	ctx = workflow.WithActivityOptions(ctx, defaultActivityOptions())

	var tr TranscriptResult
	if err := workflow.ExecuteActivity(ctx, ActivityFetchTranscript, p).Get(ctx, &tr); err != nil {
		return deadLetter(ctx, AnalysisWorkflowName, p.InterviewID, err)
	}

	if err := workflow.ExecuteActivity(ctx, ActivityResolveSpeakers, tr).Get(ctx, &tr); err != nil {
		return deadLetter(ctx, AnalysisWorkflowName, p.InterviewID, err)
	}

	var res AnalysisActivityResult
	if err := workflow.ExecuteActivity(ctx, ActivityAnalyze, tr).Get(ctx, &res); err != nil {
		return deadLetter(ctx, AnalysisWorkflowName, p.InterviewID, err)
	}

	if err := workflow.ExecuteActivity(ctx, ActivitySaveAnalysis, p.InterviewID, res).Get(ctx, nil); err != nil {
		return deadLetter(ctx, AnalysisWorkflowName, p.InterviewID, err)
	}
	return nil
}

// EnrichWorkflow builds the enriched candidate profile and folds it into
// the agent's instructions.
func EnrichWorkflow(ctx workflow.Context, p EnrichPayload) error {
	opts := defaultActivityOptions()
	// Profile building fans out over several fetches plus model calls.
	opts.StartToCloseTimeout = 10 * time.Minute
	ctx = workflow.WithActivityOptions(ctx, opts)

	var profile ProfileResult
	if err := workflow.ExecuteActivity(ctx, ActivityBuildProfile, p).Get(ctx, &profile); err != nil {
		return deadLetter(ctx, EnrichWorkflowName, p.InterviewID, err)
	}

	if err := workflow.ExecuteActivity(ctx, ActivityApplyProfile, profile).Get(ctx, nil); err != nil {
		return deadLetter(ctx, EnrichWorkflowName, p.InterviewID, err)
	}
	return nil
}

// deadLetter records a terminal failure on a best-effort activity, then
// reports the original error.
func deadLetter(ctx workflow.Context, workflowName, interviewID string, cause error) error {
	dlCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	info := workflow.GetInfo(ctx)
	_ = workflow.ExecuteActivity(dlCtx, ActivityDeadLetter,
		info.WorkflowExecution.ID, workflowName, interviewID, cause.Error(),
	).Get(dlCtx, nil)
	return cause
}
