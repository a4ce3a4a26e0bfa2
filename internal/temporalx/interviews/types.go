// Package interviews holds the durable interview lifecycle workflows:
// transcript summarization, deep analysis, and candidate profile enrichment.
package interviews

// Workflow and activity registration names. Workflow IDs derive from these
// so duplicate webhook deliveries collapse onto one execution.
const (
	SummarizeWorkflowName = "interviews/processing"
	AnalysisWorkflowName  = "interviews/analysis"
	EnrichWorkflowName    = "interviews/profile.enrich"

	ActivityFetchTranscript = "interview_fetch_transcript"
	ActivityResolveSpeakers = "interview_resolve_speakers"
	ActivitySummarize       = "interview_summarize"
	ActivitySaveSummary     = "interview_save_summary"
	ActivityAnalyze         = "interview_analyze"
	ActivitySaveAnalysis    = "interview_save_analysis"
	ActivityBuildProfile    = "interview_build_profile"
	ActivityApplyProfile    = "interview_apply_profile"
	ActivityDeadLetter      = "interview_dead_letter"
)

// SummarizeWorkflowID returns the deterministic execution id for the
// summarization of one interview.
func SummarizeWorkflowID(interviewID string) string {
	return SummarizeWorkflowName + ":" + interviewID
}

func AnalysisWorkflowID(interviewID string) string {
	return AnalysisWorkflowName + ":" + interviewID
}

func EnrichWorkflowID(interviewID string) string {
	return EnrichWorkflowName + ":" + interviewID
}

// ProcessingPayload starts summarization and analysis.
type ProcessingPayload struct {
	InterviewID   string `json:"interview_id"`
	TranscriptURL string `json:"transcript_url"`
}

// EnrichPayload starts candidate profile enrichment.
type EnrichPayload struct {
	InterviewID  string `json:"interview_id"`
	AgentID      string `json:"agent_id"`
	Position     string `json:"position"`
	ResumeURL    string `json:"resume_url,omitempty"`
	PortfolioURL string `json:"portfolio_url,omitempty"`
	GithubURL    string `json:"github_url,omitempty"`
	LinkedinURL  string `json:"linkedin_url,omitempty"`
}

// TranscriptResult is the fetched, parsed, speaker-resolved transcript.
type TranscriptResult struct {
	InterviewID string      `json:"interview_id"`
	Items       []Utterance `json:"items"`
}

// Utterance mirrors transcript.Utterance for workflow payloads.
type Utterance struct {
	SpeakerID string  `json:"speaker_id"`
	Type      string  `json:"type,omitempty"`
	Text      string  `json:"text"`
	StartTs   float64 `json:"start_ts"`
	StopTs    float64 `json:"stop_ts"`
	User      *Member `json:"user,omitempty"`
}

type Member struct {
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// AnalysisActivityResult carries the evaluation from the analyze step to
// the persist step.
type AnalysisActivityResult struct {
	OverallScore   *int           `json:"overall_score,omitempty"`
	Recommendation *string        `json:"recommendation,omitempty"`
	Summary        *string        `json:"summary,omitempty"`
	Strengths      *string        `json:"strengths,omitempty"`
	Improvements   *string        `json:"improvements,omitempty"`
	Feedback       *string        `json:"feedback,omitempty"`
	Extra          map[string]any `json:"extra,omitempty"`
	Fidelity       string         `json:"fidelity"`
}

// ProfileResult carries the enrichment output between activities.
type ProfileResult struct {
	InterviewID string `json:"interview_id"`
	AgentID     string `json:"agent_id"`
	Profile     string `json:"profile"`
}
