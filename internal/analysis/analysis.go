// Package analysis turns a finished interview transcript into a structured
// evaluation: score, recommendation, and written feedback.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/krishkalaria12/echo-interview/internal/domain"
	"github.com/krishkalaria12/echo-interview/internal/pkg/logger"
	"github.com/krishkalaria12/echo-interview/internal/transcript"
)

// Fidelity tags how much of the model output survived extraction.
type Fidelity string

const (
	// Structured: the output parsed and every expected field validated.
	Structured Fidelity = "structured"
	// PartiallyStructured: JSON parsed but some fields were missing or invalid.
	PartiallyStructured Fidelity = "partially_structured"
	// Unparseable: no JSON could be recovered from the output.
	Unparseable Fidelity = "unparseable"
)

// Result is the evaluation of one interview. Nil pointer fields persist as
// SQL NULL.
type Result struct {
	OverallScore   *int
	Recommendation *string
	Summary        *string
	Strengths      *string
	Improvements   *string
	Feedback       *string
	Extra          map[string]any // rubric, competencyScores, timeline
	Fidelity       Fidelity
}

const evaluatorPrompt = `You are an expert interview evaluator. Analyze the transcript and produce:
1) Overall Score (1-100)
2) Recommendation (hire/maybe/no)
3) Summary (markdown, concise)
4) Strengths (markdown list)
5) Improvements (markdown list)
6) Feedback (markdown detailed)
7) If previous summary exists, briefly compare and state how this one is better or worse.

Respond ONLY with a single minified JSON object matching keys: overallScore, recommendation, summary, strengths, improvements, feedback, competencyScores, timeline, rubric.`

// ModelClient is the model surface the analyzer needs.
type ModelClient interface {
	GenerateText(ctx context.Context, system string, user string) (string, error)
}

type Analyzer struct {
	log   *logger.Logger
	model ModelClient
}

func NewAnalyzer(log *logger.Logger, model ModelClient) *Analyzer {
	return &Analyzer{
		log:   log.With("service", "InterviewAnalyzer"),
		model: model,
	}
}

// Analyze evaluates a resolved transcript. An empty transcript produces a
// deterministic "cannot analyze" result without invoking the model.
func (a *Analyzer) Analyze(ctx context.Context, items []transcript.Utterance, previousSummary string) (*Result, error) {
	if len(items) == 0 {
		summary := "Transcript is empty; cannot analyze."
		improvements := "Please provide a non-empty transcript for analysis."
		feedback := "Transcript is empty; no analysis could be performed."
		return &Result{
			Summary:      &summary,
			Improvements: &improvements,
			Feedback:     &feedback,
			Extra:        map[string]any{"timeline": []any{}},
			Fidelity:     Structured,
		}, nil
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	payload := truncateUTF8(string(raw), 120000)

	user := fmt.Sprintf("Transcript JSON:\n%s\n\nPrevious Summary:\n%s", payload, previousSummary)
	out, err := a.model.GenerateText(ctx, evaluatorPrompt, user)
	if err != nil {
		return nil, fmt.Errorf("evaluate transcript: %w", err)
	}

	res := Extract(out)
	a.log.Info("interview analyzed",
		"utterances", len(items),
		"fidelity", string(res.Fidelity),
	)
	return res, nil
}

// truncateUTF8 caps s at max bytes without splitting a rune.
func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

var fenceRe = regexp.MustCompile("(?is)```json\\s*(.*?)\\s*```")

// extractJSONCandidate recovers the JSON body from model output: a fenced
// block first, then the outermost brace span, then the raw text.
func extractJSONCandidate(text string) string {
	if m := fenceRe.FindStringSubmatch(text); len(m) == 2 && strings.TrimSpace(m[1]) != "" {
		return strings.TrimSpace(m[1])
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1]
	}
	return text
}

// Extract parses model output into a Result, degrading field by field
// rather than failing outright.
func Extract(text string) *Result {
	candidate := extractJSONCandidate(text)

	var loose map[string]any
	if err := json.Unmarshal([]byte(candidate), &loose); err != nil {
		return &Result{Fidelity: Unparseable}
	}

	res := &Result{Fidelity: Structured, Extra: map[string]any{}}
	complete := true

	if v, ok := numberField(loose, "overallScore"); ok && v >= 1 && v <= 100 {
		score := v
		res.OverallScore = &score
	} else {
		complete = false
	}

	if v, ok := loose["recommendation"].(string); ok {
		rec := strings.ToLower(strings.TrimSpace(v))
		if domain.ValidRecommendation(rec) {
			res.Recommendation = &rec
		} else {
			complete = false
		}
	} else {
		complete = false
	}

	res.Summary = stringField(loose, "summary", &complete)
	res.Strengths = stringField(loose, "strengths", &complete)
	res.Improvements = stringField(loose, "improvements", &complete)
	res.Feedback = stringField(loose, "feedback", &complete)

	for _, key := range []string{"rubric", "competencyScores", "timeline"} {
		if v, ok := loose[key]; ok && v != nil {
			res.Extra[key] = v
		}
	}

	if !complete {
		res.Fidelity = PartiallyStructured
	}
	return res
}

func stringField(m map[string]any, key string, complete *bool) *string {
	if v, ok := m[key].(string); ok && strings.TrimSpace(v) != "" {
		s := v
		return &s
	}
	*complete = false
	return nil
}

func numberField(m map[string]any, key string) (int, bool) {
	switch v := m[key].(type) {
	case float64:
		return int(v), true
	case string:
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d", &n); err == nil {
			return n, true
		}
	}
	return 0, false
}
