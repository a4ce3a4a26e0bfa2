package analysis

import (
	"context"
	"strings"
	"testing"

	"github.com/krishkalaria12/echo-interview/internal/data/repos/testutil"
	"github.com/krishkalaria12/echo-interview/internal/transcript"
)

func TestExtractFencedBlock(t *testing.T) {
	out := "Here is my evaluation:\n```json\n{\"overallScore\": 82, \"recommendation\": \"hire\", \"summary\": \"s\", \"strengths\": \"st\", \"improvements\": \"im\", \"feedback\": \"fb\"}\n```\nHope that helps!"

	res := Extract(out)
	if res.Fidelity != Structured {
		t.Fatalf("expected structured, got %s", res.Fidelity)
	}
	if res.OverallScore == nil || *res.OverallScore != 82 {
		t.Fatalf("score: %+v", res.OverallScore)
	}
	if res.Recommendation == nil || *res.Recommendation != "hire" {
		t.Fatalf("recommendation: %+v", res.Recommendation)
	}
}

func TestExtractBraceSpan(t *testing.T) {
	out := `The candidate did well. {"overallScore": 70, "recommendation": "maybe", "summary": "s", "strengths": "st", "improvements": "im", "feedback": "fb"} end`
	res := Extract(out)
	if res.Fidelity != Structured {
		t.Fatalf("expected structured, got %s", res.Fidelity)
	}
	if res.OverallScore == nil || *res.OverallScore != 70 {
		t.Fatalf("score: %+v", res.OverallScore)
	}
}

func TestExtractUnparseable(t *testing.T) {
	res := Extract("I cannot produce an evaluation right now.")
	if res.Fidelity != Unparseable {
		t.Fatalf("expected unparseable, got %s", res.Fidelity)
	}
	if res.OverallScore != nil || res.Recommendation != nil {
		t.Fatalf("unparseable output must carry no fields: %+v", res)
	}
}

func TestExtractInvalidRecommendationPersistsNull(t *testing.T) {
	out := `{"overallScore": 91, "recommendation": "strong_yes", "summary": "s", "strengths": "st", "improvements": "im", "feedback": "fb"}`
	res := Extract(out)
	if res.Recommendation != nil {
		t.Fatalf("invalid enum must become nil, got %q", *res.Recommendation)
	}
	if res.Fidelity != PartiallyStructured {
		t.Fatalf("expected partially structured, got %s", res.Fidelity)
	}
	if res.OverallScore == nil || *res.OverallScore != 91 {
		t.Fatal("valid fields must survive alongside the dropped enum")
	}
}

func TestExtractRecommendationCaseInsensitive(t *testing.T) {
	out := `{"overallScore": 60, "recommendation": "Hire", "summary": "s", "strengths": "st", "improvements": "im", "feedback": "fb"}`
	res := Extract(out)
	if res.Recommendation == nil || *res.Recommendation != "hire" {
		t.Fatalf("expected lowercased hire, got %+v", res.Recommendation)
	}
}

func TestExtractScoreOutOfRangeDropped(t *testing.T) {
	out := `{"overallScore": 140, "recommendation": "no", "summary": "s", "strengths": "st", "improvements": "im", "feedback": "fb"}`
	res := Extract(out)
	if res.OverallScore != nil {
		t.Fatalf("out-of-range score must be dropped, got %d", *res.OverallScore)
	}
	if res.Fidelity != PartiallyStructured {
		t.Fatalf("expected partially structured, got %s", res.Fidelity)
	}
}

func TestExtractKeepsExtraBlobs(t *testing.T) {
	out := `{"overallScore": 50, "recommendation": "maybe", "summary": "s", "strengths": "st", "improvements": "im", "feedback": "fb", "rubric": {"clarity": 4}, "timeline": [{"t": 0}]}`
	res := Extract(out)
	if res.Extra["rubric"] == nil || res.Extra["timeline"] == nil {
		t.Fatalf("extra blobs lost: %+v", res.Extra)
	}
	if _, ok := res.Extra["competencyScores"]; ok {
		t.Fatal("absent blob must not be materialized")
	}
}

func TestTruncateUTF8KeepsRunesWhole(t *testing.T) {
	s := strings.Repeat("a", 9) + "héllo" // 'é' spans bytes 10-11
	got := truncateUTF8(s, 11)
	if got != strings.Repeat("a", 9)+"h" {
		t.Fatalf("cut inside a rune: %q", got)
	}
	if !strings.HasSuffix(truncateUTF8(s, 12), "hé") {
		t.Fatalf("rune boundary cut must keep the full rune")
	}
	if truncateUTF8("short", 100) != "short" {
		t.Fatal("strings under the cap must pass through")
	}
}

type countingModel struct {
	calls int
	out   string
}

func (m *countingModel) GenerateText(_ context.Context, _, _ string) (string, error) {
	m.calls++
	return m.out, nil
}

func TestAnalyzeEmptyTranscriptShortCircuits(t *testing.T) {
	model := &countingModel{}
	a := NewAnalyzer(testutil.Logger(t), model)

	res, err := a.Analyze(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if model.calls != 0 {
		t.Fatalf("model must not be called for an empty transcript, calls=%d", model.calls)
	}
	if res.Summary == nil || !strings.Contains(*res.Summary, "cannot analyze") {
		t.Fatalf("deterministic summary missing: %+v", res.Summary)
	}
	if res.OverallScore != nil || res.Recommendation != nil {
		t.Fatal("empty transcript must not produce a score or recommendation")
	}
}

func TestAnalyzeInvokesModelWithTranscript(t *testing.T) {
	model := &countingModel{out: `{"overallScore": 75, "recommendation": "hire", "summary": "s", "strengths": "st", "improvements": "im", "feedback": "fb"}`}
	a := NewAnalyzer(testutil.Logger(t), model)

	items := []transcript.Utterance{{SpeakerID: "a", Text: "hello", StartTs: 0, StopTs: 1}}
	res, err := a.Analyze(context.Background(), items, "prior summary")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if model.calls != 1 {
		t.Fatalf("expected 1 model call, got %d", model.calls)
	}
	if res.OverallScore == nil || *res.OverallScore != 75 {
		t.Fatalf("score: %+v", res.OverallScore)
	}
}
