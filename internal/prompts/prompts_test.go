package prompts

import (
	"strings"
	"testing"
	"time"

	"github.com/krishkalaria12/echo-interview/internal/domain"
)

func TestInterviewerIncludesLevelAndTypeSections(t *testing.T) {
	sched := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	iv := &domain.Interview{
		Position:        "Backend Engineer",
		ExperienceLevel: domain.LevelSenior,
		InterviewType:   domain.TypeSystemDesign,
		JobDescription:  "Own the scheduling platform",
		ScheduledFor:    &sched,
		GithubURL:       "https://github.com/example",
	}

	got := Interviewer(InterviewerConfig{
		Interview:     iv,
		CandidateName: "Ada",
		CompanyName:   "Echo",
	})

	for _, want := range []string{
		"## Experience Level Guidelines - SENIOR",
		"## Interview Type Configuration - SYSTEM_DESIGN",
		"Scheduled Duration**: 60 minutes",
		"Design a global content delivery and streaming platform",
		"**Architectural Thinking (40%)**",
		"## System Design Interview Specific Notes:",
		"- **GitHub**: https://github.com/example",
		"Hi Ada, I'm excited to speak with you today about the Backend Engineer role at Echo",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
	if strings.Contains(got, "## Technical Interview Specific Notes:") {
		t.Fatal("technical notes must not appear in a system_design prompt")
	}
	if strings.Contains(got, "- **Resume**:") {
		t.Fatal("resume line must be omitted when no resume url is set")
	}
}

func TestInterviewerDefaultsUnknownEnums(t *testing.T) {
	iv := &domain.Interview{
		Position:        "Engineer",
		ExperienceLevel: "staff",
		InterviewType:   "panel",
	}
	got := Interviewer(InterviewerConfig{Interview: iv})
	if !strings.Contains(got, "## Experience Level Guidelines - MID") {
		t.Fatal("unknown level should fall back to mid")
	}
	if !strings.Contains(got, "## Interview Type Configuration - TECHNICAL") {
		t.Fatal("unknown type should fall back to technical")
	}
}

func TestInterviewerEmbedsEnrichedProfile(t *testing.T) {
	iv := &domain.Interview{Position: "Engineer", ExperienceLevel: domain.LevelJunior, InterviewType: domain.TypeTechnical}
	got := Interviewer(InterviewerConfig{
		Interview:                iv,
		CandidateProfileMarkdown: "### Summary\nBuilds compilers for fun.",
	})
	if !strings.Contains(got, "### Enriched Candidate Profile") {
		t.Fatal("enriched profile heading missing")
	}
	if !strings.Contains(got, "Builds compilers for fun.") {
		t.Fatal("enriched profile body missing")
	}
}

func TestChatInstructionsComposition(t *testing.T) {
	got := ChatInstructions("### Overview\nWent well.", "Be warm and direct.")
	if !strings.Contains(got, "Went well.") {
		t.Fatal("summary missing")
	}
	if !strings.Contains(got, "Be warm and direct.") {
		t.Fatal("agent instructions missing")
	}

	noAgent := ChatInstructions("s", "")
	if strings.Contains(noAgent, "original instructions") {
		t.Fatal("agent block must be omitted when instructions are empty")
	}
}

func TestAvatarURIEscapesSeed(t *testing.T) {
	got := AvatarURI("Ada Lovelace & co")
	if !strings.HasPrefix(got, "https://api.dicebear.com/9.x/bottts-neutral/svg?seed=") {
		t.Fatalf("unexpected prefix: %s", got)
	}
	seed := got[strings.Index(got, "seed=")+len("seed="):]
	if strings.ContainsAny(seed, " &") {
		t.Fatalf("seed not escaped: %s", got)
	}
}
