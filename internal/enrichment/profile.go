package enrichment

import (
	"context"
	"fmt"
	"strings"

	"github.com/krishkalaria12/echo-interview/internal/pkg/logger"
)

// ProfileHeading marks the enriched section inside agent instructions.
// Re-running enrichment replaces everything under this heading.
const ProfileHeading = "### Candidate Profile (Enriched)"

// profileEndMark closes the enriched section so the profile body may carry
// its own sub-headings without confusing the replace boundary.
const profileEndMark = "<!-- /candidate-profile -->"

const profileSystemPrompt = `You are a candidate research assistant. From the provided excerpts of a candidate's resume, portfolio, GitHub, and LinkedIn, write a concise Markdown profile an interviewer can scan in under a minute.

Use exactly these sections, in this order:

### Summary
### Skills
### Projects
### Experience
### Signals

Keep bullets short and factual. Under Signals, note anything that suggests strengths or risks worth probing in the interview. If the excerpts give no evidence for a section, write "- No evidence found." under it. Never invent facts.`

// ModelClient is what the enricher needs from the language model.
type ModelClient interface {
	Embedder
	GenerateText(ctx context.Context, system string, user string) (string, error)
}

// Enricher builds an enriched candidate profile from public candidate URLs
// and folds it into the interview agent's instructions.
type Enricher struct {
	log     *logger.Logger
	fetcher *Fetcher
	model   ModelClient
}

func NewEnricher(log *logger.Logger, fetcher *Fetcher, model ModelClient) *Enricher {
	return &Enricher{
		log:     log.With("service", "ProfileEnricher"),
		fetcher: fetcher,
		model:   model,
	}
}

// BuildProfile fetches the sources, retrieves the most position-relevant
// chunks, and asks the model for the profile Markdown. Sources that fail
// are skipped; with nothing fetched the model still runs so the profile
// honestly records the absence of evidence.
func (e *Enricher) BuildProfile(ctx context.Context, position string, sources []Source) (string, error) {
	docs := e.fetcher.FetchAll(ctx, sources)
	chunks := SplitDocuments(docs)

	var contextChunks []Chunk
	if len(chunks) > 0 {
		ix, err := BuildIndex(ctx, e.model, chunks)
		if err != nil {
			return "", fmt.Errorf("build index: %w", err)
		}
		query := fmt.Sprintf("Experience, skills, and projects relevant to a %s role", position)
		contextChunks, err = ix.Search(ctx, e.model, query)
		if err != nil {
			return "", fmt.Errorf("search index: %w", err)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Position: %s\n\n", position)
	if len(contextChunks) == 0 {
		b.WriteString("No candidate material could be retrieved. State the absence of evidence in every section.\n")
	} else {
		b.WriteString("Candidate material excerpts:\n\n")
		for _, c := range contextChunks {
			fmt.Fprintf(&b, "[source: %s]\n%s\n\n", c.Source, c.Text)
		}
	}

	profile, err := e.model.GenerateText(ctx, profileSystemPrompt, b.String())
	if err != nil {
		return "", fmt.Errorf("generate profile: %w", err)
	}

	e.log.Info("candidate profile built",
		"position", position,
		"sources_fetched", len(docs),
		"chunks", len(chunks),
		"context_chunks", len(contextChunks),
	)
	return strings.TrimSpace(profile), nil
}

// ApplyToInstructions returns instructions with the enriched profile section
// replaced in place when present, appended otherwise.
func ApplyToInstructions(instructions, profile string) string {
	section := ProfileHeading + "\n\n" + strings.TrimSpace(profile) + "\n\n" + profileEndMark

	idx := strings.Index(instructions, ProfileHeading)
	if idx < 0 {
		if strings.TrimSpace(instructions) == "" {
			return section
		}
		return strings.TrimRight(instructions, "\n") + "\n\n" + section
	}

	before := strings.TrimRight(instructions[:idx], "\n")
	rest := instructions[idx+len(ProfileHeading):]

	// The section runs to its end marker; sections written before the
	// marker existed run to the next higher-level heading instead. The
	// profile body only uses ###, so ### lines never end the section.
	after := ""
	if n := strings.Index(rest, profileEndMark); n >= 0 {
		after = strings.TrimLeft(rest[n+len(profileEndMark):], "\n")
	} else if n := nextHeadingIndex(rest); n >= 0 {
		after = strings.TrimLeft(rest[n:], "\n")
	}

	var b strings.Builder
	if before != "" {
		b.WriteString(before)
		b.WriteString("\n\n")
	}
	b.WriteString(section)
	if after != "" {
		b.WriteString("\n\n")
		b.WriteString(after)
	}
	return b.String()
}

func nextHeadingIndex(s string) int {
	offset := 0
	for _, line := range strings.SplitAfter(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") || strings.HasPrefix(trimmed, "## ") {
			return offset
		}
		offset += len(line)
	}
	return -1
}
