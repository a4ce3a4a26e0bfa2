// Package prompts holds the fixed and generated model prompts used across
// the interview lifecycle.
package prompts

import (
	"fmt"
	"net/url"
	"strings"
)

// SummaryPrompt is the fixed system prompt of the transcript summarizer.
const SummaryPrompt = `You are an expert summarizer. You write readable, concise, simple content. You are given a transcript of a meeting and you need to summarize it.

Use the following markdown structure for every output:

### Overview
Provide a detailed, engaging summary of the session's content. Focus on major features, user workflows, and any key takeaways. Write in a narrative style, using full sentences. Highlight unique or powerful aspects of the product, platform, or discussion.

### Notes
Break down key content into thematic sections with timestamp ranges. Each section should summarize key points, actions, or demos in bullet format.

Example:
#### Section Name
- Main point or demo shown here
- Another key insight or interaction
- Follow-up tool or explanation provided

#### Next Section
- Feature X automatically does Y
- Mention of integration with Z`

// ChatInstructions composes the system prompt for post-interview Q&A from
// the stored summary and the agent's original interviewer instructions.
func ChatInstructions(summary, agentInstructions string) string {
	var b strings.Builder
	b.WriteString(`You are an AI assistant helping the user revisit a recently completed interview. Answer questions about the interview based on the summary below. Be concise, specific, and helpful. If a question falls outside what the interview covered, say so instead of guessing.

The following is the summary of the interview:
`)
	b.WriteString(strings.TrimSpace(summary))
	if s := strings.TrimSpace(agentInstructions); s != "" {
		b.WriteString(`

The following are your original instructions from the live interview assistant. Keep the same tone and persona while answering:
`)
		b.WriteString(s)
	}
	return b.String()
}

// AvatarURI synthesizes a deterministic bot avatar URL for the given seed.
func AvatarURI(seed string) string {
	return fmt.Sprintf("https://api.dicebear.com/9.x/bottts-neutral/svg?seed=%s", url.QueryEscape(seed))
}
