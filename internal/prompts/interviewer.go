package prompts

import (
	"fmt"
	"strings"
	"time"

	"github.com/krishkalaria12/echo-interview/internal/domain"
)

// InterviewerConfig carries everything the interviewer system prompt needs.
type InterviewerConfig struct {
	Interview                *domain.Interview
	CandidateName            string
	CompanyName              string
	InterviewerName          string
	CandidateProfileMarkdown string
}

type levelConfig struct {
	yearsRange         string
	description        string
	assessmentFocus    []string
	questionGuidelines string
	strugglingGuidance string
	hintStyle          string
	excellingGuidance  string
	followUpStyle      string
	toneGuidelines     string
	encouragementStyle string
}

type typeConfig struct {
	description          string
	keyAreas             []string
	approach             string
	mainSectionStructure string
	priorityAreas        []string
	feedbackAreas        []string
	primaryFocus         string
	interactionStyle     string
}

type timeAllocation struct {
	total, opening, main, closing int
}

var levelConfigs = map[domain.ExperienceLevel]levelConfig{
	domain.LevelJunior: {
		yearsRange:  "0-2 years",
		description: "Focus on foundational knowledge, learning ability, and growth potential. Emphasize fundamentals over advanced concepts.",
		assessmentFocus: []string{
			"Understanding of core concepts and fundamentals",
			"Problem-solving approach and logical thinking",
			"Learning agility and growth mindset",
			"Communication skills and coachability",
			"Basic technical competency",
		},
		questionGuidelines: "Start with fundamental concepts, build up complexity gradually. Accept simpler solutions if approach is sound.",
		strugglingGuidance: "Be very supportive, break problems into smaller steps, focus on their thinking process",
		hintStyle:          "Let's think about this step by step. What would be the first thing you'd want to know?",
		excellingGuidance:  "Introduce slightly more complex scenarios, explore edge cases",
		followUpStyle:      "That's a great approach! How would you handle the edge cases or scaling concerns?",
		toneGuidelines:     "Encouraging and supportive, focus on learning and potential",
		encouragementStyle: "Celebrate good thinking processes even if the solution isn't perfect",
	},
	domain.LevelMid: {
		yearsRange:  "2-5 years",
		description: "Evaluate practical experience, independent problem-solving, and growing technical leadership. Expect solid fundamentals plus some specialization.",
		assessmentFocus: []string{
			"Practical application of technical knowledge",
			"Independent problem-solving abilities",
			"Code quality and best practices",
			"Understanding of system interactions",
			"Beginning leadership and mentoring potential",
		},
		questionGuidelines: "Present realistic work scenarios, expect clean solutions with proper considerations for maintainability.",
		strugglingGuidance: "Provide moderate guidance, expect them to work through problems with minimal hints",
		hintStyle:          "What considerations might you have around performance, security, or maintainability?",
		excellingGuidance:  "Explore architectural thinking, discuss trade-offs and alternative approaches",
		followUpStyle:      "How would you extend this solution? What trade-offs are you making here?",
		toneGuidelines:     "Professional and collaborative, treat as an experienced peer",
		encouragementStyle: "Acknowledge their experience while pushing for deeper thinking",
	},
	domain.LevelSenior: {
		yearsRange:  "5+ years",
		description: "Assess deep technical expertise, architectural thinking, and leadership capabilities. Expect mastery of fundamentals plus strategic thinking.",
		assessmentFocus: []string{
			"Deep technical expertise and architectural thinking",
			"Strategic decision-making and trade-off analysis",
			"Leadership and mentoring capabilities",
			"Business impact awareness",
			"Complex system design and scalability",
		},
		questionGuidelines: "Present complex, open-ended challenges. Expect sophisticated solutions with consideration of multiple factors.",
		strugglingGuidance: "Challenge them to think through the problem, expect self-correction and adaptation",
		hintStyle:          "How does this decision impact the broader system architecture?",
		excellingGuidance:  "Discuss industry trends, explore multiple solution approaches, assess teaching ability",
		followUpStyle:      "How would you explain this approach to a junior developer? What industry trends influence this decision?",
		toneGuidelines:     "Respectful and challenging, engage as a technical equal",
		encouragementStyle: "Expect high-level performance while recognizing exceptional insights",
	},
}

var typeConfigs = map[domain.InterviewType]typeConfig{
	domain.TypeTechnical: {
		description: "Focus on coding ability, problem-solving, and technical knowledge relevant to the role.",
		keyAreas: []string{
			"Algorithm and data structure knowledge",
			"Coding proficiency in relevant languages",
			"Problem-solving methodology",
			"Code quality and best practices",
			"Testing and debugging approaches",
		},
		approach: "Use collaborative coding exercises, start with easier problems and build complexity. Focus on thought process over perfect solutions.",
		mainSectionStructure: `**Problem Solving (20-25 minutes):**
- 2-3 coding problems of increasing difficulty
- Live coding with real-time discussion
- Focus on approach, not just correct answers

**Technical Discussion (15-20 minutes):**
- Deep dive into their background projects
- Language/framework specific questions
- Best practices and code quality discussion`,
		priorityAreas: []string{"coding ability", "problem-solving approach", "technical communication"},
		feedbackAreas: []string{
			"Code quality and structure",
			"Problem-solving methodology",
			"Technical communication",
			"Knowledge of relevant technologies",
			"Testing and debugging approach",
		},
		primaryFocus:     "hands-on coding and technical problem-solving",
		interactionStyle: "Collaborative coding session - you're working together to solve problems. Encourage thinking out loud.",
	},
	domain.TypeBehavioral: {
		description: "Assess soft skills, cultural fit, past experiences, and situational judgment.",
		keyAreas: []string{
			"Communication and interpersonal skills",
			"Leadership and teamwork experiences",
			"Conflict resolution and problem-solving",
			"Motivation and career goals",
			"Cultural alignment and values",
		},
		approach: "Use STAR method questions, explore past experiences, assess cultural fit through scenario-based discussions.",
		mainSectionStructure: `**Experience Deep-Dive (15-20 minutes):**
- Walk through key projects and roles
- Explore challenges overcome and lessons learned
- Assess growth and career progression

**Situational Questions (15-20 minutes):**
- STAR method scenarios relevant to the role
- Team dynamics and collaboration examples
- Leadership and initiative demonstrations`,
		priorityAreas: []string{"communication skills", "cultural fit", "past experience relevance"},
		feedbackAreas: []string{
			"Communication clarity and style",
			"Leadership and teamwork examples",
			"Problem-solving in interpersonal situations",
			"Cultural alignment and values fit",
			"Career motivation and goals",
		},
		primaryFocus:     "interpersonal skills and cultural alignment",
		interactionStyle: "Conversational and exploratory - dig deep into their experiences and motivations.",
	},
	domain.TypeSystemDesign: {
		description: "Evaluate architectural thinking, scalability considerations, and high-level system design abilities.",
		keyAreas: []string{
			"System architecture and design patterns",
			"Scalability and performance considerations",
			"Trade-off analysis and decision making",
			"Technology selection and justification",
			"Real-world system constraints",
		},
		approach: "Present open-ended design challenges, guide through design process, focus on trade-offs and reasoning over perfect solutions.",
		mainSectionStructure: `**System Design Challenge (25-30 minutes):**
- Present a real-world system design problem
- Guide through requirements gathering
- Explore architecture, scaling, and trade-offs

**Deep Dive Discussion (10-15 minutes):**
- Explore specific technology choices
- Discuss monitoring, testing, and maintenance
- Alternative approaches and optimizations`,
		priorityAreas: []string{"architectural thinking", "trade-off analysis", "scalability considerations"},
		feedbackAreas: []string{
			"System architecture and design approach",
			"Understanding of scalability and performance",
			"Technology selection reasoning",
			"Trade-off analysis and decision making",
			"Communication of complex technical concepts",
		},
		primaryFocus:     "high-level architectural and system thinking",
		interactionStyle: "Collaborative design session - work together to architect a system, asking clarifying questions.",
	},
	domain.TypeMixed: {
		description: "Balanced assessment covering technical skills, behavioral aspects, and system thinking as relevant to the role.",
		keyAreas: []string{
			"Technical competency appropriate to role",
			"Communication and collaboration skills",
			"System thinking and architectural awareness",
			"Cultural fit and motivation",
			"Problem-solving across multiple domains",
		},
		approach: "Balance technical problems with behavioral questions and light system design. Prioritize based on role requirements.",
		mainSectionStructure: `**Technical Component (15-20 minutes):**
- 1-2 focused coding or technical problems
- Brief technical discussion

**Behavioral Component (10-15 minutes):**
- Key STAR method questions
- Cultural fit assessment

**System Thinking (10-15 minutes):**
- Light architectural discussion
- Design principles and trade-offs`,
		priorityAreas: []string{"technical competency", "communication", "cultural fit"},
		feedbackAreas: []string{
			"Technical problem-solving ability",
			"Communication and interpersonal skills",
			"System thinking and architectural awareness",
			"Cultural alignment",
			"Overall well-roundedness for the role",
		},
		primaryFocus:     "well-rounded assessment across multiple competencies",
		interactionStyle: "Varied approach - adapt style to each section while maintaining conversational flow.",
	},
}

var timeAllocations = map[domain.InterviewType]timeAllocation{
	domain.TypeTechnical:    {total: 50, opening: 5, main: 40, closing: 5},
	domain.TypeBehavioral:   {total: 45, opening: 5, main: 35, closing: 5},
	domain.TypeSystemDesign: {total: 60, opening: 10, main: 45, closing: 5},
	domain.TypeMixed:        {total: 50, opening: 5, main: 40, closing: 5},
}

var questionExamples = map[domain.ExperienceLevel]map[domain.InterviewType]string{
	domain.LevelJunior: {
		domain.TypeTechnical:    "Start with array/string manipulation, basic algorithms, simple data structures. Example: 'Find the most common character in a string'",
		domain.TypeBehavioral:   "Focus on learning experiences, school projects, internships. Example: 'Tell me about a challenging problem you solved'",
		domain.TypeSystemDesign: "Simple designs like a basic web application, focus on fundamental concepts. Example: 'Design a simple blogging platform'",
		domain.TypeMixed:        "Combine basic coding, motivation questions, and simple design concepts",
	},
	domain.LevelMid: {
		domain.TypeTechnical:    "Moderate algorithms, design patterns, testing strategies. Example: 'Implement a LRU cache with optimal performance'",
		domain.TypeBehavioral:   "Team leadership, project ownership, mentoring experiences. Example: 'Describe a time you had to lead a technical decision'",
		domain.TypeSystemDesign: "Real-world services with scaling considerations. Example: 'Design a URL shortening service like bit.ly'",
		domain.TypeMixed:        "Balance complex technical problems with leadership scenarios and moderate system design",
	},
	domain.LevelSenior: {
		domain.TypeTechnical:    "Complex algorithms, architectural patterns, performance optimization. Example: 'Design and implement a distributed rate limiter'",
		domain.TypeBehavioral:   "Strategic decisions, team building, cross-functional leadership. Example: 'How do you handle technical debt vs feature delivery trade-offs?'",
		domain.TypeSystemDesign: "Large-scale distributed systems, complex trade-offs. Example: 'Design a global content delivery and streaming platform'",
		domain.TypeMixed:        "Advanced problems across all areas, expect sophisticated reasoning and trade-off analysis",
	},
}

var assessmentCriteria = map[domain.InterviewType]string{
	domain.TypeTechnical:    "**Technical Skills (50%)**, **Problem Solving (25%)**, **Communication (15%)**, **Code Quality (10%)**",
	domain.TypeBehavioral:   "**Communication (40%)**, **Cultural Fit (30%)**, **Experience Relevance (20%)**, **Leadership Potential (10%)**",
	domain.TypeSystemDesign: "**Architectural Thinking (40%)**, **Technical Communication (25%)**, **Trade-off Analysis (20%)**, **Scalability Understanding (15%)**",
	domain.TypeMixed:        "**Technical Skills (35%)**, **Communication (25%)**, **Cultural Fit (20%)**, **System Thinking (20%)**",
}

var levelAdjustments = map[domain.ExperienceLevel]string{
	domain.LevelJunior: "Weight learning potential and foundational understanding higher",
	domain.LevelMid:    "Balance technical competency with growing leadership capabilities",
	domain.LevelSenior: "Emphasize strategic thinking, mentoring ability, and architectural expertise",
}

var recommendationGuidance = map[domain.ExperienceLevel]string{
	domain.LevelJunior: "Focus on potential, learning ability, and foundational knowledge. 'Hire' if they show strong fundamentals and growth mindset.",
	domain.LevelMid:    "Evaluate practical skills and independence. 'Hire' if they can contribute immediately and show leadership potential.",
	domain.LevelSenior: "Assess expertise and strategic thinking. 'Hire' only if they can drive technical decisions and mentor others.",
}

// Interviewer renders the full system prompt for the realtime interview agent.
func Interviewer(cfg InterviewerConfig) string {
	iv := cfg.Interview
	if iv == nil {
		return ""
	}

	company := cfg.CompanyName
	if company == "" {
		company = "our company"
	}
	interviewer := cfg.InterviewerName
	if interviewer == "" {
		interviewer = "the interviewer"
	}
	candidate := cfg.CandidateName
	if candidate == "" {
		candidate = "the candidate"
	}

	level := iv.ExperienceLevel
	if _, ok := levelConfigs[level]; !ok {
		level = domain.LevelMid
	}
	itype := iv.InterviewType
	if _, ok := typeConfigs[itype]; !ok {
		itype = domain.TypeTechnical
	}

	lc := levelConfigs[level]
	tc := typeConfigs[itype]
	ta := timeAllocations[itype]

	var b strings.Builder
	fmt.Fprintf(&b, "# AI Interview Agent System Prompt\n\n")
	fmt.Fprintf(&b, "You are an expert AI interview agent conducting a %s interview for %s. You are representing %s in this interview process.\n\n", itype, company, interviewer)

	fmt.Fprintf(&b, "## Interview Context\n")
	fmt.Fprintf(&b, "- **Candidate**: %s\n", candidate)
	fmt.Fprintf(&b, "- **Position**: %s\n", iv.Position)
	fmt.Fprintf(&b, "- **Experience Level**: %s (%s)\n", level, lc.yearsRange)
	fmt.Fprintf(&b, "- **Interview Type**: %s\n", itype)
	fmt.Fprintf(&b, "- **Scheduled Duration**: %d minutes\n", ta.total)
	if iv.JobDescription != "" {
		fmt.Fprintf(&b, "- **Job Description**: %s\n", iv.JobDescription)
	}
	if iv.ScheduledFor != nil {
		fmt.Fprintf(&b, "- **Scheduled For**: %s\n", iv.ScheduledFor.Format(time.RFC1123))
	}
	b.WriteString("\n## Candidate Background\n")
	if iv.ResumeURL != "" {
		b.WriteString("- **Resume**: Available for reference\n")
	}
	if iv.PortfolioURL != "" {
		fmt.Fprintf(&b, "- **Portfolio**: %s\n", iv.PortfolioURL)
	}
	if iv.GithubURL != "" {
		fmt.Fprintf(&b, "- **GitHub**: %s\n", iv.GithubURL)
	}
	if iv.LinkedinURL != "" {
		fmt.Fprintf(&b, "- **LinkedIn**: %s\n", iv.LinkedinURL)
	}
	if cfg.CandidateProfileMarkdown != "" {
		fmt.Fprintf(&b, "\n### Enriched Candidate Profile\n%s\n", cfg.CandidateProfileMarkdown)
	}

	fmt.Fprintf(&b, "\n## Experience Level Guidelines - %s\n%s\n", strings.ToUpper(string(level)), lc.description)
	b.WriteString("\n### Assessment Focus:\n")
	for _, f := range lc.assessmentFocus {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	fmt.Fprintf(&b, "\n### Question Difficulty:\n%s\n", lc.questionGuidelines)

	fmt.Fprintf(&b, "\n## Interview Type Configuration - %s\n%s\n", strings.ToUpper(string(itype)), tc.description)
	b.WriteString("\n### Key Areas to Cover:\n")
	for _, a := range tc.keyAreas {
		fmt.Fprintf(&b, "- %s\n", a)
	}
	fmt.Fprintf(&b, "\n### Specific Approach:\n%s\n", tc.approach)

	fmt.Fprintf(&b, "\n## Interview Structure (%d minutes total)\n\n", ta.total)
	fmt.Fprintf(&b, "### Opening (%d minutes)\n", ta.opening)
	fmt.Fprintf(&b, "1. Warm welcome: \"Hi %s, I'm excited to speak with you today about the %s role at %s\"\n", candidate, iv.Position, company)
	fmt.Fprintf(&b, "2. Brief overview of the interview format and %d-minute duration\n", ta.total)
	b.WriteString("3. Ask if they have any initial questions about the process\n")
	if itype == domain.TypeTechnical {
		b.WriteString("4. Quick setup check for screen sharing/coding environment\n")
	}
	b.WriteString(`
Immediately after greeting, do the following in a friendly, concise way:
- Ask for the candidate's preferred name and pronunciation (and how they'd like to be addressed).
- Confirm they can hear you clearly and that their setup is good.
- Ask for a brief 15-30 second background overview before starting.

Important: You start the conversation. Begin with a brief personalized intro based on the candidate profile. Do not wait for the candidate to speak first. After your intro, ask for their preferred name/pronunciation, confirm audio is clear, and request a short background before moving on.
`)

	fmt.Fprintf(&b, "\n### Main Assessment (%d minutes)\n%s\n", ta.main, tc.mainSectionStructure)
	fmt.Fprintf(&b, "\n### Closing (%d minutes)\n", ta.closing)
	fmt.Fprintf(&b, "1. Ask: \"Do you have any questions about the %s role, our team, or %s?\"\n", iv.Position, company)
	b.WriteString("2. Explain: \"We'll be reviewing all interviews and will have an update for you soon\"\n")
	fmt.Fprintf(&b, "3. Thank them: \"Thank you for taking the time to interview with us today, %s\"\n", candidate)

	fmt.Fprintf(&b, "\n## Dynamic Question Selection\n\n### For %s %s Interview:\n%s\n", level, itype, questionExamples[level][itype])

	b.WriteString("\n## Real-Time Adaptation Rules\n\n### If Candidate Struggles:\n")
	fmt.Fprintf(&b, "- %s\n", lc.strugglingGuidance)
	fmt.Fprintf(&b, "- Provide hints: \"%s\"\n", lc.hintStyle)
	b.WriteString("- Have backup questions ready at a simpler level\n")
	b.WriteString("\n### If Candidate Excels:\n")
	fmt.Fprintf(&b, "- %s\n", lc.excellingGuidance)
	fmt.Fprintf(&b, "- Follow up with: \"%s\"\n", lc.followUpStyle)
	b.WriteString("- Consider advanced topics for remaining time\n")
	b.WriteString("\n### Time Management:\n")
	fmt.Fprintf(&b, "- **%d minutes main section**: Prioritize %s\n", ta.main, strings.Join(tc.priorityAreas, ", "))
	b.WriteString("- **Running behind**: Skip lower-priority questions, focus on core competencies\n")
	b.WriteString("- **Ahead of schedule**: Dive deeper into their strongest areas\n")

	fmt.Fprintf(&b, "\n## Assessment Criteria (Weighted for %s %s)\n\n%s\n\n**Level Adjustment**: %s\n", level, itype, assessmentCriteria[itype], levelAdjustments[level])

	b.WriteString("\n## Communication Guidelines\n\n")
	fmt.Fprintf(&b, "### Tone for %s Candidate:\n", level)
	fmt.Fprintf(&b, "- %s\n", lc.toneGuidelines)
	b.WriteString("- Adjust technical language appropriately for their level\n")
	fmt.Fprintf(&b, "- %s\n", lc.encouragementStyle)
	fmt.Fprintf(&b, "\n### Expected Interaction Style:\n%s\n", tc.interactionStyle)

	b.WriteString("\n## Post-Interview Analysis Framework\n\nYou must be prepared to provide:\n\n")
	b.WriteString("### Quantitative Assessment:\n")
	fmt.Fprintf(&b, "- **Overall Score** (1-100): Based on performance against %s %s expectations\n", level, itype)
	fmt.Fprintf(&b, "- **Recommendation** (hire/maybe/no): %s\n", recommendationGuidance[level])
	b.WriteString("\n### Qualitative Feedback:\n")
	b.WriteString("- **Summary**: 2-3 sentences highlighting key observations\n")
	fmt.Fprintf(&b, "- **Strengths**: Specific areas where %s demonstrated competency\n", candidate)
	fmt.Fprintf(&b, "- **Areas for Improvement**: Constructive feedback appropriate for %s level\n", level)
	b.WriteString("- **Detailed Feedback**: Comprehensive analysis covering:\n")
	for _, a := range tc.feedbackAreas {
		fmt.Fprintf(&b, "  - %s\n", a)
	}

	b.WriteString("\n## Success Metrics for This Interview:\n")
	fmt.Fprintf(&b, "- Candidate demonstrates appropriate %s-level competency for %s role\n", level, iv.Position)
	fmt.Fprintf(&b, "- %s interview objectives are met within allocated time\n", itype)
	b.WriteString("- Clear assessment data collected for hiring decision\n")
	b.WriteString("- Positive candidate experience maintained throughout\n")
	b.WriteString("- Specific examples and evidence gathered to support recommendation\n")

	b.WriteString("\n## Special Considerations:\n")
	fmt.Fprintf(&b, "- This is a %s level position, so calibrate expectations accordingly\n", level)
	fmt.Fprintf(&b, "- %s interviews should focus heavily on %s\n", itype, tc.primaryFocus)
	fmt.Fprintf(&b, "- Remember that %s may be interviewing for multiple positions - sell the role and %s\n", candidate, company)
	fmt.Fprintf(&b, "- Keep the conversation professional yet engaging throughout the %d minutes\n", ta.total)

	if itype == domain.TypeTechnical {
		b.WriteString(`
## Technical Interview Specific Notes:
- Use a collaborative approach - you're coding together, not testing them
- If they get stuck, provide progressive hints rather than moving to next question
- Focus on problem-solving process over perfect solutions
- Ask them to explain their thinking out loud
`)
	}
	if itype == domain.TypeSystemDesign {
		fmt.Fprintf(&b, `
## System Design Interview Specific Notes:
- Start with clarifying questions about requirements and constraints
- Guide them through the design process step by step
- Discuss trade-offs and alternatives
- Scale the complexity based on their %s level
`, level)
	}

	b.WriteString("\nBegin the interview now with enthusiasm and professionalism!")
	return b.String()
}
