package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InterviewStatus drives workflow eligibility. Transitions follow
// upcoming -> active -> processing -> completed, with cancelled reachable
// from upcoming (user-initiated). All transitions are precondition-gated
// at the repo layer so duplicate webhook delivery is a no-op.
type InterviewStatus string

const (
	StatusUpcoming   InterviewStatus = "upcoming"
	StatusActive     InterviewStatus = "active"
	StatusCompleted  InterviewStatus = "completed"
	StatusProcessing InterviewStatus = "processing"
	StatusCancelled  InterviewStatus = "cancelled"
)

type ExperienceLevel string

const (
	LevelJunior ExperienceLevel = "junior"
	LevelMid    ExperienceLevel = "mid"
	LevelSenior ExperienceLevel = "senior"
)

type InterviewType string

const (
	TypeTechnical    InterviewType = "technical"
	TypeBehavioral   InterviewType = "behavioral"
	TypeSystemDesign InterviewType = "system_design"
	TypeMixed        InterviewType = "mixed"
)

type Recommendation string

const (
	RecommendHire  Recommendation = "hire"
	RecommendMaybe Recommendation = "maybe"
	RecommendNo    Recommendation = "no"
)

// ValidRecommendation reports whether v is one of the three persistable
// recommendation values. Anything else is stored as null.
func ValidRecommendation(v string) bool {
	switch Recommendation(v) {
	case RecommendHire, RecommendMaybe, RecommendNo:
		return true
	default:
		return false
	}
}

type Interview struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name   string    `gorm:"not null" json:"name"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	Position        string          `gorm:"not null;index" json:"position"`
	JobDescription  string          `gorm:"column:job_description" json:"job_description,omitempty"`
	ExperienceLevel ExperienceLevel `gorm:"column:experience_level;not null;index" json:"experience_level"`
	InterviewType   InterviewType   `gorm:"column:interview_type;not null" json:"interview_type"`
	ScheduledFor    *time.Time      `gorm:"column:scheduled_for;index" json:"scheduled_for,omitempty"`

	ResumeURL    string `gorm:"column:resume_url;not null" json:"resume_url"`
	PortfolioURL string `gorm:"column:portfolio_url" json:"portfolio_url,omitempty"`
	GithubURL    string `gorm:"column:github_url" json:"github_url,omitempty"`
	LinkedinURL  string `gorm:"column:linkedin_url" json:"linkedin_url,omitempty"`

	Status    InterviewStatus `gorm:"column:status;not null;index" json:"status"`
	StartedAt *time.Time      `gorm:"column:started_at" json:"started_at,omitempty"`
	EndedAt   *time.Time      `gorm:"column:ended_at" json:"ended_at,omitempty"`

	TranscriptURL string `gorm:"column:transcript_url" json:"transcript_url,omitempty"`
	RecordingURL  string `gorm:"column:recording_url" json:"recording_url,omitempty"`

	// Result fields stay null until deep analysis completes; each write is a
	// single atomic update, never a partial one.
	OverallScore   *int           `gorm:"column:overall_score" json:"overall_score,omitempty"`
	Feedback       *string        `gorm:"column:feedback" json:"feedback,omitempty"`
	Strengths      *string        `gorm:"column:strengths" json:"strengths,omitempty"`
	Improvements   *string        `gorm:"column:improvements" json:"improvements,omitempty"`
	Recommendation *string        `gorm:"column:recommendation" json:"recommendation,omitempty"`
	Summary        *string        `gorm:"column:summary" json:"summary,omitempty"`
	Analysis       datatypes.JSON `gorm:"column:analysis;type:jsonb" json:"analysis,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Interview) TableName() string { return "interviews" }

func (i *Interview) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	if i.Status == "" {
		i.Status = StatusUpcoming
	}
	if i.InterviewType == "" {
		i.InterviewType = TypeTechnical
	}
	return nil
}
