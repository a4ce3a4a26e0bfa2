package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Agent is the durable interviewer identity for one interview. Instructions
// start from the generated system prompt and may later gain an enriched
// candidate profile section.
type Agent struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string     `gorm:"not null" json:"name"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	InterviewID  *uuid.UUID `gorm:"type:uuid;column:interview_id;uniqueIndex" json:"interview_id,omitempty"`
	Instructions string     `gorm:"type:text;not null" json:"instructions"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated_at"`
}

func (Agent) TableName() string { return "agents" }

func (a *Agent) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
