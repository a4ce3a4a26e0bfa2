package interviews

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/krishkalaria12/echo-interview/internal/domain"
	"github.com/krishkalaria12/echo-interview/internal/pkg/logger"
)

type AgentRepo interface {
	Create(ctx context.Context, agent *domain.Agent) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Agent, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Agent, error)
	GetByInterviewID(ctx context.Context, interviewID uuid.UUID) (*domain.Agent, error)
	UpdateInstructions(ctx context.Context, id uuid.UUID, instructions string) error
}

type agentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAgentRepo(db *gorm.DB, baseLog *logger.Logger) AgentRepo {
	return &agentRepo{
		db:  db,
		log: baseLog.With("repo", "AgentRepo"),
	}
}

func (r *agentRepo) Create(ctx context.Context, agent *domain.Agent) error {
	return r.db.WithContext(ctx).Create(agent).Error
}

func (r *agentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Agent, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out domain.Agent
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *agentRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Agent, error) {
	var out []*domain.Agent
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *agentRepo) GetByInterviewID(ctx context.Context, interviewID uuid.UUID) (*domain.Agent, error) {
	if interviewID == uuid.Nil {
		return nil, nil
	}
	var out domain.Agent
	err := r.db.WithContext(ctx).Where("interview_id = ?", interviewID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *agentRepo) UpdateInstructions(ctx context.Context, id uuid.UUID, instructions string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Agent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"instructions": instructions,
			"updated_at":   time.Now().UTC(),
		}).Error
}
