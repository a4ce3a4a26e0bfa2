package interviews

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/krishkalaria12/echo-interview/internal/domain"
	"github.com/krishkalaria12/echo-interview/internal/pkg/logger"
)

// AnalysisUpdate is the atomic result write performed once deep analysis
// finishes. Nil pointer fields persist as SQL nulls.
type AnalysisUpdate struct {
	OverallScore   *int
	Recommendation *string
	Summary        *string
	Strengths      *string
	Improvements   *string
	Feedback       *string
	Analysis       datatypes.JSON
}

type InterviewRepo interface {
	Create(ctx context.Context, interview *domain.Interview) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Interview, error)
	GetByIDAndStatus(ctx context.Context, id uuid.UUID, status domain.InterviewStatus) (*domain.Interview, error)

	// GetStartable returns the interview iff its status still permits a
	// session start (not completed/active/cancelled/processing).
	GetStartable(ctx context.Context, id uuid.UUID) (*domain.Interview, error)

	MarkActive(ctx context.Context, id uuid.UUID, startedAt time.Time) error
	// MarkProcessingIfActive transitions active -> processing and reports
	// whether the row actually changed, so duplicate call-ended webhooks
	// are observable no-ops.
	MarkProcessingIfActive(ctx context.Context, id uuid.UUID, endedAt time.Time) (bool, error)
	CancelIfPending(ctx context.Context, id uuid.UUID) (bool, error)

	SetTranscriptURL(ctx context.Context, id uuid.UUID, url string) (*domain.Interview, error)
	SetRecordingURL(ctx context.Context, id uuid.UUID, url string) error

	// SaveSummary atomically persists the summary and completes the interview.
	SaveSummary(ctx context.Context, id uuid.UUID, summary string) error
	// SaveAnalysis atomically persists all result fields. The summary column
	// is only filled when still null so a completed summarization write is
	// never clobbered by the concurrent analysis workflow.
	SaveAnalysis(ctx context.Context, id uuid.UUID, upd AnalysisUpdate) error
}

type interviewRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInterviewRepo(db *gorm.DB, baseLog *logger.Logger) InterviewRepo {
	return &interviewRepo{
		db:  db,
		log: baseLog.With("repo", "InterviewRepo"),
	}
}

func (r *interviewRepo) Create(ctx context.Context, interview *domain.Interview) error {
	return r.db.WithContext(ctx).Create(interview).Error
}

func (r *interviewRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Interview, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out domain.Interview
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *interviewRepo) GetByIDAndStatus(ctx context.Context, id uuid.UUID, status domain.InterviewStatus) (*domain.Interview, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out domain.Interview
	err := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, status).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *interviewRepo) GetStartable(ctx context.Context, id uuid.UUID) (*domain.Interview, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out domain.Interview
	err := r.db.WithContext(ctx).
		Where("id = ? AND status NOT IN ?", id, []domain.InterviewStatus{
			domain.StatusCompleted,
			domain.StatusActive,
			domain.StatusCancelled,
			domain.StatusProcessing,
		}).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *interviewRepo) MarkActive(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.Interview{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     domain.StatusActive,
			"started_at": startedAt,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *interviewRepo) MarkProcessingIfActive(ctx context.Context, id uuid.UUID, endedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Interview{}).
		Where("id = ? AND status = ?", id, domain.StatusActive).
		Updates(map[string]any{
			"status":     domain.StatusProcessing,
			"ended_at":   endedAt,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *interviewRepo) CancelIfPending(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Interview{}).
		Where("id = ? AND status IN ?", id, []domain.InterviewStatus{
			domain.StatusUpcoming,
			domain.StatusActive,
		}).
		Updates(map[string]any{
			"status":     domain.StatusCancelled,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *interviewRepo) SetTranscriptURL(ctx context.Context, id uuid.UUID, url string) (*domain.Interview, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	res := r.db.WithContext(ctx).
		Model(&domain.Interview{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"transcript_url": url,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r *interviewRepo) SetRecordingURL(ctx context.Context, id uuid.UUID, url string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Interview{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"recording_url": url,
			"updated_at":    time.Now().UTC(),
		}).Error
}

func (r *interviewRepo) SaveSummary(ctx context.Context, id uuid.UUID, summary string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Interview{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"summary":    summary,
			"status":     domain.StatusCompleted,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *interviewRepo) SaveAnalysis(ctx context.Context, id uuid.UUID, upd AnalysisUpdate) error {
	updates := map[string]any{
		"overall_score":  upd.OverallScore,
		"recommendation": upd.Recommendation,
		"strengths":      upd.Strengths,
		"improvements":   upd.Improvements,
		"feedback":       upd.Feedback,
		"updated_at":     time.Now().UTC(),
	}
	if len(upd.Analysis) > 0 {
		updates["analysis"] = upd.Analysis
	}
	if upd.Summary != nil {
		// The summarization workflow owns the summary column once it has
		// written; analysis only fills the gap.
		updates["summary"] = gorm.Expr("COALESCE(summary, ?)", *upd.Summary)
	}
	return r.db.WithContext(ctx).
		Model(&domain.Interview{}).
		Where("id = ?", id).
		Updates(updates).Error
}
