package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"studybuddy-backend/internal/models"
)

// minNotesLength is the enrichment trigger threshold: notes must be longer
// than this for the log to be scheduled for AI analysis.
const minNotesLength = 10

type studyLogStore interface {
	Create(ctx context.Context, l *models.StudyLog) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.StudyLog, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.StudyLog, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// EnrichmentScheduler hands a log off for background analysis. Submit must
// never block the caller.
type EnrichmentScheduler interface {
	Submit(logID, userID uuid.UUID, notes string)
}

// StudyService owns the write path for study logs: validate, persist,
// invalidate cached stats, then schedule enrichment fire-and-forget.
type StudyService struct {
	repo     studyLogStore
	stats    *StatsService
	enricher EnrichmentScheduler
}

func NewStudyService(repo studyLogStore, stats *StatsService, enricher EnrichmentScheduler) *StudyService {
	return &StudyService{
		repo:     repo,
		stats:    stats,
		enricher: enricher,
	}
}

func (s *StudyService) Create(ctx context.Context, userID uuid.UUID, req models.CreateStudyLogRequest) (*models.StudyLog, error) {
	fieldErrors := make(map[string]string)
	if req.Subject == "" {
		fieldErrors["subject"] = "Subject is required"
	}
	if req.Topic == "" {
		fieldErrors["topic"] = "Topic is required"
	}
	if req.DurationMinutes <= 0 {
		fieldErrors["durationMinutes"] = "Duration must be a positive number of minutes"
	}
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	confidence := req.ConfidenceLevel
	if confidence < 1 || confidence > 5 {
		confidence = 3
	}

	log := &models.StudyLog{
		UserID:          userID,
		Subject:         req.Subject,
		Topic:           req.Topic,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
		ConfidenceLevel: confidence,
		DifficultyLevel: models.DifficultyMedium,
		RevisionDueDate: revisionDueDate(time.Now(), confidence),
	}

	if err := s.repo.Create(ctx, log); err != nil {
		return nil, err
	}

	// Invalidate before responding; this, not the TTL, bounds staleness.
	s.stats.Invalidate(ctx, userID)

	if log.Notes != nil && len(*log.Notes) > minNotesLength {
		s.enricher.Submit(log.ID, userID, *log.Notes)
	}

	return log, nil
}

func (s *StudyService) List(ctx context.Context, userID uuid.UUID) ([]*models.StudyLog, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *StudyService) Stats(ctx context.Context, userID uuid.UUID) (*models.StudyStats, error) {
	return s.stats.GetStats(ctx, userID)
}

func (s *StudyService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	log, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &NotFoundError{Message: "Study log not found"}
		}
		return err
	}

	if log.UserID != userID {
		return &ForbiddenError{Message: "You do not own this study log"}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.stats.Invalidate(ctx, userID)
	return nil
}

// revisionDueDate applies the rule-based spaced revision schedule: shaky
// confidence comes back tomorrow, solid confidence in a week, the rest in
// three days.
func revisionDueDate(now time.Time, confidence int) time.Time {
	days := 3
	if confidence <= 2 {
		days = 1
	}
	if confidence >= 4 {
		days = 7
	}
	return now.AddDate(0, 0, days)
}
