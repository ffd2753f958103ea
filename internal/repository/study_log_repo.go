package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studybuddy-backend/internal/models"
)

type StudyLogRepo struct {
	pool *pgxpool.Pool
}

func NewStudyLogRepo(pool *pgxpool.Pool) *StudyLogRepo {
	return &StudyLogRepo{pool: pool}
}

func (r *StudyLogRepo) Create(ctx context.Context, l *models.StudyLog) error {
	l.ID = uuid.New()
	if l.AITags == nil {
		l.AITags = []string{}
	}
	if l.AIQuestions == nil {
		l.AIQuestions = []string{}
	}

	query := `INSERT INTO study_logs
		(id, user_id, subject, topic, duration_minutes, notes, confidence_level,
		 difficulty_level, revision_due_date, ai_tags, ai_questions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING date, created_at`

	return r.pool.QueryRow(ctx, query,
		l.ID, l.UserID, l.Subject, l.Topic, l.DurationMinutes, l.Notes,
		l.ConfidenceLevel, l.DifficultyLevel, l.RevisionDueDate, l.AITags, l.AIQuestions,
	).Scan(&l.Date, &l.CreatedAt)
}

func (r *StudyLogRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.StudyLog, error) {
	l := &models.StudyLog{}
	query := `SELECT id, user_id, subject, topic, duration_minutes, notes,
		confidence_level, difficulty_level, revision_due_date,
		ai_summary, ai_tags, ai_questions, date, created_at
		FROM study_logs WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&l.ID, &l.UserID, &l.Subject, &l.Topic, &l.DurationMinutes, &l.Notes,
		&l.ConfidenceLevel, &l.DifficultyLevel, &l.RevisionDueDate,
		&l.AISummary, &l.AITags, &l.AIQuestions, &l.Date, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// ListByUser returns every log for the user, newest first.
func (r *StudyLogRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.StudyLog, error) {
	query := `SELECT id, user_id, subject, topic, duration_minutes, notes,
		confidence_level, difficulty_level, revision_due_date,
		ai_summary, ai_tags, ai_questions, date, created_at
		FROM study_logs WHERE user_id = $1 ORDER BY date DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.StudyLog
	for rows.Next() {
		l := &models.StudyLog{}
		if err := rows.Scan(
			&l.ID, &l.UserID, &l.Subject, &l.Topic, &l.DurationMinutes, &l.Notes,
			&l.ConfidenceLevel, &l.DifficultyLevel, &l.RevisionDueDate,
			&l.AISummary, &l.AITags, &l.AIQuestions, &l.Date, &l.CreatedAt,
		); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// ListRecent returns the user's most recent logs, newest first, projected to
// the fields the chat context needs.
func (r *StudyLogRepo) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]*models.StudyLog, error) {
	query := `SELECT id, subject, topic, confidence_level, ai_summary, date
		FROM study_logs WHERE user_id = $1 ORDER BY date DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.StudyLog
	for rows.Next() {
		l := &models.StudyLog{UserID: userID}
		if err := rows.Scan(&l.ID, &l.Subject, &l.Topic, &l.ConfidenceLevel, &l.AISummary, &l.Date); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (r *StudyLogRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM study_logs WHERE id = $1", id)
	return err
}

// UpdateEnrichment merges AI analysis results into a log. Only enrichment
// columns are ever touched; nil fields in the update are skipped so a partial
// analysis still lands.
func (r *StudyLogRepo) UpdateEnrichment(ctx context.Context, id uuid.UUID, upd models.EnrichmentUpdate) error {
	var sets []string
	var args []interface{}
	argIdx := 1

	if upd.Summary != nil {
		sets = append(sets, fmt.Sprintf("ai_summary = $%d", argIdx))
		args = append(args, *upd.Summary)
		argIdx++
	}
	if upd.Tags != nil {
		sets = append(sets, fmt.Sprintf("ai_tags = $%d", argIdx))
		args = append(args, upd.Tags)
		argIdx++
	}
	if upd.Questions != nil {
		sets = append(sets, fmt.Sprintf("ai_questions = $%d", argIdx))
		args = append(args, upd.Questions)
		argIdx++
	}
	if upd.Difficulty != nil {
		sets = append(sets, fmt.Sprintf("difficulty_level = $%d", argIdx))
		args = append(args, *upd.Difficulty)
		argIdx++
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE study_logs SET %s WHERE id = $%d", strings.Join(sets, ", "), argIdx)
	_, err := r.pool.Exec(ctx, query, args...)
	return err
}
