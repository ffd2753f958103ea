package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studybuddy-backend/internal/models"
)

type ChatSessionRepo struct {
	pool *pgxpool.Pool
}

func NewChatSessionRepo(pool *pgxpool.Pool) *ChatSessionRepo {
	return &ChatSessionRepo{pool: pool}
}

func (r *ChatSessionRepo) Create(ctx context.Context, s *models.ChatSession) error {
	s.ID = uuid.New()
	if s.Messages == nil {
		s.Messages = []models.ChatMessage{}
	}
	msgs, err := json.Marshal(s.Messages)
	if err != nil {
		return err
	}

	query := `INSERT INTO chat_sessions (id, user_id, title, messages)
		VALUES ($1, $2, $3, $4)
		RETURNING last_active, created_at`

	return r.pool.QueryRow(ctx, query, s.ID, s.UserID, s.Title, msgs).
		Scan(&s.LastActive, &s.CreatedAt)
}

func (r *ChatSessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ChatSession, error) {
	s := &models.ChatSession{}
	var msgs []byte

	query := `SELECT id, user_id, title, messages, last_active, created_at
		FROM chat_sessions WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).
		Scan(&s.ID, &s.UserID, &s.Title, &msgs, &s.LastActive, &s.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(msgs, &s.Messages); err != nil {
		return nil, err
	}
	return s, nil
}

// ListByUser returns the user's sessions without transcripts, most recently
// active first.
func (r *ChatSessionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.ChatSession, error) {
	query := `SELECT id, user_id, title, last_active, created_at
		FROM chat_sessions WHERE user_id = $1 ORDER BY last_active DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.ChatSession
	for rows.Next() {
		s := &models.ChatSession{}
		if err := rows.Scan(&s.ID, &s.UserID, &s.Title, &s.LastActive, &s.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// AppendMessages adds turns to the transcript and bumps last_active.
// Existing messages are never rewritten.
func (r *ChatSessionRepo) AppendMessages(ctx context.Context, id uuid.UUID, msgs []models.ChatMessage) error {
	data, err := json.Marshal(msgs)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		UPDATE chat_sessions
		SET messages = messages || $2::jsonb,
			last_active = NOW()
		WHERE id = $1
	`, id, data)
	return err
}

// SetTitleOnce replaces the placeholder title; a title that was already
// derived is left alone.
func (r *ChatSessionRepo) SetTitleOnce(ctx context.Context, id uuid.UUID, placeholder, title string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE chat_sessions SET title = $3 WHERE id = $1 AND title = $2",
		id, placeholder, title)
	return err
}

func (r *ChatSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM chat_sessions WHERE id = $1", id)
	return err
}
