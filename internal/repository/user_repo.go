package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studybuddy-backend/internal/models"
)

// StartingCredits is the free-plan allotment given to a lazily created user.
const StartingCredits = 5

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = uuid.New()
	if user.Plan == "" {
		user.Plan = "free"
	}
	user.Credits = StartingCredits

	query := `INSERT INTO users (id, external_id, email, full_name, plan, credits)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		user.ID, user.ExternalID, user.Email, user.FullName, user.Plan, user.Credits,
	).Scan(&user.CreatedAt)
}

func (r *UserRepo) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, external_id, email, full_name, plan, credits, created_at
		FROM users WHERE external_id = $1`

	err := r.pool.QueryRow(ctx, query, externalID).Scan(
		&user.ID, &user.ExternalID, &user.Email, &user.FullName,
		&user.Plan, &user.Credits, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, external_id, email, full_name, plan, credits, created_at
		FROM users WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.ExternalID, &user.Email, &user.FullName,
		&user.Plan, &user.Credits, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// DeductCredit burns one free-plan credit, never going below zero.
func (r *UserRepo) DeductCredit(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET credits = GREATEST(credits - 1, 0)
		WHERE id = $1 AND plan = 'free'
	`, id)
	return err
}
