package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the local shadow of an identity-provider account, created lazily
// on the first request carrying a valid token for that subject.
type User struct {
	ID         uuid.UUID `json:"id"`
	ExternalID string    `json:"-"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	Plan       string    `json:"plan"` // free, pro or team
	Credits    int       `json:"credits"`
	CreatedAt  time.Time `json:"createdAt"`
}
