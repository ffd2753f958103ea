package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is a single turn in a tutor conversation.
type ChatMessage struct {
	Role      string    `json:"role"` // "user", "assistant" or "system"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChatSession holds an ordered transcript. Messages are append-only; the
// title is derived from the first user message and set once.
type ChatSession struct {
	ID         uuid.UUID     `json:"id"`
	UserID     uuid.UUID     `json:"userId"`
	Title      string        `json:"title"`
	Messages   []ChatMessage `json:"messages"`
	LastActive time.Time     `json:"lastActive"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// GenerateRequest is the body of POST /api/ai/generate. Type "chat" runs
// retrieval-augmented tutoring; every other type is a direct completion with
// a fixed instruction template.
type GenerateRequest struct {
	Type      string     `json:"type"`
	Prompt    string     `json:"prompt"`
	Context   string     `json:"context"`
	SessionID *uuid.UUID `json:"sessionId"`
}

type GenerateResponse struct {
	Result    string     `json:"result"`
	SessionID *uuid.UUID `json:"sessionId,omitempty"`
}
