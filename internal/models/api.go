package models

import "github.com/google/uuid"

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

// WSMessage is the envelope relayed to WebSocket clients via Redis pub/sub.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// LogEnrichedEvent tells a client that enrichment for one of its logs has
// finished and the log can be re-fetched.
type LogEnrichedEvent struct {
	LogID uuid.UUID `json:"log_id"`
}
