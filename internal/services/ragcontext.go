package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"studybuddy-backend/internal/models"
)

// NoHistorySentinel is substituted when a user has no logs yet, so the tutor
// never receives an empty context block.
const NoHistorySentinel = "No study history found yet."

// contextLogLimit bounds how much history goes into a chat prompt.
const contextLogLimit = 20

type recentLogLister interface {
	ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]*models.StudyLog, error)
}

// ContextBuilder assembles the retrieval-augmented context for tutor chat.
// It only builds text; calling the completion capability is the caller's job.
type ContextBuilder struct {
	logs recentLogLister
}

func NewContextBuilder(logs recentLogLister) *ContextBuilder {
	return &ContextBuilder{logs: logs}
}

// BuildContext renders the user's recent history, one log per line, newest
// first. Uploaded document text, when present, is prefixed under its own
// delimiter so the model sees both blocks unambiguously separated.
func (b *ContextBuilder) BuildContext(ctx context.Context, userID uuid.UUID, uploadedText string) (string, error) {
	logs, err := b.logs.ListRecent(ctx, userID, contextLogLimit)
	if err != nil {
		return "", err
	}

	history := NoHistorySentinel
	if len(logs) > 0 {
		lines := make([]string, 0, len(logs))
		for _, l := range logs {
			summary := ""
			if l.AISummary != nil {
				summary = *l.AISummary
			}
			lines = append(lines, fmt.Sprintf("- [%s] %s: %s (Confidence: %d/5). Notes: %s",
				l.Date.Format("2006-01-02"), l.Subject, l.Topic, l.ConfidenceLevel, summary))
		}
		history = strings.Join(lines, "\n")
	}

	if strings.TrimSpace(uploadedText) == "" {
		return history, nil
	}

	return "=== UPLOADED DOCUMENT ===\n" + uploadedText +
		"\n\n=== STUDY HISTORY ===\n" + history, nil
}
