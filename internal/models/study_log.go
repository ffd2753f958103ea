package models

import (
	"time"

	"github.com/google/uuid"
)

// Difficulty levels assigned by AI analysis.
const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

// StudyLog is one logged study session. Base fields are written once at
// creation; the ai* fields are merged in later by the enrichment worker and
// stay at their zero values if enrichment never runs or fails.
type StudyLog struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"userId"`
	Subject         string    `json:"subject"`
	Topic           string    `json:"topic"`
	DurationMinutes int       `json:"durationMinutes"`
	Notes           *string   `json:"notes,omitempty"`
	ConfidenceLevel int       `json:"confidenceLevel"`
	DifficultyLevel string    `json:"difficultyLevel"`
	RevisionDueDate time.Time `json:"revisionDueDate"`
	AISummary       *string   `json:"aiSummary,omitempty"`
	AITags          []string  `json:"aiTags"`
	AIQuestions     []string  `json:"aiQuestions"`
	Date            time.Time `json:"date"`
	CreatedAt       time.Time `json:"createdAt"`
}

type CreateStudyLogRequest struct {
	Subject         string  `json:"subject"`
	Topic           string  `json:"topic"`
	DurationMinutes int     `json:"durationMinutes"`
	Notes           *string `json:"notes"`
	ConfidenceLevel int     `json:"confidenceLevel"`
}

// NotesAnalysis is the structured result of the AI content analysis of a
// log's notes.
type NotesAnalysis struct {
	Summary    string   `json:"summary"`
	Tags       []string `json:"tags"`
	Questions  []string `json:"questions"`
	Difficulty string   `json:"difficulty"`
}

// EnrichmentUpdate is a partial merge applied to a log's enrichment columns.
// Nil fields are left untouched; base fields are never part of it.
type EnrichmentUpdate struct {
	Summary    *string
	Tags       []string
	Questions  []string
	Difficulty *string
}

// StudyStats is the aggregate payload served by GET /api/study/stats and
// cached under stats:<userID>.
type StudyStats struct {
	TotalLogs      int            `json:"totalLogs"`
	TotalHours     float64        `json:"totalHours"`
	SubjectMinutes map[string]int `json:"subjectMinutes"`
	StreakDays     int            `json:"streakDays"`
	RecentLogs     []*StudyLog    `json:"recentLogs"`
}
