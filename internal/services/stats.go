package services

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"studybuddy-backend/internal/cache"
	"studybuddy-backend/internal/models"
)

type studyLogLister interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.StudyLog, error)
}

// StatsService computes per-user aggregates with a read-through cache.
// Correctness comes from Invalidate being called on every write; the TTL is
// only a backstop.
type StatsService struct {
	logs  studyLogLister
	cache cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

func NewStatsService(logs studyLogLister, c cache.Cache, ttl time.Duration) *StatsService {
	return &StatsService{
		logs:  logs,
		cache: c,
		ttl:   ttl,
		now:   time.Now,
	}
}

func statsKey(userID uuid.UUID) string {
	return "stats:" + userID.String()
}

// GetStats serves the cached payload verbatim on a hit. On a miss it loads
// the user's logs, aggregates, and repopulates the cache before returning.
func (s *StatsService) GetStats(ctx context.Context, userID uuid.UUID) (*models.StudyStats, error) {
	key := statsKey(userID)

	if cached, err := s.cache.Get(ctx, key); err == nil {
		stats := &models.StudyStats{}
		if err := json.Unmarshal([]byte(cached), stats); err == nil {
			return stats, nil
		}
		// Corrupt entry: drop it and recompute
		s.cache.Delete(ctx, key)
	}

	logs, err := s.logs.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := s.aggregate(logs)

	if payload, err := json.Marshal(stats); err == nil {
		s.cache.Set(ctx, key, string(payload), s.ttl)
	} else {
		log.Printf("Failed to marshal stats for %s: %v", userID, err)
	}

	return stats, nil
}

// Invalidate drops the user's cached stats. Called synchronously on every
// create and delete, before the response is written.
func (s *StatsService) Invalidate(ctx context.Context, userID uuid.UUID) {
	s.cache.Delete(ctx, statsKey(userID))
}

func (s *StatsService) aggregate(logs []*models.StudyLog) *models.StudyStats {
	totalMinutes := 0
	subjectMinutes := make(map[string]int)
	for _, l := range logs {
		totalMinutes += l.DurationMinutes
		subjectMinutes[l.Subject] += l.DurationMinutes
	}

	recent := logs
	if len(recent) > 5 {
		recent = recent[:5]
	}

	return &models.StudyStats{
		TotalLogs:      len(logs),
		TotalHours:     math.Round(float64(totalMinutes)/60*10) / 10,
		SubjectMinutes: subjectMinutes,
		StreakDays:     streakDays(logs, s.now()),
		RecentLogs:     recent,
	}
}

// streakDays counts consecutive calendar days with at least one log, ending
// today or yesterday. A single missed day breaks the chain.
func streakDays(logs []*models.StudyLog, now time.Time) int {
	if len(logs) == 0 {
		return 0
	}

	seen := make(map[time.Time]bool)
	for _, l := range logs {
		seen[midnight(l.Date.In(now.Location()))] = true
	}

	days := make([]time.Time, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	today := midnight(now)
	yesterday := today.AddDate(0, 0, -1)

	last := days[0]
	if !last.Equal(today) && !last.Equal(yesterday) {
		return 0
	}

	streak := 1
	expected := last.AddDate(0, 0, -1)
	for _, d := range days[1:] {
		if !d.Equal(expected) {
			break
		}
		streak++
		expected = expected.AddDate(0, 0, -1)
	}
	return streak
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
