package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"studybuddy-backend/internal/models"
)

// Job is one enrichment task: analyze a log's notes and merge the results
// back. A job runs at most once; there is no retry.
type Job struct {
	LogID  uuid.UUID
	UserID uuid.UUID
	Notes  string
}

type notesAnalyzer interface {
	AnalyzeNotes(ctx context.Context, notes string) (*models.NotesAnalysis, error)
}

type enrichmentStore interface {
	UpdateEnrichment(ctx context.Context, id uuid.UUID, upd models.EnrichmentUpdate) error
}

// Pool runs enrichment detached from the request cycle. Create handlers
// Submit jobs and return immediately; workers drain the channel and absorb
// every failure.
type Pool struct {
	jobs        chan Job
	analyzer    notesAnalyzer
	store       enrichmentStore
	redis       *redis.Client // nil when events are disabled
	workerCount int
	stopChan    chan struct{}
}

func NewPool(analyzer notesAnalyzer, store enrichmentStore, redisClient *redis.Client, workerCount, queueSize int) *Pool {
	return &Pool{
		jobs:        make(chan Job, queueSize),
		analyzer:    analyzer,
		store:       store,
		redis:       redisClient,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	log.Printf("Started %d enrichment workers", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

// Submit never blocks: if the queue is full the job runs on its own
// goroutine instead of delaying the create request.
func (p *Pool) Submit(logID, userID uuid.UUID, notes string) {
	job := Job{LogID: logID, UserID: userID, Notes: notes}
	select {
	case p.jobs <- job:
	default:
		go p.process(job)
	}
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Enrichment worker %d shutting down", id)
			return
		case job := <-p.jobs:
			p.process(job)
		}
	}
}

// process is the job's error boundary: any failure is logged and the log is
// left with whatever enrichment it already had.
func (p *Pool) process(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	analysis, err := p.analyzer.AnalyzeNotes(ctx, job.Notes)
	if err != nil {
		log.Printf("Enrichment failed for log %s (continuing without it): %v", job.LogID, err)
		return
	}

	upd := buildUpdate(analysis)
	if err := p.store.UpdateEnrichment(ctx, job.LogID, upd); err != nil {
		log.Printf("Failed to merge enrichment for log %s: %v", job.LogID, err)
		return
	}

	p.publishEnriched(ctx, job)
}

// buildUpdate keeps only the fields the analysis actually returned, so a
// partial result still merges. Unrecognized difficulty coerces to Medium.
func buildUpdate(analysis *models.NotesAnalysis) models.EnrichmentUpdate {
	var upd models.EnrichmentUpdate

	if analysis.Summary != "" {
		upd.Summary = &analysis.Summary
	}
	if analysis.Tags != nil {
		upd.Tags = analysis.Tags
	}
	if analysis.Questions != nil {
		upd.Questions = analysis.Questions
	}

	difficulty := analysis.Difficulty
	switch difficulty {
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
	default:
		difficulty = models.DifficultyMedium
	}
	upd.Difficulty = &difficulty

	return upd
}

// publishEnriched notifies connected clients over Redis pub/sub. Best
// effort: without Redis the enrichment itself has already landed.
func (p *Pool) publishEnriched(ctx context.Context, job Job) {
	if p.redis == nil {
		return
	}

	data, _ := json.Marshal(models.WSMessage{
		Type:    "log_enriched",
		Payload: models.LogEnrichedEvent{LogID: job.LogID},
	})
	if err := p.redis.Publish(ctx, fmt.Sprintf("user_updates:%s", job.UserID), string(data)).Err(); err != nil {
		log.Printf("Failed to publish enrichment event for log %s: %v", job.LogID, err)
	}
}
