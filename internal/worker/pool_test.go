package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"studybuddy-backend/internal/models"
)

type fakeAnalyzer struct {
	analysis *models.NotesAnalysis
	err      error
	calls    int
}

func (f *fakeAnalyzer) AnalyzeNotes(ctx context.Context, notes string) (*models.NotesAnalysis, error) {
	f.calls++
	return f.analysis, f.err
}

type fakeEnrichmentStore struct {
	mu      sync.Mutex
	updates map[uuid.UUID]models.EnrichmentUpdate
	done    chan struct{}
}

func newFakeEnrichmentStore() *fakeEnrichmentStore {
	return &fakeEnrichmentStore{
		updates: make(map[uuid.UUID]models.EnrichmentUpdate),
		done:    make(chan struct{}, 16),
	}
}

func (f *fakeEnrichmentStore) UpdateEnrichment(ctx context.Context, id uuid.UUID, upd models.EnrichmentUpdate) error {
	f.mu.Lock()
	f.updates[id] = upd
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil
}

func (f *fakeEnrichmentStore) get(id uuid.UUID) (models.EnrichmentUpdate, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	upd, ok := f.updates[id]
	return upd, ok
}

func waitFor(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for enrichment to land")
	}
}

func TestProcess_MergesAnalysis(t *testing.T) {
	analyzer := &fakeAnalyzer{analysis: &models.NotesAnalysis{
		Summary:    "Covered the chain rule",
		Tags:       []string{"calculus", "derivatives"},
		Questions:  []string{"What is the chain rule?"},
		Difficulty: models.DifficultyHard,
	}}
	store := newFakeEnrichmentStore()
	pool := NewPool(analyzer, store, nil, 1, 4)

	logID := uuid.New()
	pool.process(Job{LogID: logID, UserID: uuid.New(), Notes: "long enough notes"})

	upd, ok := store.get(logID)
	if !ok {
		t.Fatal("Expected enrichment to be stored")
	}
	if upd.Summary == nil || *upd.Summary != "Covered the chain rule" {
		t.Errorf("Unexpected summary: %v", upd.Summary)
	}
	if len(upd.Tags) != 2 || len(upd.Questions) != 1 {
		t.Errorf("Unexpected tags/questions: %v / %v", upd.Tags, upd.Questions)
	}
	if upd.Difficulty == nil || *upd.Difficulty != models.DifficultyHard {
		t.Errorf("Unexpected difficulty: %v", upd.Difficulty)
	}
}

func TestProcess_AnalyzerFailureLeavesStoreUntouched(t *testing.T) {
	analyzer := &fakeAnalyzer{err: errors.New("model unavailable")}
	store := newFakeEnrichmentStore()
	pool := NewPool(analyzer, store, nil, 1, 4)

	pool.process(Job{LogID: uuid.New(), UserID: uuid.New(), Notes: "notes"})

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.updates) != 0 {
		t.Errorf("Expected no update after analyzer failure, got %v", store.updates)
	}
}

func TestBuildUpdate_CoercesUnknownDifficulty(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{models.DifficultyEasy, models.DifficultyEasy},
		{models.DifficultyMedium, models.DifficultyMedium},
		{models.DifficultyHard, models.DifficultyHard},
		{"Impossible", models.DifficultyMedium},
		{"", models.DifficultyMedium},
	}

	for _, tc := range tests {
		upd := buildUpdate(&models.NotesAnalysis{Difficulty: tc.in})
		if upd.Difficulty == nil || *upd.Difficulty != tc.want {
			t.Errorf("Difficulty %q: expected %q, got %v", tc.in, tc.want, upd.Difficulty)
		}
	}
}

func TestBuildUpdate_PartialResultKeepsOnlyReturnedFields(t *testing.T) {
	upd := buildUpdate(&models.NotesAnalysis{Summary: "just a summary"})

	if upd.Summary == nil || *upd.Summary != "just a summary" {
		t.Errorf("Unexpected summary: %v", upd.Summary)
	}
	if upd.Tags != nil {
		t.Errorf("Expected nil tags, got %v", upd.Tags)
	}
	if upd.Questions != nil {
		t.Errorf("Expected nil questions, got %v", upd.Questions)
	}
}

func TestSubmit_QueuedJobIsProcessed(t *testing.T) {
	analyzer := &fakeAnalyzer{analysis: &models.NotesAnalysis{Summary: "ok"}}
	store := newFakeEnrichmentStore()
	pool := NewPool(analyzer, store, nil, 2, 4)
	pool.Start()
	defer pool.Stop()

	logID := uuid.New()
	pool.Submit(logID, uuid.New(), "studied sorting algorithms")

	waitFor(t, store.done)
	if _, ok := store.get(logID); !ok {
		t.Error("Expected submitted job to be processed")
	}
}

func TestSubmit_NeverBlocksWhenQueueFull(t *testing.T) {
	analyzer := &fakeAnalyzer{analysis: &models.NotesAnalysis{Summary: "ok"}}
	store := newFakeEnrichmentStore()
	// No workers started and a single-slot queue: the second Submit must
	// overflow to its own goroutine instead of blocking.
	pool := NewPool(analyzer, store, nil, 0, 1)

	done := make(chan struct{})
	go func() {
		pool.Submit(uuid.New(), uuid.New(), "first")
		pool.Submit(uuid.New(), uuid.New(), "second")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Submit blocked on a full queue")
	}

	// The overflow job ran on its own goroutine
	waitFor(t, store.done)
}
