package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"studybuddy-backend/internal/middleware"
	"studybuddy-backend/internal/models"
)

type studyService interface {
	Create(ctx context.Context, userID uuid.UUID, req models.CreateStudyLogRequest) (*models.StudyLog, error)
	List(ctx context.Context, userID uuid.UUID) ([]*models.StudyLog, error)
	Stats(ctx context.Context, userID uuid.UUID) (*models.StudyStats, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type StudyHandler struct {
	service studyService
}

func NewStudyHandler(service studyService) *StudyHandler {
	return &StudyHandler{service: service}
}

// Create persists the log and responds with the base record. Enrichment is
// scheduled behind the scenes and never delays this response.
func (h *StudyHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var req models.CreateStudyLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	log, err := h.service.Create(r.Context(), user.ID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, log)
}

func (h *StudyHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	logs, err := h.service.List(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if logs == nil {
		logs = []*models.StudyLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *StudyHandler) Stats(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	stats, err := h.service.Stats(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *StudyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid study log ID", r))
		return
	}

	if err := h.service.Delete(r.Context(), user.ID, id); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Study log deleted"})
}
