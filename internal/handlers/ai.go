package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"studybuddy-backend/internal/middleware"
	"studybuddy-backend/internal/models"
	"studybuddy-backend/internal/services"
)

// TitlePlaceholder is the title of a chat session before its first user
// message arrives.
const TitlePlaceholder = "New Chat"

type completer interface {
	Generate(ctx context.Context, instruction, content string) (string, error)
}

type studyContextBuilder interface {
	BuildContext(ctx context.Context, userID uuid.UUID, uploadedText string) (string, error)
}

type chatSessionStore interface {
	Create(ctx context.Context, s *models.ChatSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ChatSession, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.ChatSession, error)
	AppendMessages(ctx context.Context, id uuid.UUID, msgs []models.ChatMessage) error
	SetTitleOnce(ctx context.Context, id uuid.UUID, placeholder, title string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type creditStore interface {
	DeductCredit(ctx context.Context, id uuid.UUID) error
}

type AIHandler struct {
	ai       completer
	contexts studyContextBuilder
	sessions chatSessionStore
	users    creditStore
}

func NewAIHandler(ai completer, contexts studyContextBuilder, sessions chatSessionStore, users creditStore) *AIHandler {
	return &AIHandler{
		ai:       ai,
		contexts: contexts,
		sessions: sessions,
		users:    users,
	}
}

// Generate serves POST /api/ai/generate. Type "chat" assembles study-history
// context and appends the turn to a session; every other type is a direct
// completion with its fixed instruction template.
func (h *AIHandler) Generate(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var req models.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if req.Type == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Generation type is required", r))
		return
	}

	if user.Plan == "free" && user.Credits <= 0 {
		writeJSON(w, http.StatusForbidden, map[string]interface{}{
			"message":      "You have used all your free AI credits. Upgrade to Pro for unlimited access.",
			"outOfCredits": true,
		})
		return
	}

	if req.Type == "chat" {
		h.generateChat(w, r, user, req)
		return
	}

	content := req.Context
	if content == "" {
		content = req.Prompt
	}
	if strings.TrimSpace(content) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Context or prompt is required", r))
		return
	}

	result, err := h.ai.Generate(r.Context(), services.InstructionFor(req.Type), content)
	if err != nil {
		handleServiceError(w, r, &services.UpstreamError{Message: "AI generation failed"})
		return
	}

	h.users.DeductCredit(r.Context(), user.ID)

	writeJSON(w, http.StatusOK, models.GenerateResponse{Result: result})
}

func (h *AIHandler) generateChat(w http.ResponseWriter, r *http.Request, user *models.User, req models.GenerateRequest) {
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Prompt is required for chat", r))
		return
	}

	// RAG: recent study history, plus any uploaded document text the client
	// passed along in context.
	studyContext, err := h.contexts.BuildContext(r.Context(), user.ID, req.Context)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	session, err := h.resolveSession(r.Context(), user, req.SessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	result, err := h.ai.Generate(r.Context(), services.ChatInstruction(studyContext), req.Prompt)
	if err != nil {
		handleServiceError(w, r, &services.UpstreamError{Message: "AI generation failed"})
		return
	}

	now := time.Now()
	turn := []models.ChatMessage{
		{Role: "user", Content: req.Prompt, CreatedAt: now},
		{Role: "assistant", Content: result, CreatedAt: now},
	}
	if err := h.sessions.AppendMessages(r.Context(), session.ID, turn); err != nil {
		handleServiceError(w, r, err)
		return
	}

	if session.Title == TitlePlaceholder {
		h.sessions.SetTitleOnce(r.Context(), session.ID, TitlePlaceholder, deriveTitle(req.Prompt))
	}

	h.users.DeductCredit(r.Context(), user.ID)

	sessionID := session.ID
	writeJSON(w, http.StatusOK, models.GenerateResponse{Result: result, SessionID: &sessionID})
}

func (h *AIHandler) resolveSession(ctx context.Context, user *models.User, sessionID *uuid.UUID) (*models.ChatSession, error) {
	if sessionID == nil {
		session := &models.ChatSession{UserID: user.ID, Title: TitlePlaceholder}
		if err := h.sessions.Create(ctx, session); err != nil {
			return nil, err
		}
		return session, nil
	}

	session, err := h.sessions.GetByID(ctx, *sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &services.NotFoundError{Message: "Chat session not found"}
		}
		return nil, err
	}
	if session.UserID != user.ID {
		return nil, &services.ForbiddenError{Message: "You do not own this chat session"}
	}
	return session, nil
}

func (h *AIHandler) NewSession(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	session := &models.ChatSession{UserID: user.ID, Title: TitlePlaceholder}
	if err := h.sessions.Create(r.Context(), session); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

func (h *AIHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	sessions, err := h.sessions.ListByUser(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if sessions == nil {
		sessions = []*models.ChatSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *AIHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	session, err := h.ownedSession(r, user)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

func (h *AIHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	session, err := h.ownedSession(r, user)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if err := h.sessions.Delete(r.Context(), session.ID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Chat session deleted"})
}

func (h *AIHandler) ownedSession(r *http.Request, user *models.User) (*models.ChatSession, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return nil, &services.NotFoundError{Message: "Chat session not found"}
	}

	session, err := h.sessions.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &services.NotFoundError{Message: "Chat session not found"}
		}
		return nil, err
	}
	if session.UserID != user.ID {
		return nil, &services.ForbiddenError{Message: "You do not own this chat session"}
	}
	return session, nil
}

// deriveTitle takes the first few words of the first user message.
func deriveTitle(prompt string) string {
	words := strings.Fields(prompt)
	if len(words) == 0 {
		return TitlePlaceholder
	}
	if len(words) > 6 {
		return strings.Join(words[:6], " ") + "..."
	}
	return strings.Join(words, " ")
}
