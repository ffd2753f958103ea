package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"studybuddy-backend/internal/models"
)

type fakeCompleter struct {
	result          string
	err             error
	lastInstruction string
	lastContent     string
}

func (f *fakeCompleter) Generate(ctx context.Context, instruction, content string) (string, error) {
	f.lastInstruction = instruction
	f.lastContent = content
	if f.err != nil {
		return "", f.err
	}
	return f.result, nil
}

type fakeContextBuilder struct {
	context      string
	lastUploaded string
}

func (f *fakeContextBuilder) BuildContext(ctx context.Context, userID uuid.UUID, uploadedText string) (string, error) {
	f.lastUploaded = uploadedText
	return f.context, nil
}

type fakeSessionStore struct {
	sessions map[uuid.UUID]*models.ChatSession
	appended map[uuid.UUID][]models.ChatMessage
	titles   map[uuid.UUID]string
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions: make(map[uuid.UUID]*models.ChatSession),
		appended: make(map[uuid.UUID][]models.ChatMessage),
		titles:   make(map[uuid.UUID]string),
	}
}

func (f *fakeSessionStore) Create(ctx context.Context, s *models.ChatSession) error {
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*models.ChatSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return s, nil
}

func (f *fakeSessionStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.ChatSession, error) {
	var out []*models.ChatSession
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSessionStore) AppendMessages(ctx context.Context, id uuid.UUID, msgs []models.ChatMessage) error {
	f.appended[id] = append(f.appended[id], msgs...)
	return nil
}

func (f *fakeSessionStore) SetTitleOnce(ctx context.Context, id uuid.UUID, placeholder, title string) error {
	f.titles[id] = title
	if s, ok := f.sessions[id]; ok && s.Title == placeholder {
		s.Title = title
	}
	return nil
}

func (f *fakeSessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.sessions, id)
	return nil
}

type fakeCreditStore struct {
	deductions int
}

func (f *fakeCreditStore) DeductCredit(ctx context.Context, id uuid.UUID) error {
	f.deductions++
	return nil
}

type aiFixture struct {
	handler  *AIHandler
	ai       *fakeCompleter
	contexts *fakeContextBuilder
	sessions *fakeSessionStore
	credits  *fakeCreditStore
}

func newAIFixture() *aiFixture {
	ai := &fakeCompleter{result: "generated text"}
	contexts := &fakeContextBuilder{context: "- [2024-03-15] Math: Calculus (Confidence: 4/5). Notes: chain rule"}
	sessions := newFakeSessionStore()
	credits := &fakeCreditStore{}
	return &aiFixture{
		handler:  NewAIHandler(ai, contexts, sessions, credits),
		ai:       ai,
		contexts: contexts,
		sessions: sessions,
		credits:  credits,
	}
}

func generateReq(t *testing.T, user *models.User, req models.GenerateRequest) *http.Request {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	return authedRequest(http.MethodPost, "/api/ai/generate", body, user)
}

func TestGenerate_MissingType(t *testing.T) {
	f := newAIFixture()

	rec := httptest.NewRecorder()
	f.handler.Generate(rec, generateReq(t, testUser(), models.GenerateRequest{Prompt: "hello"}))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestGenerate_OutOfCredits(t *testing.T) {
	f := newAIFixture()
	user := testUser()
	user.Credits = 0

	rec := httptest.NewRecorder()
	f.handler.Generate(rec, generateReq(t, user, models.GenerateRequest{Type: "summary", Prompt: "notes"}))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("Expected 403, got %d", rec.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid response body: %v", err)
	}
	if resp["outOfCredits"] != true {
		t.Errorf("Expected outOfCredits flag, got %v", resp)
	}
	if f.credits.deductions != 0 {
		t.Errorf("Expected no deduction, got %d", f.credits.deductions)
	}
}

func TestGenerate_ProPlanIgnoresCredits(t *testing.T) {
	f := newAIFixture()
	user := testUser()
	user.Plan = "pro"
	user.Credits = 0

	rec := httptest.NewRecorder()
	f.handler.Generate(rec, generateReq(t, user, models.GenerateRequest{Type: "summary", Context: "lecture notes"}))

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for pro plan, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGenerate_DirectType(t *testing.T) {
	f := newAIFixture()

	rec := httptest.NewRecorder()
	f.handler.Generate(rec, generateReq(t, testUser(), models.GenerateRequest{Type: "summary", Context: "lecture notes"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.GenerateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid response body: %v", err)
	}
	if resp.Result != "generated text" {
		t.Errorf("Unexpected result: %q", resp.Result)
	}
	if resp.SessionID != nil {
		t.Errorf("Expected no session for direct generation, got %v", resp.SessionID)
	}

	if !strings.Contains(strings.ToLower(f.ai.lastInstruction), "summar") {
		t.Errorf("Expected summary instruction, got %q", f.ai.lastInstruction)
	}
	if f.ai.lastContent != "lecture notes" {
		t.Errorf("Expected context as content, got %q", f.ai.lastContent)
	}
	if f.credits.deductions != 1 {
		t.Errorf("Expected one credit deduction, got %d", f.credits.deductions)
	}
}

func TestGenerate_DirectTypeFallsBackToPrompt(t *testing.T) {
	f := newAIFixture()

	rec := httptest.NewRecorder()
	f.handler.Generate(rec, generateReq(t, testUser(), models.GenerateRequest{Type: "questions", Prompt: "photosynthesis"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if f.ai.lastContent != "photosynthesis" {
		t.Errorf("Expected prompt as content, got %q", f.ai.lastContent)
	}
}

func TestGenerate_DirectTypeRequiresContent(t *testing.T) {
	f := newAIFixture()

	rec := httptest.NewRecorder()
	f.handler.Generate(rec, generateReq(t, testUser(), models.GenerateRequest{Type: "summary"}))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestGenerate_UpstreamFailure(t *testing.T) {
	f := newAIFixture()
	f.ai.err = context.DeadlineExceeded

	rec := httptest.NewRecorder()
	f.handler.Generate(rec, generateReq(t, testUser(), models.GenerateRequest{Type: "summary", Context: "notes"}))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502, got %d", rec.Code)
	}
	if f.credits.deductions != 0 {
		t.Errorf("Expected no deduction on failure, got %d", f.credits.deductions)
	}
}

func TestGenerateChat_CreatesSessionAndAppendsTurn(t *testing.T) {
	f := newAIFixture()
	user := testUser()

	rec := httptest.NewRecorder()
	f.handler.Generate(rec, generateReq(t, user, models.GenerateRequest{Type: "chat", Prompt: "explain the chain rule to me please"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.GenerateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid response body: %v", err)
	}
	if resp.SessionID == nil {
		t.Fatal("Expected a session ID in the chat response")
	}

	msgs := f.sessions.appended[*resp.SessionID]
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 appended messages, got %d", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Errorf("Unexpected turn roles: %s / %s", msgs[0].Role, msgs[1].Role)
	}
	if msgs[1].Content != "generated text" {
		t.Errorf("Unexpected assistant content: %q", msgs[1].Content)
	}

	// Title derived from the first six words of the prompt
	if title := f.sessions.titles[*resp.SessionID]; title != "explain the chain rule to me..." {
		t.Errorf("Unexpected derived title: %q", title)
	}

	// Study history context is injected into the instruction
	if !strings.Contains(f.ai.lastInstruction, "Math: Calculus") {
		t.Errorf("Expected study context in instruction, got %q", f.ai.lastInstruction)
	}
	if f.credits.deductions != 1 {
		t.Errorf("Expected one credit deduction, got %d", f.credits.deductions)
	}
}

func TestGenerateChat_ReusesExistingSession(t *testing.T) {
	f := newAIFixture()
	user := testUser()

	session := &models.ChatSession{UserID: user.ID, Title: "Chain rule help"}
	f.sessions.Create(context.Background(), session)

	rec := httptest.NewRecorder()
	f.handler.Generate(rec, generateReq(t, user, models.GenerateRequest{
		Type: "chat", Prompt: "one more example", SessionID: &session.ID,
	}))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.GenerateResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.SessionID == nil || *resp.SessionID != session.ID {
		t.Errorf("Expected existing session to be reused, got %v", resp.SessionID)
	}
	if _, renamed := f.sessions.titles[session.ID]; renamed {
		t.Error("Expected a named session to keep its title")
	}
}

func TestGenerateChat_ForeignSession(t *testing.T) {
	f := newAIFixture()

	session := &models.ChatSession{UserID: uuid.New(), Title: TitlePlaceholder}
	f.sessions.Create(context.Background(), session)

	rec := httptest.NewRecorder()
	f.handler.Generate(rec, generateReq(t, testUser(), models.GenerateRequest{
		Type: "chat", Prompt: "hello", SessionID: &session.ID,
	}))

	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for a foreign session, got %d", rec.Code)
	}
}

func TestGenerateChat_UnknownSession(t *testing.T) {
	f := newAIFixture()
	missing := uuid.New()

	rec := httptest.NewRecorder()
	f.handler.Generate(rec, generateReq(t, testUser(), models.GenerateRequest{
		Type: "chat", Prompt: "hello", SessionID: &missing,
	}))

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for an unknown session, got %d", rec.Code)
	}
}

func TestGenerateChat_UpstreamFailureAppendsNothing(t *testing.T) {
	f := newAIFixture()
	f.ai.err = context.DeadlineExceeded
	user := testUser()

	session := &models.ChatSession{UserID: user.ID, Title: "Help"}
	f.sessions.Create(context.Background(), session)

	rec := httptest.NewRecorder()
	f.handler.Generate(rec, generateReq(t, user, models.GenerateRequest{
		Type: "chat", Prompt: "hello", SessionID: &session.ID,
	}))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502, got %d", rec.Code)
	}
	if len(f.sessions.appended[session.ID]) != 0 {
		t.Error("Expected no messages appended on upstream failure")
	}
}

func TestGenerateChat_UploadedContextForwarded(t *testing.T) {
	f := newAIFixture()

	rec := httptest.NewRecorder()
	f.handler.Generate(rec, generateReq(t, testUser(), models.GenerateRequest{
		Type: "chat", Prompt: "quiz me on this", Context: "chapter three text",
	}))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if f.contexts.lastUploaded != "chapter three text" {
		t.Errorf("Expected uploaded text forwarded to context builder, got %q", f.contexts.lastUploaded)
	}
}

func TestSessionRoutes(t *testing.T) {
	f := newAIFixture()
	user := testUser()

	// Create
	rec := httptest.NewRecorder()
	f.handler.NewSession(rec, authedRequest(http.MethodPost, "/api/ai/chat/new", nil, user))
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rec.Code)
	}

	var created models.ChatSession
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("Invalid response body: %v", err)
	}
	if created.Title != TitlePlaceholder {
		t.Errorf("Expected placeholder title, got %q", created.Title)
	}

	// Get
	rec = httptest.NewRecorder()
	req := withURLParam(authedRequest(http.MethodGet, "/api/ai/chat/"+created.ID.String(), nil, user), "id", created.ID.String())
	f.handler.GetSession(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 on get, got %d", rec.Code)
	}

	// Get by another user is forbidden
	rec = httptest.NewRecorder()
	req = withURLParam(authedRequest(http.MethodGet, "/api/ai/chat/"+created.ID.String(), nil, testUser()), "id", created.ID.String())
	f.handler.GetSession(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for a foreign session, got %d", rec.Code)
	}

	// Delete
	rec = httptest.NewRecorder()
	req = withURLParam(authedRequest(http.MethodDelete, "/api/ai/chat/"+created.ID.String(), nil, user), "id", created.ID.String())
	f.handler.DeleteSession(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 on delete, got %d", rec.Code)
	}
	if _, ok := f.sessions.sessions[created.ID]; ok {
		t.Error("Expected session to be removed")
	}
}

func TestListSessions_NilBecomesEmptyArray(t *testing.T) {
	f := newAIFixture()

	rec := httptest.NewRecorder()
	f.handler.ListSessions(rec, authedRequest(http.MethodGet, "/api/ai/chat/sessions", nil, testUser()))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "[]\n" {
		t.Errorf("Expected empty JSON array, got %q", got)
	}
}
