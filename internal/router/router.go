package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"studybuddy-backend/internal/handlers"
	"studybuddy-backend/internal/middleware"
	"studybuddy-backend/internal/websocket"
)

func New(
	auth *middleware.Auth,
	studyHandler *handlers.StudyHandler,
	aiHandler *handlers.AIHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// AI rate limiter (20 req/min per IP)
	aiLimiter := middleware.NewRateLimiter(20, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {

		// ──── Study Log Routes ────
		r.Route("/study", func(r chi.Router) {
			r.Use(auth.Middleware)
			r.Post("/", studyHandler.Create)
			r.Get("/", studyHandler.List)
			r.Get("/stats", studyHandler.Stats)
			r.Delete("/{id}", studyHandler.Delete)
		})

		// ──── AI Routes ────
		r.Route("/ai", func(r chi.Router) {
			r.Use(auth.Middleware)

			r.Group(func(r chi.Router) {
				r.Use(aiLimiter.Middleware)
				r.Post("/generate", aiHandler.Generate)
			})

			r.Route("/chat", func(r chi.Router) {
				r.Post("/new", aiHandler.NewSession)
				r.Get("/sessions", aiHandler.ListSessions)
				r.Get("/{id}", aiHandler.GetSession)
				r.Delete("/{id}", aiHandler.DeleteSession)
			})
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
