package api

import (
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/guesstheplant/quiz-engine/internal/catalog"
	"github.com/guesstheplant/quiz-engine/internal/config"
	"github.com/guesstheplant/quiz-engine/internal/game"
	"github.com/guesstheplant/quiz-engine/internal/storage"
)

// Server represents the HTTP API server
type Server struct {
	config  config.ServerConfig
	gameCfg config.GameConfig
	router  *chi.Mux
	loader  *catalog.Loader
	repo    storage.Repository
	kv      storage.KeyValueStore
	rounds  []game.RoundConfig
	newRand func() *rand.Rand
}

// NewServer creates a new API server. repo may be nil when result
// persistence is disabled; the affected endpoints then answer 503.
func NewServer(
	cfg config.ServerConfig,
	gameCfg config.GameConfig,
	loader *catalog.Loader,
	repo storage.Repository,
	kv storage.KeyValueStore,
	rounds []game.RoundConfig,
) *Server {
	s := &Server{
		config:  cfg,
		gameCfg: gameCfg,
		loader:  loader,
		repo:    repo,
		kv:      kv,
		rounds:  rounds,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (outside versioned API - public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		// Catalog
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/species", s.handleListSpecies)
			r.Get("/species/{id}", s.handleGetSpecies)
			r.Get("/genera", s.handleListGenera)
			r.Get("/questions", s.handleListQuestions)
			r.Get("/bouquets", s.handleListBouquets)
			r.Get("/memorization", s.handleListMemorization)
			r.Get("/families", s.handleListFamilies)
			r.Get("/tags", s.handleListTags)
			r.Get("/difficulties", s.handleListDifficulties)
		})

		// Play sessions and results
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Get("/", s.handleListSessions)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Post("/results", s.handleRecordResult)
				r.Get("/results", s.handleListResults)
			})
		})
		r.Get("/players/{id}/summary", s.handlePlayerSummary)

		// Player preferences
		r.Route("/preferences", func(r chi.Router) {
			r.Get("/", s.handleGetPreferences)
			r.Put("/", s.handleUpdatePreferences)
		})

		// Round configuration
		r.Get("/rounds", s.handleListRounds)

		// Interactive game over websocket
		r.Get("/play", s.handlePlayWS)
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
