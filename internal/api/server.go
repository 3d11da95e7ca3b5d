package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/Iv91/kidslearning/internal/catalog"
	"github.com/Iv91/kidslearning/internal/config"
	"github.com/Iv91/kidslearning/internal/cue"
	"github.com/Iv91/kidslearning/internal/i18n"
	"github.com/Iv91/kidslearning/internal/player"
	"github.com/Iv91/kidslearning/internal/services"
	"github.com/Iv91/kidslearning/internal/storage"
	"github.com/Iv91/kidslearning/internal/subscribe"
)

// Deps holds the services behind the HTTP API
type Deps struct {
	Views      *player.Manager
	Catalog    *catalog.Service
	Subscribe  *subscribe.Service
	Translator *i18n.Translator
	Cues       *cue.Bus
	Attempts   storage.Repository
	Registry   *services.Registry
}

// Server represents the HTTP API server
type Server struct {
	config     config.ServerConfig
	router     *chi.Mux
	views      *player.Manager
	catalog    *catalog.Service
	subscribe  *subscribe.Service
	translator *i18n.Translator
	cues       *cue.Bus
	attempts   storage.Repository
	registry   *services.Registry
	validate   *validator.Validate
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	s := &Server{
		config:     cfg,
		views:      deps.Views,
		catalog:    deps.Catalog,
		subscribe:  deps.Subscribe,
		translator: deps.Translator,
		cues:       deps.Cues,
		attempts:   deps.Attempts,
		registry:   deps.Registry,
		validate:   validator.New(),
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

	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Content-Type", "X-Request-ID", LearnerHeader},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Language"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Identify)
		r.Use(Localize(s.translator))

		timeout := middleware.Timeout(60 * time.Second)

		r.Route("/views", func(r chi.Router) {
			r.With(timeout).Post("/", s.handleOpenView)

			r.Route("/{id}", func(r chi.Router) {
				r.Use(s.requireViewOwner)

				// the cue stream is long-lived and stays outside the timeout
				r.Get("/cues", s.handleCueStream)

				r.Group(func(r chi.Router) {
					r.Use(timeout)
					r.Get("/", s.handleGetView)
					r.Delete("/", s.handleCloseView)
					r.Post("/load", s.handleLoadQuiz)
					r.Post("/retry", s.handleRetry)
					r.Post("/start", s.handleAction(player.ActionStart))
					r.Post("/select", s.handleAction(player.ActionSelect))
					r.Post("/submit", s.handleAction(player.ActionSubmit))
					r.Post("/next", s.handleAction(player.ActionNext))
					r.Post("/move", s.handleAction(player.ActionMove))
				})
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(timeout)

			r.Get("/catalog", s.handleCatalog)
			r.Get("/routes", s.handleRoutes)
			r.Get("/intro/{type}", s.handleGetIntro)
			r.Put("/intro/{type}", s.handleSetIntro)
			r.Get("/attempts", s.handleListAttempts)
			r.Post("/subscribe", s.handleSubscribe)
			r.Get("/i18n/{lang}", s.handleStrings)
		})
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
