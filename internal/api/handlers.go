package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Iv91/kidslearning/internal/catalog"
	"github.com/Iv91/kidslearning/internal/models"
	"github.com/Iv91/kidslearning/internal/player"
	"github.com/Iv91/kidslearning/internal/services"
	"github.com/Iv91/kidslearning/internal/subscribe"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return false
	}
	return true
}

func queryInt(r *http.Request, name string, def int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	statuses := s.registry.Check(r.Context())
	checks := make(map[string]string, len(statuses))
	for _, st := range statuses {
		if st.Err != nil {
			slog.Warn("dependency not ready", "service", st.Name, "type", st.Type, "error", st.Err)
			checks[st.Name] = st.Err.Error()
			continue
		}
		checks[st.Name] = "ok"
	}

	if !services.Healthy(statuses) {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "service not ready")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ready",
		"services": checks,
		"views":    s.views.Count(),
	})
}

// Catalog handlers

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := s.catalog.List(r.Context(), catalog.Query{
		Type:     q.Get("type"),
		Search:   q.Get("q"),
		Page:     queryInt(r, "page", 1),
		PageSize: queryInt(r, "page_size", 0),
	})
	if err != nil {
		slog.Error("failed to list catalog", "error", err)
		lang := LangFromContext(r.Context())
		respondError(w, http.StatusBadGateway, "catalog_unavailable", s.translator.Lookup(lang, "catalog.load_failed"))
		return
	}

	respondJSON(w, http.StatusOK, page)
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	routes := catalog.Routes()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"routes": routes,
		"total":  len(routes),
	})
}

// Intro preference handlers

type introResponse struct {
	QuizType models.QuizType `json:"quiz_type"`
	Skip     bool            `json:"skip"`
	Lines    []string        `json:"lines"`
}

type introRequest struct {
	Skip *bool `json:"skip" validate:"required"`
}

func (s *Server) handleGetIntro(w http.ResponseWriter, r *http.Request) {
	quizType := models.QuizType(chi.URLParam(r, "type"))
	learnerID := LearnerFromContext(r.Context())

	skip, err := s.views.SkipIntro(r.Context(), learnerID, quizType)
	if err != nil {
		s.respondPlayerError(w, err, "failed to read intro preference")
		return
	}

	quizType, _ = models.ParseQuizType(string(quizType))
	respondJSON(w, http.StatusOK, introResponse{
		QuizType: quizType,
		Skip:     skip,
		Lines:    s.translator.Lines(LangFromContext(r.Context()), "intro."+string(quizType)),
	})
}

func (s *Server) handleSetIntro(w http.ResponseWriter, r *http.Request) {
	quizType := models.QuizType(chi.URLParam(r, "type"))
	learnerID := LearnerFromContext(r.Context())

	var req introRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	if err := s.views.SetSkipIntro(r.Context(), learnerID, quizType, *req.Skip); err != nil {
		s.respondPlayerError(w, err, "failed to update intro preference")
		return
	}

	quizType, _ = models.ParseQuizType(string(quizType))
	respondJSON(w, http.StatusOK, introResponse{
		QuizType: quizType,
		Skip:     *req.Skip,
		Lines:    s.translator.Lines(LangFromContext(r.Context()), "intro."+string(quizType)),
	})
}

// Attempt history

func (s *Server) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	filters := models.AttemptFilters{
		LearnerID: LearnerFromContext(r.Context()),
		QuizID:    r.URL.Query().Get("quiz_id"),
		Limit:     50,
		Offset:    queryInt(r, "offset", 0),
	}
	if limit := queryInt(r, "limit", 0); limit > 0 {
		filters.Limit = limit
	}
	if t := r.URL.Query().Get("quiz_type"); t != "" {
		quizType, ok := models.ParseQuizType(t)
		if !ok {
			respondError(w, http.StatusBadRequest, "validation_error", "unknown quiz type")
			return
		}
		filters.QuizType = quizType
	}

	attempts, err := s.attempts.ListAttempts(r.Context(), filters)
	if err != nil {
		slog.Error("failed to list attempts", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list attempts")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"attempts": attempts,
		"total":    len(attempts),
	})
}

// Newsletter

type subscribeResponse struct {
	Status  subscribe.Status `json:"status"`
	Message string           `json:"message"`
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribe.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	lang := LangFromContext(r.Context())
	status, err := s.subscribe.Subscribe(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, subscribe.ErrInvalidEmail) {
			respondError(w, http.StatusBadRequest, "invalid_email", s.translator.Lookup(lang, subscribe.StatusExists.MessageKey()))
			return
		}
		slog.Error("failed to subscribe", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", s.translator.Lookup(lang, subscribe.StatusFailed.MessageKey()))
		return
	}

	respondJSON(w, http.StatusOK, subscribeResponse{
		Status:  status,
		Message: s.translator.Lookup(lang, status.MessageKey()),
	})
}

// Localization

func (s *Server) handleStrings(w http.ResponseWriter, r *http.Request) {
	lang := chi.URLParam(r, "lang")
	if !s.translator.Has(lang) {
		respondError(w, http.StatusNotFound, "not_found", "language not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"lang":      lang,
		"languages": s.translator.Languages(),
		"strings":   s.translator.Table(lang),
	})
}

// respondPlayerError maps view manager errors to HTTP responses
func (s *Server) respondPlayerError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, player.ErrViewNotFound):
		respondError(w, http.StatusNotFound, "not_found", "view not found")
	case isValidationError(err):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, player.ErrNotReady), errors.Is(err, player.ErrNothingToRetry):
		respondError(w, http.StatusConflict, "conflict", err.Error())
	default:
		slog.Error(msg, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", msg)
	}
}
