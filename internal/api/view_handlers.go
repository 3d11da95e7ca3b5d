package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Iv91/kidslearning/internal/models"
	"github.com/Iv91/kidslearning/internal/player"
	"github.com/Iv91/kidslearning/internal/quiz"
)

type loadRequest struct {
	QuizID   string `json:"quiz_id" validate:"required,alphanum,max=64"`
	QuizType string `json:"quiz_type" validate:"required"`
}

type selectRequest struct {
	Key string `json:"key" validate:"required"`
}

type moveRequest struct {
	ItemID string `json:"item_id" validate:"required"`
	Bucket string `json:"bucket" validate:"required"`
}

func isValidationError(err error) bool {
	return errors.Is(err, player.ErrUnknownQuizType) ||
		errors.Is(err, player.ErrUnknownAction) ||
		errors.Is(err, quiz.ErrUnknownOption) ||
		errors.Is(err, quiz.ErrUnknownItem) ||
		errors.Is(err, quiz.ErrUnknownBucket)
}

// requireViewOwner hides views that belong to another learner
func (s *Server) requireViewOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, err := s.views.Owner(chi.URLParam(r, "id"))
		if err != nil || owner != LearnerFromContext(r.Context()) {
			respondError(w, http.StatusNotFound, "not_found", "view not found")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) respondView(w http.ResponseWriter, r *http.Request, status int, viewID string) {
	snap, err := s.views.Snapshot(viewID)
	if err != nil {
		s.respondPlayerError(w, err, "failed to render view")
		return
	}
	respondJSON(w, status, s.render(snap, LangFromContext(r.Context())))
}

func (s *Server) handleOpenView(w http.ResponseWriter, r *http.Request) {
	snap := s.views.Open(LearnerFromContext(r.Context()))
	respondJSON(w, http.StatusCreated, s.render(snap, LangFromContext(r.Context())))
}

func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	s.respondView(w, r, http.StatusOK, chi.URLParam(r, "id"))
}

func (s *Server) handleCloseView(w http.ResponseWriter, r *http.Request) {
	if err := s.views.Close(chi.URLParam(r, "id")); err != nil {
		s.respondPlayerError(w, err, "failed to close view")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "view closed",
	})
}

// handleLoadQuiz starts a fetch. With ?wait=true the response is sent once
// the fetch has settled; otherwise the loading snapshot is returned at once.
func (s *Server) handleLoadQuiz(w http.ResponseWriter, r *http.Request) {
	viewID := chi.URLParam(r, "id")

	var req loadRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	done, err := s.views.Load(viewID, req.QuizID, models.QuizType(req.QuizType))
	if err != nil {
		s.respondPlayerError(w, err, "failed to load quiz")
		return
	}
	s.awaitLoad(w, r, viewID, done)
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	viewID := chi.URLParam(r, "id")

	done, err := s.views.Retry(viewID)
	if err != nil {
		s.respondPlayerError(w, err, "failed to retry quiz load")
		return
	}
	s.awaitLoad(w, r, viewID, done)
}

func (s *Server) awaitLoad(w http.ResponseWriter, r *http.Request, viewID string, done <-chan struct{}) {
	if r.URL.Query().Get("wait") != "true" {
		s.respondView(w, r, http.StatusAccepted, viewID)
		return
	}

	select {
	case <-done:
		s.respondView(w, r, http.StatusOK, viewID)
	case <-r.Context().Done():
		respondError(w, http.StatusGatewayTimeout, "timeout", "quiz is still loading")
	}
}

func (s *Server) handleAction(kind player.ActionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewID := chi.URLParam(r, "id")
		action := player.Action{Kind: kind}

		switch kind {
		case player.ActionSelect:
			var req selectRequest
			if !s.decodeAndValidate(w, r, &req) {
				return
			}
			action.Key = req.Key
		case player.ActionMove:
			var req moveRequest
			if !s.decodeAndValidate(w, r, &req) {
				return
			}
			action.ItemID, action.Bucket = req.ItemID, req.Bucket
		}

		out, err := s.views.Do(viewID, action)
		if err != nil {
			s.respondPlayerError(w, err, "failed to apply action")
			return
		}

		snap, err := s.views.Snapshot(viewID)
		if err != nil {
			s.respondPlayerError(w, err, "failed to render view")
			return
		}

		lang := LangFromContext(r.Context())
		resp := actionResponse{
			Outcome: out,
			View:    s.render(snap, lang),
		}
		if out.Warning != "" {
			resp.Warning = s.translator.Lookup(lang, out.Warning)
		}
		respondJSON(w, http.StatusOK, resp)
	}
}
