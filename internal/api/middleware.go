package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Iv91/kidslearning/internal/i18n"
)

const (
	// LearnerHeader carries the learner id for clients that manage identity themselves
	LearnerHeader = "X-Learner-ID"
	// LearnerCookie is issued to browsers without an identity
	LearnerCookie = "learner_id"
	// LangCookie stores the chosen interface language
	LangCookie = "lang"

	cookieMaxAge = 365 * 24 * time.Hour
	maxLearnerID = 128
)

// Identify attaches a learner id to every request.
// Order: X-Learner-ID header, learner_id cookie, then a freshly issued cookie.
func Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		learnerID := extractLearnerID(r)
		if learnerID == "" {
			learnerID = uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     LearnerCookie,
				Value:    learnerID,
				Path:     "/",
				MaxAge:   int(cookieMaxAge.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			slog.Debug("issued learner id", "learner_id", learnerID, "remote_addr", r.RemoteAddr)
		}

		ctx := ContextWithLearner(r.Context(), learnerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractLearnerID extracts the learner id from headers or cookies
func extractLearnerID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(LearnerHeader)); id != "" && len(id) <= maxLearnerID {
		return id
	}
	if c, err := r.Cookie(LearnerCookie); err == nil && c.Value != "" && len(c.Value) <= maxLearnerID {
		return c.Value
	}
	return ""
}

// Localize returns middleware that negotiates the interface language.
// An explicit ?lang= choice is remembered in a cookie.
func Localize(t *i18n.Translator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			explicit := r.URL.Query().Get("lang")
			stored := ""
			if c, err := r.Cookie(LangCookie); err == nil {
				stored = c.Value
			}

			lang := t.Negotiate(explicit, stored, r.Header.Get("Accept-Language"))
			if explicit != "" && lang != stored && t.Has(lang) {
				http.SetCookie(w, &http.Cookie{
					Name:     LangCookie,
					Value:    lang,
					Path:     "/",
					MaxAge:   int(cookieMaxAge.Seconds()),
					SameSite: http.SameSiteLaxMode,
				})
			}

			w.Header().Set("Content-Language", lang)
			next.ServeHTTP(w, r.WithContext(ContextWithLang(r.Context(), lang)))
		})
	}
}
