package player

import (
	"github.com/Iv91/kidslearning/internal/models"
	"github.com/Iv91/kidslearning/internal/quiz"
)

// Snapshot is the rendered state of a view
type Snapshot struct {
	ViewID    string          `json:"view_id"`
	LearnerID string          `json:"-"`
	Status    Status          `json:"status"`
	QuizID    string          `json:"quiz_id,omitempty"`
	QuizType  models.QuizType `json:"quiz_type,omitempty"`
	Error     string          `json:"error,omitempty"`
	Session   *quiz.View      `json:"session,omitempty"`
	Links     models.Links    `json:"links"`
}

// Retryable reports whether the view offers a retry action
func (s *Snapshot) Retryable() bool {
	return s.Status == StatusFailed
}

// snapshot must be called with v.mu held
func (m *Manager) snapshot(v *view) *Snapshot {
	snap := &Snapshot{
		ViewID:    v.id,
		LearnerID: v.learnerID,
		Status:    v.status,
		QuizID:    v.quizID,
		QuizType:  v.quizType,
		Error:     v.errMsg,
		Links:     models.Links{Quizzes: "/", Home: m.homeURL},
	}
	if v.session != nil {
		sv := v.session.View()
		snap.Session = &sv
	}
	return snap
}
