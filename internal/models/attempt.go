package models

import "time"

// Attempt is the recorded outcome of a finished quiz session
type Attempt struct {
	ID         string    `json:"id"`
	LearnerID  string    `json:"learner_id"`
	QuizID     string    `json:"quiz_id"`
	QuizType   QuizType  `json:"quiz_type"`
	Title      string    `json:"title"`
	Score      int       `json:"score"`
	MaxScore   int       `json:"max_score"`
	Percent    int       `json:"percent"`
	Passed     bool      `json:"passed"`
	FinishedAt time.Time `json:"finished_at"`
}

// AttemptFilters contains filters for listing attempts
type AttemptFilters struct {
	LearnerID string
	QuizID    string
	QuizType  QuizType
	Limit     int
	Offset    int
}
