package quiz

import (
	"errors"
	"math/rand"
	"time"

	"github.com/Iv91/kidslearning/internal/models"
)

// Validation errors. They never change session state.
var (
	ErrUnknownOption = errors.New("unknown option")
	ErrUnknownItem   = errors.New("unknown item")
	ErrUnknownBucket = errors.New("unknown bucket")
)

// State is the progression state of a session
type State string

const (
	StateIntro      State = "intro"
	StatePresenting State = "presenting"
	StateFeedback   State = "feedback"
	StateFinished   State = "finished"
	StateSubmitted  State = "submitted"
	StateEmpty      State = "empty"
)

// Message keys, localized by the caller
const (
	MsgNoSelection     = "warning.no_selection"
	MsgNoLetter        = "warning.no_letter"
	MsgCorrect         = "feedback.correct"
	MsgWrong           = "feedback.wrong"
	MsgNoCorrectOption = "feedback.no_correct_option"
)

// Terminal reports whether no action can leave the state
func (s State) Terminal() bool {
	return s == StateFinished || s == StateSubmitted || s == StateEmpty
}

// Options configure a new session
type Options struct {
	// ShowIntro starts the session behind the intro overlay
	ShowIntro bool
	// Rand shuffles matching letters; seeded from the clock when nil
	Rand *rand.Rand
}

// Outcome is the result of a transition. Applied is false when the action
// was not valid in the current state; such actions never mutate anything.
type Outcome struct {
	State     State  `json:"state"`
	Applied   bool   `json:"applied"`
	Cue       *Cue   `json:"cue,omitempty"`
	ScrollTop bool   `json:"scroll_top,omitempty"`
	Warning   string `json:"warning,omitempty"`
}

// Feedback is shown between submit and next
type Feedback struct {
	Result        Result `json:"result"`
	CorrectAnswer string `json:"correct_answer,omitempty"`
	Message       string `json:"message"`
}

// Session is the progression of one learner through one quiz.
// It is not safe for concurrent use.
type Session struct {
	quiz    *models.Quiz
	kind    models.QuizType
	variant variant
	board   *Board

	state     State
	index     int
	score     int
	percent   int
	selection string
	feedback  *Feedback
	warning   string

	// finishEmitted latches once the completion cue has been produced
	finishEmitted bool
}

// New creates a session for a loaded quiz
func New(q *models.Quiz, opts Options) *Session {
	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	s := &Session{quiz: q, kind: q.Kind()}
	switch s.kind {
	case models.QuizDragDrop:
		s.board = NewBoard(q.SortingPairs)
	case models.QuizMatching:
		s.variant = newMatchingVariant(q, rnd)
	default:
		s.variant = newChoiceVariant(q, s.kind)
	}

	switch {
	case s.Count() == 0:
		s.state = StateEmpty
	case opts.ShowIntro:
		s.state = StateIntro
	default:
		s.state = StatePresenting
	}
	return s
}

// Count returns the number of questions, or items for drag-drop
func (s *Session) Count() int {
	if s.board != nil {
		return s.board.Len()
	}
	return s.variant.Len()
}

// MaxScore is the question count, or 100 for percentage scoring
func (s *Session) MaxScore() int {
	if s.board != nil {
		return 100
	}
	return s.Count()
}

// Score is the number of correct answers, or the stored drag-drop percentage
func (s *Session) Score() int {
	if s.board != nil {
		return s.percent
	}
	return s.score
}

// Passed reports whether the score reaches half of the maximum
func (s *Session) Passed() bool {
	limit := s.MaxScore()
	return limit > 0 && 2*s.Score() >= limit
}

func (s *Session) State() State           { return s.state }
func (s *Session) Kind() models.QuizType  { return s.kind }
func (s *Session) Quiz() *models.Quiz     { return s.quiz }
func (s *Session) Index() int             { return s.index }
func (s *Session) FinishCueEmitted() bool { return s.finishEmitted }

// Start dismisses the intro overlay
func (s *Session) Start() Outcome {
	if s.state != StateIntro {
		return s.ignored()
	}
	s.state = StatePresenting
	return Outcome{State: s.state, Applied: true, ScrollTop: true}
}

// Select records the learner's choice for the current question
func (s *Session) Select(key string) (Outcome, error) {
	if s.state != StatePresenting || s.variant == nil {
		return s.ignored(), nil
	}

	c, err := s.variant.Select(s.index, key)
	if err != nil {
		return s.ignored(), err
	}

	s.selection = key
	s.warning = ""
	return Outcome{State: s.state, Applied: true, Cue: c}, nil
}

// Move reassigns a drag-drop item to a bucket
func (s *Session) Move(itemID, bucket string) (Outcome, error) {
	if s.state != StatePresenting || s.board == nil {
		return s.ignored(), nil
	}
	if err := s.board.Move(itemID, bucket); err != nil {
		return s.ignored(), err
	}
	return Outcome{State: s.state, Applied: true, Cue: cue(CueClick)}, nil
}

// Submit grades the current selection, or the whole board for drag-drop
func (s *Session) Submit() Outcome {
	if s.state != StatePresenting {
		return s.ignored()
	}
	if s.board != nil {
		return s.submitBoard()
	}

	if s.selection == "" {
		s.warning = MsgNoSelection
		if s.kind == models.QuizMatching {
			s.warning = MsgNoLetter
		}
		return Outcome{State: s.state, Warning: s.warning}
	}

	verdict := s.variant.Check(s.index, s.selection)
	s.warning = ""
	s.state = StateFeedback

	var c *Cue
	switch verdict.Result {
	case ResultCorrect:
		s.score++
		s.feedback = &Feedback{Result: verdict.Result, Message: MsgCorrect}
		c = cue(CueCorrect)
	case ResultIncorrect:
		s.feedback = &Feedback{Result: verdict.Result, CorrectAnswer: verdict.CorrectAnswer, Message: MsgWrong}
		c = cue(CueWrong)
	default:
		s.feedback = &Feedback{Result: ResultUnconfigured, Message: MsgNoCorrectOption}
	}

	return Outcome{State: s.state, Applied: true, Cue: c}
}

func (s *Session) submitBoard() Outcome {
	s.percent = s.board.Percent()
	s.state = StateSubmitted
	return Outcome{State: s.state, Applied: true, Cue: s.emitFinish(), ScrollTop: true}
}

// Next dismisses feedback and advances, finishing after the last question
func (s *Session) Next() Outcome {
	if s.state != StateFeedback {
		return s.ignored()
	}

	s.selection = ""
	s.feedback = nil
	s.warning = ""
	s.index++

	if s.index < s.Count() {
		s.state = StatePresenting
		return Outcome{State: s.state, Applied: true, ScrollTop: true}
	}

	s.state = StateFinished
	return Outcome{State: s.state, Applied: true, Cue: s.emitFinish(), ScrollTop: true}
}

// emitFinish returns the completion cue the first time it is called
func (s *Session) emitFinish() *Cue {
	if s.finishEmitted {
		return nil
	}
	s.finishEmitted = true
	return finishCue(s.Passed())
}

func (s *Session) ignored() Outcome {
	return Outcome{State: s.state}
}

// View is a read-only rendering of the session. Building it never emits cues.
type View struct {
	State     State           `json:"state"`
	QuizType  models.QuizType `json:"quiz_type"`
	Title     string          `json:"title"`
	Index     int             `json:"index"`
	Count     int             `json:"count"`
	Score     int             `json:"score"`
	MaxScore  int             `json:"max_score"`
	Passed    bool            `json:"passed"`
	Question  *QuestionView   `json:"question,omitempty"`
	Selection string          `json:"selection,omitempty"`
	Feedback  *Feedback       `json:"feedback,omitempty"`
	Warning   string          `json:"warning,omitempty"`
	ImageMode string          `json:"image_mode,omitempty"`
	Buckets   []BucketView    `json:"buckets,omitempty"`
}

// View renders the current state
func (s *Session) View() View {
	v := View{
		State:     s.state,
		QuizType:  s.kind,
		Title:     s.quiz.Title,
		Index:     s.index,
		Count:     s.Count(),
		Score:     s.Score(),
		MaxScore:  s.MaxScore(),
		Selection: s.selection,
		Warning:   s.warning,
	}
	if s.feedback != nil {
		fb := *s.feedback
		v.Feedback = &fb
	}
	if s.state.Terminal() && s.state != StateEmpty {
		v.Passed = s.Passed()
	}

	if s.board != nil {
		v.ImageMode = s.quiz.ItemMode()
		if s.state != StateEmpty {
			v.Buckets = s.board.Buckets()
		}
		return v
	}
	if s.state == StatePresenting || s.state == StateFeedback {
		q := s.variant.Question(s.index)
		v.Question = &q
	}
	return v
}
