package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Iv91/kidslearning/internal/events"
	"github.com/Iv91/kidslearning/internal/flags"
	"github.com/Iv91/kidslearning/internal/models"
	"github.com/Iv91/kidslearning/internal/quiz"
	"github.com/Iv91/kidslearning/internal/storage"
)

// Common errors
var (
	ErrViewNotFound    = errors.New("view not found")
	ErrNotReady        = errors.New("quiz is not loaded")
	ErrNothingToRetry  = errors.New("no failed load to retry")
	ErrUnknownQuizType = errors.New("unknown quiz type")
	ErrUnknownAction   = errors.New("unknown action")
)

// Status is the load status of a view
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// Fetcher loads quiz definitions
type Fetcher interface {
	FetchQuiz(ctx context.Context, id string, quizType models.QuizType) (*models.Quiz, error)
}

// CueSink receives the cues emitted by transitions. Publish must not block.
type CueSink interface {
	Publish(viewID string, c quiz.Cue)
	Drop(viewID string)
}

// Options holds the collaborators of a Manager
type Options struct {
	Fetcher Fetcher
	Flags   flags.Store
	Repo    storage.Repository
	Events  events.Publisher
	Cues    CueSink
	HomeURL string
	NewRand func() *rand.Rand
	Now     func() time.Time
}

// Manager owns every open quiz view
type Manager struct {
	mu    sync.RWMutex
	views map[string]*view

	fetcher Fetcher
	flags   flags.Store
	repo    storage.Repository
	events  events.Publisher
	cues    CueSink
	homeURL string
	newRand func() *rand.Rand
	now     func() time.Time

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

type view struct {
	mu sync.Mutex

	id        string
	learnerID string
	status    Status
	quizID    string
	quizType  models.QuizType
	errMsg    string
	session   *quiz.Session

	// gen identifies the latest load; results of older loads are dropped
	gen      uint64
	cancel   context.CancelFunc
	closed   bool
	recorded bool

	lastActive time.Time
}

// NewManager creates a view manager
func NewManager(opts Options) *Manager {
	if opts.NewRand == nil {
		opts.NewRand = func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ctx, stop := context.WithCancel(context.Background())
	return &Manager{
		views:   make(map[string]*view),
		fetcher: opts.Fetcher,
		flags:   opts.Flags,
		repo:    opts.Repo,
		events:  opts.Events,
		cues:    opts.Cues,
		homeURL: opts.HomeURL,
		newRand: opts.NewRand,
		now:     opts.Now,
		baseCtx: ctx,
		stop:    stop,
	}
}

// Open creates an empty view for a learner
func (m *Manager) Open(learnerID string) *Snapshot {
	v := &view{
		id:         uuid.New().String(),
		learnerID:  learnerID,
		status:     StatusIdle,
		lastActive: m.now(),
	}

	m.mu.Lock()
	m.views[v.id] = v
	m.mu.Unlock()

	slog.Info("view opened", "view_id", v.id, "learner_id", learnerID)

	v.mu.Lock()
	defer v.mu.Unlock()
	return m.snapshot(v)
}

// Owner returns the learner a view belongs to
func (m *Manager) Owner(viewID string) (string, error) {
	v, err := m.get(viewID)
	if err != nil {
		return "", err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.learnerID, nil
}

// Load starts fetching quizID for the view. Any earlier fetch is cancelled
// and its result ignored. The returned channel closes once this fetch has
// been applied or discarded.
func (m *Manager) Load(viewID, quizID string, quizType models.QuizType) (<-chan struct{}, error) {
	quizType, ok := models.ParseQuizType(string(quizType))
	if !ok {
		return nil, ErrUnknownQuizType
	}

	v, err := m.get(viewID)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	return m.startLoad(v, quizID, quizType), nil
}

// Retry reloads the last requested quiz of a failed view
func (m *Manager) Retry(viewID string) (<-chan struct{}, error) {
	v, err := m.get(viewID)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.status != StatusFailed {
		return nil, ErrNothingToRetry
	}
	return m.startLoad(v, v.quizID, v.quizType), nil
}

// startLoad must be called with v.mu held
func (m *Manager) startLoad(v *view, quizID string, quizType models.QuizType) <-chan struct{} {
	if v.cancel != nil {
		v.cancel()
	}

	v.gen++
	gen := v.gen
	ctx, cancel := context.WithCancel(m.baseCtx)

	v.cancel = cancel
	v.status = StatusLoading
	v.quizID = quizID
	v.quizType = quizType
	v.errMsg = ""
	v.session = nil
	v.recorded = false
	v.lastActive = m.now()

	slog.Info("loading quiz", "view_id", v.id, "quiz_id", quizID, "quiz_type", quizType)

	done := make(chan struct{})
	learnerID := v.learnerID

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(done)
		defer cancel()

		q, err := m.fetcher.FetchQuiz(ctx, quizID, quizType)

		var session *quiz.Session
		if err == nil {
			if q.Type == "" {
				q.Type = string(quizType)
			}
			session = quiz.New(q, quiz.Options{
				ShowIntro: !m.skipIntro(ctx, learnerID, quizType),
				Rand:      m.newRand(),
			})
		}

		v.mu.Lock()
		defer v.mu.Unlock()

		if v.closed || v.gen != gen {
			slog.Debug("discarding stale quiz load", "view_id", v.id, "quiz_id", quizID)
			return
		}

		if err != nil {
			v.status = StatusFailed
			v.errMsg = err.Error()
			slog.Warn("quiz load failed", "view_id", v.id, "quiz_id", quizID, "error", err)
			return
		}

		v.status = StatusReady
		v.session = session
		slog.Info("quiz loaded",
			"view_id", v.id,
			"quiz_id", quizID,
			"questions", session.Count(),
			"state", session.State(),
		)
	}()

	return done
}

func (m *Manager) skipIntro(ctx context.Context, learnerID string, quizType models.QuizType) bool {
	skip, err := m.flags.Get(ctx, learnerID, quizType)
	if err != nil {
		slog.Warn("failed to read intro flag", "learner_id", learnerID, "quiz_type", quizType, "error", err)
		return false
	}
	return skip
}

// ActionKind names a learner action on a loaded quiz
type ActionKind string

const (
	ActionStart  ActionKind = "start"
	ActionSelect ActionKind = "select"
	ActionSubmit ActionKind = "submit"
	ActionNext   ActionKind = "next"
	ActionMove   ActionKind = "move"
)

// Action is one learner input
type Action struct {
	Kind   ActionKind `json:"kind"`
	Key    string     `json:"key,omitempty"`
	ItemID string     `json:"item_id,omitempty"`
	Bucket string     `json:"bucket,omitempty"`
}

// Do applies an action to the view's session
func (m *Manager) Do(viewID string, action Action) (quiz.Outcome, error) {
	v, err := m.get(viewID)
	if err != nil {
		return quiz.Outcome{}, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.status != StatusReady {
		return quiz.Outcome{}, ErrNotReady
	}

	var out quiz.Outcome
	switch action.Kind {
	case ActionStart:
		out = v.session.Start()
	case ActionSelect:
		out, err = v.session.Select(action.Key)
	case ActionSubmit:
		out = v.session.Submit()
	case ActionNext:
		out = v.session.Next()
	case ActionMove:
		out, err = v.session.Move(action.ItemID, action.Bucket)
	default:
		return quiz.Outcome{}, ErrUnknownAction
	}
	if err != nil {
		return out, err
	}

	v.lastActive = m.now()

	if out.Cue != nil && m.cues != nil {
		m.cues.Publish(v.id, *out.Cue)
	}

	if state := v.session.State(); state.Terminal() && state != quiz.StateEmpty && !v.recorded {
		v.recorded = true
		m.record(m.attempt(v))
	}

	return out, nil
}

func (m *Manager) attempt(v *view) *models.Attempt {
	s := v.session
	percent := s.Score()
	if s.Kind() != models.QuizDragDrop && s.MaxScore() > 0 {
		percent = int(math.Round(float64(s.Score()) / float64(s.MaxScore()) * 100))
	}

	return &models.Attempt{
		ID:         uuid.New().String(),
		LearnerID:  v.learnerID,
		QuizID:     v.quizID,
		QuizType:   s.Kind(),
		Title:      s.Quiz().Title,
		Score:      s.Score(),
		MaxScore:   s.MaxScore(),
		Percent:    percent,
		Passed:     s.Passed(),
		FinishedAt: m.now().UTC(),
	}
}

// record stores and announces a finished attempt in the background
func (m *Manager) record(a *models.Attempt) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(m.baseCtx), 10*time.Second)
		defer cancel()

		if err := m.repo.SaveAttempt(ctx, a); err != nil {
			slog.Error("failed to save attempt", "attempt_id", a.ID, "error", err)
		}
		if m.events != nil {
			if err := m.events.Publish(ctx, events.NewAttemptCompleted(a)); err != nil {
				slog.Error("failed to publish attempt", "attempt_id", a.ID, "error", err)
			}
		}

		slog.Info("attempt recorded",
			"attempt_id", a.ID,
			"quiz_id", a.QuizID,
			"score", a.Score,
			"max_score", a.MaxScore,
		)
	}()
}

// Snapshot renders the view. It never emits cues.
func (m *Manager) Snapshot(viewID string) (*Snapshot, error) {
	v, err := m.get(viewID)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	return m.snapshot(v), nil
}

// Close cancels any in-flight fetch and discards the view
func (m *Manager) Close(viewID string) error {
	m.mu.Lock()
	v, ok := m.views[viewID]
	delete(m.views, viewID)
	m.mu.Unlock()

	if !ok {
		return ErrViewNotFound
	}

	v.mu.Lock()
	v.closed = true
	if v.cancel != nil {
		v.cancel()
	}
	v.mu.Unlock()

	if m.cues != nil {
		m.cues.Drop(viewID)
	}

	slog.Info("view closed", "view_id", viewID)
	return nil
}

// EvictIdle closes views without activity for longer than ttl
func (m *Manager) EvictIdle(ttl time.Duration) int {
	cutoff := m.now().Add(-ttl)

	m.mu.RLock()
	var idle []string
	for id, v := range m.views {
		v.mu.Lock()
		if v.lastActive.Before(cutoff) {
			idle = append(idle, id)
		}
		v.mu.Unlock()
	}
	m.mu.RUnlock()

	evicted := 0
	for _, id := range idle {
		if err := m.Close(id); err == nil {
			evicted++
		}
	}
	return evicted
}

// Count returns the number of open views
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.views)
}

// SetSkipIntro stores or removes a learner's intro opt-out for a quiz type
func (m *Manager) SetSkipIntro(ctx context.Context, learnerID string, quizType models.QuizType, skip bool) error {
	quizType, ok := models.ParseQuizType(string(quizType))
	if !ok {
		return ErrUnknownQuizType
	}
	if err := m.flags.Set(ctx, learnerID, quizType, skip); err != nil {
		return fmt.Errorf("failed to update intro flag: %w", err)
	}
	return nil
}

// SkipIntro reports a learner's intro opt-out for a quiz type
func (m *Manager) SkipIntro(ctx context.Context, learnerID string, quizType models.QuizType) (bool, error) {
	quizType, ok := models.ParseQuizType(string(quizType))
	if !ok {
		return false, ErrUnknownQuizType
	}
	return m.flags.Get(ctx, learnerID, quizType)
}

// Shutdown cancels in-flight fetches and waits for pending attempt records
func (m *Manager) Shutdown(ctx context.Context) error {
	m.stop()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) get(viewID string) (*view, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.views[viewID]
	if !ok {
		return nil, ErrViewNotFound
	}
	return v, nil
}
