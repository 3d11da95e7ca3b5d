package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/Iv91/kidslearning/internal/models"
)

// MemoryRepository implements Repository in process
type MemoryRepository struct {
	mu       sync.RWMutex
	attempts map[string]*models.Attempt
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{attempts: make(map[string]*models.Attempt)}
}

func (r *MemoryRepository) SaveAttempt(_ context.Context, a *models.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.attempts[a.ID]; exists {
		return nil
	}
	cp := *a
	r.attempts[a.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetAttempt(_ context.Context, id string) (*models.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.attempts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *MemoryRepository) ListAttempts(_ context.Context, filters models.AttemptFilters) ([]*models.Attempt, error) {
	r.mu.RLock()
	matched := lo.Filter(lo.Values(r.attempts), func(a *models.Attempt, _ int) bool {
		return (filters.LearnerID == "" || a.LearnerID == filters.LearnerID) &&
			(filters.QuizID == "" || a.QuizID == filters.QuizID) &&
			(filters.QuizType == "" || a.QuizType == filters.QuizType)
	})
	out := lo.Map(matched, func(a *models.Attempt, _ int) *models.Attempt {
		cp := *a
		return &cp
	})
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].FinishedAt.After(out[j].FinishedAt)
	})

	if filters.Offset > 0 {
		out = out[min(filters.Offset, len(out)):]
	}
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

func (r *MemoryRepository) Ping(context.Context) error {
	return nil
}

func (r *MemoryRepository) Close() error {
	return nil
}
