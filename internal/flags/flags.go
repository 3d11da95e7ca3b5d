package flags

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/Iv91/kidslearning/internal/models"
)

// Store keeps the per-learner "skip intro next time" opt-outs.
// A flag that is off is absent, never stored as false.
type Store interface {
	Get(ctx context.Context, learnerID string, quizType models.QuizType) (bool, error)
	Set(ctx context.Context, learnerID string, quizType models.QuizType, skip bool) error
	Clear(ctx context.Context, learnerID string) error
}

func learnerPrefix(learnerID string) string {
	return fmt.Sprintf("quizplayer:learner:%s:", strings.ReplaceAll(learnerID, ":", "_"))
}

// Key returns the storage key of one flag
func Key(learnerID string, quizType models.QuizType) string {
	return learnerPrefix(learnerID) + quizType.IntroKey()
}

// RedisStore implements Store on Redis
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis backed flag store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, learnerID string, quizType models.QuizType) (bool, error) {
	val, err := s.client.Get(ctx, Key(learnerID, quizType)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read flag: %w", err)
	}
	return val == "yes", nil
}

func (s *RedisStore) Set(ctx context.Context, learnerID string, quizType models.QuizType, skip bool) error {
	key := Key(learnerID, quizType)
	if !skip {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("failed to remove flag: %w", err)
		}
		return nil
	}
	if err := s.client.Set(ctx, key, "yes", 0).Err(); err != nil {
		return fmt.Errorf("failed to store flag: %w", err)
	}
	return nil
}

// Clear removes every flag of a learner
func (s *RedisStore) Clear(ctx context.Context, learnerID string) error {
	pattern := learnerPrefix(learnerID) + "*"
	var cursor uint64
	var keysDeleted int

	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan keys: %w", err)
		}

		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("failed to delete some flags", "error", err)
			}
			keysDeleted += len(keys)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	slog.Info("learner flags cleared", "learner_id", learnerID, "keys_deleted", keysDeleted)
	return nil
}

// MemoryStore implements Store in process
type MemoryStore struct {
	mu    sync.RWMutex
	flags map[string]string
}

// NewMemoryStore creates an empty in-process flag store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{flags: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, learnerID string, quizType models.QuizType) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags[Key(learnerID, quizType)] == "yes", nil
}

func (s *MemoryStore) Set(_ context.Context, learnerID string, quizType models.QuizType, skip bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := Key(learnerID, quizType)
	if skip {
		s.flags[key] = "yes"
	} else {
		delete(s.flags, key)
	}
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, learnerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := learnerPrefix(learnerID)
	for key := range s.flags {
		if strings.HasPrefix(key, prefix) {
			delete(s.flags, key)
		}
	}
	return nil
}

// Has reports whether the key is present at all
func (s *MemoryStore) Has(learnerID string, quizType models.QuizType) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.flags[Key(learnerID, quizType)]
	return ok
}
