package storage

import (
	"context"

	"github.com/Iv91/kidslearning/internal/models"
)

// Repository defines the interface for attempt persistence
type Repository interface {
	// Attempts
	SaveAttempt(ctx context.Context, a *models.Attempt) error
	// GetAttempt returns nil, nil when the attempt does not exist
	GetAttempt(ctx context.Context, id string) (*models.Attempt, error)
	ListAttempts(ctx context.Context, filters models.AttemptFilters) ([]*models.Attempt, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}
