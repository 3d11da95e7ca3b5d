package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Iv91/kidslearning/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 10
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Pool exposes the connection pool for migrations
func (r *PostgresRepository) Pool() *pgxpool.Pool {
	return r.pool
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// SaveAttempt inserts an attempt; saving the same id twice is a no-op
func (r *PostgresRepository) SaveAttempt(ctx context.Context, a *models.Attempt) error {
	query := `
		INSERT INTO attempts (id, learner_id, quiz_id, quiz_type, title, score, max_score, percent, passed, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		a.ID,
		a.LearnerID,
		a.QuizID,
		string(a.QuizType),
		a.Title,
		a.Score,
		a.MaxScore,
		a.Percent,
		a.Passed,
		a.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save attempt: %w", err)
	}

	return nil
}

const attemptColumns = `id, learner_id, quiz_id, quiz_type, title, score, max_score, percent, passed, finished_at`

// GetAttempt retrieves an attempt by ID
func (r *PostgresRepository) GetAttempt(ctx context.Context, id string) (*models.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM attempts WHERE id = $1`

	a, err := scanAttempt(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	return a, nil
}

// ListAttempts returns attempts matching filters, newest first
func (r *PostgresRepository) ListAttempts(ctx context.Context, filters models.AttemptFilters) ([]*models.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM attempts WHERE 1=1`
	args := make([]interface{}, 0)
	argNum := 1

	if filters.LearnerID != "" {
		query += fmt.Sprintf(" AND learner_id = $%d", argNum)
		args = append(args, filters.LearnerID)
		argNum++
	}

	if filters.QuizID != "" {
		query += fmt.Sprintf(" AND quiz_id = $%d", argNum)
		args = append(args, filters.QuizID)
		argNum++
	}

	if filters.QuizType != "" {
		query += fmt.Sprintf(" AND quiz_type = $%d", argNum)
		args = append(args, string(filters.QuizType))
		argNum++
	}

	query += " ORDER BY finished_at DESC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filters.Limit)
		argNum++
	}

	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filters.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*models.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attempts: %w", err)
	}

	return attempts, nil
}

func scanAttempt(row pgx.Row) (*models.Attempt, error) {
	var a models.Attempt
	var quizType string

	err := row.Scan(
		&a.ID,
		&a.LearnerID,
		&a.QuizID,
		&quizType,
		&a.Title,
		&a.Score,
		&a.MaxScore,
		&a.Percent,
		&a.Passed,
		&a.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	a.QuizType = models.QuizType(quizType)
	return &a, nil
}
