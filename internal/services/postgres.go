package services

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresProvider checks PostgreSQL availability on a dedicated connection,
// independent of the attempt repository pool.
type PostgresProvider struct {
	BaseProvider
	db *sql.DB
}

// NewPostgresProvider opens a health-check connection to dsn
func NewPostgresProvider(dsn string) (*PostgresProvider, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &PostgresProvider{
		BaseProvider: BaseProvider{serviceType: "postgres"},
		db:           db,
	}, nil
}

// HealthCheck checks if PostgreSQL is available
func (p *PostgresProvider) HealthCheck(ctx context.Context) error {
	var one int
	if err := p.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("postgres health check failed: %w", err)
	}
	return nil
}

// Close closes the health-check connection
func (p *PostgresProvider) Close() error {
	return p.db.Close()
}
