package cleanup

import (
	"context"
	"log/slog"
	"time"
)

// Evicter closes views that have been idle for longer than ttl
type Evicter interface {
	EvictIdle(ttl time.Duration) int
}

// Cleaner handles periodic eviction of abandoned quiz views
type Cleaner struct {
	views    Evicter
	interval time.Duration
	idleTTL  time.Duration
}

// NewCleaner creates a new cleanup worker
func NewCleaner(views Evicter, interval, idleTTL time.Duration) *Cleaner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if idleTTL <= 0 {
		idleTTL = time.Hour
	}

	return &Cleaner{
		views:    views,
		interval: interval,
		idleTTL:  idleTTL,
	}
}

// Start begins the cleanup worker in a goroutine
func (c *Cleaner) Start(ctx context.Context) {
	go c.run(ctx)
}

// run is the main loop for the cleanup worker
func (c *Cleaner) run(ctx context.Context) {
	slog.Info("cleanup worker started", "interval", c.interval, "idle_ttl", c.idleTTL)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup closes idle views
func (c *Cleaner) cleanup() int {
	slog.Debug("running cleanup cycle")

	evicted := c.views.EvictIdle(c.idleTTL)
	if evicted == 0 {
		slog.Debug("no idle views found")
		return 0
	}

	slog.Info("idle views closed", "count", evicted)
	return evicted
}
