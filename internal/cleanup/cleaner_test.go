package cleanup

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEvicter struct {
	mu    sync.Mutex
	ttls  []time.Duration
	count int
}

func (f *fakeEvicter) EvictIdle(ttl time.Duration) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttls = append(f.ttls, ttl)
	return f.count
}

func (f *fakeEvicter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ttls)
}

func TestNewCleanerDefaults(t *testing.T) {
	c := NewCleaner(&fakeEvicter{}, 0, 0)
	assert.Equal(t, 5*time.Minute, c.interval)
	assert.Equal(t, time.Hour, c.idleTTL)
}

func TestCleanupPassesTTL(t *testing.T) {
	views := &fakeEvicter{count: 2}
	c := NewCleaner(views, time.Minute, 30*time.Minute)

	assert.Equal(t, 2, c.cleanup())
	assert.Equal(t, []time.Duration{30 * time.Minute}, views.ttls)
}

func TestCleanerRunsUntilCancelled(t *testing.T) {
	views := &fakeEvicter{}
	c := NewCleaner(views, 5*time.Millisecond, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)

	require.Eventually(t, func() bool { return views.calls() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
}
