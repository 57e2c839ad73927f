package storage

import (
	"context"
	"sync"
	"time"
)

// Reasons an import run is skipped.
const (
	SkipFresh    = "fresh"
	SkipInFlight = "inflight"
)

// MemorySyncGuard is the single-process import guard: last successful sync plus
// an in-flight flag, both behind one mutex. Separate processes do not see each other.
type MemorySyncGuard struct {
	mu       sync.Mutex
	ttl      time.Duration
	lastSync time.Time
	inFlight bool
}

func NewMemorySyncGuard(ttl time.Duration) *MemorySyncGuard {
	return &MemorySyncGuard{ttl: ttl}
}

// Acquire returns a skip reason, or "" when the caller now owns the run.
func (g *MemorySyncGuard) Acquire(_ context.Context, checkFresh bool, now time.Time) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if checkFresh && !g.lastSync.IsZero() && now.Sub(g.lastSync) < g.ttl {
		return SkipFresh, nil
	}
	if g.inFlight {
		return SkipInFlight, nil
	}
	g.inFlight = true
	return "", nil
}

// Release clears the in-flight flag and records the sync time when synced is true.
func (g *MemorySyncGuard) Release(_ context.Context, synced bool, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inFlight = false
	if synced {
		g.lastSync = now
	}
}

func (g *MemorySyncGuard) LastSync(context.Context) time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastSync
}
