// Package dedup provides the at-most-once admission gate in front of
// the classifier. Check-and-insert is atomic, so rapid successive
// ingestion events cannot double-dispatch the same post.
package dedup

import (
	"context"
	"sync"
	"time"
)

// Gate admits each reference id at most once per gate lifetime.
type Gate interface {
	// Admit considers every id in the batch, not only the newest, and
	// returns the subset that has not been seen before. Admitted ids
	// are marked seen in the same step.
	Admit(ctx context.Context, ids []string) ([]string, error)
	// Seen reports whether an id was already admitted.
	Seen(ctx context.Context, id string) (bool, error)
}

// New returns a Redis-backed gate when a Redis URL is configured,
// otherwise a process-scoped in-memory gate. The in-memory gate loses
// its state on restart, which keeps the pipeline at-least-once; the
// idempotent ride upsert makes re-processing safe.
func New(redisURL string, ttl time.Duration) (Gate, error) {
	if redisURL == "" {
		return NewMemoryGate(), nil
	}
	return NewRedisGate(redisURL, ttl)
}

// MemoryGate implements Gate with a mutex-guarded set.
type MemoryGate struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryGate creates an empty in-memory gate
func NewMemoryGate() *MemoryGate {
	return &MemoryGate{seen: make(map[string]struct{})}
}

// Admit returns the ids not seen before and marks them seen
func (g *MemoryGate) Admit(ctx context.Context, ids []string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var admitted []string
	for _, id := range ids {
		if _, ok := g.seen[id]; ok {
			continue
		}
		g.seen[id] = struct{}{}
		admitted = append(admitted, id)
	}
	return admitted, nil
}

// Seen reports whether an id was already admitted
func (g *MemoryGate) Seen(ctx context.Context, id string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, ok := g.seen[id]
	return ok, nil
}
