package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LocalGuard is an in-process token-bucket guard applied ahead of the shared
// store. It sheds obvious bursts per client without a Redis round-trip; the
// sliding-window limiter behind it remains the source of truth.
type LocalGuard struct {
	mu           sync.Mutex
	entries      map[string]*guardEntry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type guardEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewLocalGuard creates a guard admitting rps requests per second with the
// given burst per client key.
func NewLocalGuard(rps float64, burst int) *LocalGuard {
	return &LocalGuard{
		entries:      make(map[string]*guardEntry),
		rps:          rate.Limit(rps),
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
}

// Middleware rejects over-burst requests with 429 before they reach the
// shared limiter. A nil guard or non-positive rate is a passthrough.
func (g *LocalGuard) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if g == nil || g.rps <= 0 || g.burst <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !g.allow(ExtractIP(r)) {
				writeTooManyRequests(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (g *LocalGuard) allow(key string) bool {
	now := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	ent, ok := g.entries[key]
	if !ok {
		ent = &guardEntry{lim: rate.NewLimiter(g.rps, g.burst)}
		g.entries[key] = ent
	}

	ent.lastSeen = now

	return ent.lim.Allow()
}

// StartJanitor prunes idle client entries until the context is cancelled.
func (g *LocalGuard) StartJanitor(ctx context.Context) {
	if g == nil || g.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(g.cleanupEvery)

	go func() {
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				g.cleanup()
			}
		}
	}()
}

func (g *LocalGuard) cleanup() {
	cutoff := time.Now().Add(-g.idleTTL)

	g.mu.Lock()
	defer g.mu.Unlock()

	for k, ent := range g.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(g.entries, k)
		}
	}
}
