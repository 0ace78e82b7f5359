// Package memory implementa o window store em memória, para desenvolvimento
// local e testes.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Supreme070/marketsage-fe-sub019/internal/core/ports"
)

// WindowStore keeps sliding-window markers in process memory. The mutex
// makes Slide a single atomic unit, matching the contract the Redis backend
// satisfies with a script. State does not survive a restart.
type WindowStore struct {
	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	markers  []time.Time
	expireAt time.Time
}

var _ ports.WindowStore = (*WindowStore)(nil)

// NewWindowStore creates an empty in-memory store.
func NewWindowStore() *WindowStore {
	return &WindowStore{windows: make(map[string]*window)}
}

// Slide evicts markers below windowStart and records a marker at now when
// fewer than limit remain.
func (s *WindowStore) Slide(_ context.Context, key string, windowStart, now time.Time, limit int, ttl time.Duration) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.windows[key]
	if w == nil || now.After(w.expireAt) {
		w = &window{}
		s.windows[key] = w
	}

	w.markers = evict(w.markers, windowStart)

	count := int64(len(w.markers))
	if count >= int64(limit) {
		return count, false, nil
	}

	w.markers = append(w.markers, now)
	w.expireAt = now.Add(ttl)

	return count, true, nil
}

// Count reports live markers without mutating the window.
func (s *WindowStore) Count(_ context.Context, key string, windowStart time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.windows[key]
	if w == nil {
		return 0, nil
	}

	var count int64

	for _, m := range w.markers {
		if !m.Before(windowStart) {
			count++
		}
	}

	return count, nil
}

func evict(markers []time.Time, windowStart time.Time) []time.Time {
	kept := markers[:0]

	for _, m := range markers {
		if !m.Before(windowStart) {
			kept = append(kept, m)
		}
	}

	return kept
}
