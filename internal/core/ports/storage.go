// Package ports define contratos que conectam o domínio a implementações externas.
package ports

import (
	"context"
	"time"
)

// WindowStore persists sliding-window request markers.
//
// Slide must execute as a single atomic unit against the backing store:
// evict markers scored below windowStart, count the survivors, and, only if
// fewer than limit remain, record a marker scored now and refresh the key's
// TTL. Two concurrent callers must never both be admitted into the last
// remaining slot. It returns the count observed before any insert and
// whether a marker was recorded.
type WindowStore interface {
	Slide(ctx context.Context, key string, windowStart, now time.Time, limit int, ttl time.Duration) (count int64, recorded bool, err error)

	// Count reports the markers scored at or above windowStart without
	// mutating the window.
	Count(ctx context.Context, key string, windowStart time.Time) (int64, error)
}
