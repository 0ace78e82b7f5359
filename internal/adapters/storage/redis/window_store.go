package redis

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/Supreme070/marketsage-fe-sub019/internal/core/ports"
)

// slideScript evicts expired markers, counts the survivors and, only when
// under the limit, records a new marker and refreshes the key TTL. Running
// it as a single script closes the check-then-act race between concurrent
// requests competing for the last slot.
//
// KEYS[1] window key
// ARGV[1] window start (ms, markers strictly below are evicted)
// ARGV[2] now (ms, score of the new marker)
// ARGV[3] limit
// ARGV[4] key TTL (ms)
// ARGV[5] marker member
//
// Returns {count before insert, 1 if recorded else 0}.
var slideScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[1])
local count = redis.call('ZCARD', KEYS[1])
if count >= tonumber(ARGV[3]) then
  return {count, 0}
end
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[5])
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return {count, 1}
`)

// WindowStore implements ports.WindowStore on top of the connection pool.
type WindowStore struct {
	pool *Pool
}

var _ ports.WindowStore = (*WindowStore)(nil)

// NewWindowStore wires a sliding-window store to the given pool.
func NewWindowStore(pool *Pool) (*WindowStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}

	return &WindowStore{pool: pool}, nil
}

// Slide runs the atomic window update. The marker member carries a random
// suffix so concurrent same-millisecond requests stay distinct.
func (s *WindowStore) Slide(ctx context.Context, key string, windowStart, now time.Time, limit int, ttl time.Duration) (int64, bool, error) {
	client, err := s.pool.GetClient(ctx, RolePipeline)
	if err != nil {
		return 0, false, err
	}

	member := fmt.Sprintf("%d:%08x", now.UnixMilli(), rand.Uint32())

	res, err := slideScript.Run(ctx, client,
		[]string{key},
		windowStart.UnixMilli(),
		now.UnixMilli(),
		limit,
		ttl.Milliseconds(),
		member,
	).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("window slide: %w", err)
	}

	if len(res) != 2 {
		return 0, false, fmt.Errorf("window slide: unexpected script reply of length %d", len(res))
	}

	return res[0], res[1] == 1, nil
}

// Count reports the live markers in the window without mutating it.
func (s *WindowStore) Count(ctx context.Context, key string, windowStart time.Time) (int64, error) {
	client, err := s.pool.GetClient(ctx, RoleGeneral)
	if err != nil {
		return 0, err
	}

	count, err := client.ZCount(ctx, key, strconv.FormatInt(windowStart.UnixMilli(), 10), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("window count: %w", err)
	}

	return count, nil
}
