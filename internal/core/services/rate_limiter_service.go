// Package services implementa a lógica central de rate limiting.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Supreme070/marketsage-fe-sub019/internal/core/domain"
	"github.com/Supreme070/marketsage-fe-sub019/internal/core/ports"
)

// Options carries the cross-cutting limiter inputs.
type Options struct {
	// DisableThrottling forces every check to admit without touching the
	// store. Used to turn throttling off during local development; it is an
	// explicit configuration input so the bypass stays testable.
	DisableThrottling bool
	Logger            *zap.Logger
}

// SlidingWindowLimiter enforces one policy over a sliding time window using
// a WindowStore as the source of truth for counts. It fails open: when the
// store is unavailable the product stays available and usage goes
// temporarily unmetered.
type SlidingWindowLimiter struct {
	store    ports.WindowStore
	policy   domain.Policy
	disabled bool
	logger   *zap.Logger

	// test hook
	now func() time.Time
}

var _ ports.Limiter = (*SlidingWindowLimiter)(nil)

// NewSlidingWindowLimiter validates the policy and creates a limiter.
// Invalid policies are programmer errors and are rejected here rather than
// surfacing per request.
func NewSlidingWindowLimiter(store ports.WindowStore, policy domain.Policy, opts Options) (*SlidingWindowLimiter, error) {
	if store == nil {
		return nil, fmt.Errorf("window store is required")
	}
	if policy.Window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive", domain.ErrInvalidPolicy)
	}
	if policy.MaxRequests <= 0 {
		return nil, fmt.Errorf("%w: max requests must be positive", domain.ErrInvalidPolicy)
	}
	if strings.TrimSpace(policy.KeyPrefix) == "" {
		return nil, fmt.Errorf("%w: key prefix is required", domain.ErrInvalidPolicy)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SlidingWindowLimiter{
		store:    store,
		policy:   policy,
		disabled: opts.DisableThrottling,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Policy returns the limiter's immutable policy.
func (l *SlidingWindowLimiter) Policy() domain.Policy {
	return l.policy
}

// Check decides admit/deny for one identifier. The window update runs as a
// single atomic store operation; a store failure yields a fail-open admit
// carrying the error description.
func (l *SlidingWindowLimiter) Check(ctx context.Context, identifier string) domain.Decision {
	now := l.now()
	reset := now.Add(l.policy.Window)

	if l.disabled {
		return domain.Decision{
			Allowed:   true,
			Remaining: l.policy.MaxRequests - 1,
			ResetTime: reset,
		}
	}

	key := l.windowKey(identifier)
	windowStart := now.Add(-l.policy.Window)

	count, recorded, err := l.store.Slide(ctx, key, windowStart, now, l.policy.MaxRequests, l.policy.Window)
	if err != nil {
		l.logger.Warn("rate limit store unavailable, failing open",
			zap.String("key", key),
			zap.Error(err))

		return domain.Decision{
			Allowed:   true,
			Remaining: l.policy.MaxRequests - 1,
			ResetTime: reset,
			Err:       err.Error(),
		}
	}

	if !recorded {
		return domain.Decision{
			Allowed:   false,
			Remaining: 0,
			ResetTime: reset,
		}
	}

	remaining := l.policy.MaxRequests - int(count) - 1
	if remaining < 0 {
		remaining = 0
	}

	return domain.Decision{
		Allowed:   true,
		Remaining: remaining,
		ResetTime: reset,
	}
}

// RemainingRequests reports how many requests the identifier has left in the
// current window. Consistent with fail-open, a store failure reports the
// full quota: an unavailable store must not look like an exhausted one.
func (l *SlidingWindowLimiter) RemainingRequests(ctx context.Context, identifier string) int {
	now := l.now()

	if l.disabled {
		return l.policy.MaxRequests
	}

	count, err := l.store.Count(ctx, l.windowKey(identifier), now.Add(-l.policy.Window))
	if err != nil {
		l.logger.Warn("rate limit count failed", zap.Error(err))

		return l.policy.MaxRequests
	}

	remaining := l.policy.MaxRequests - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return remaining
}

func (l *SlidingWindowLimiter) windowKey(identifier string) string {
	return l.policy.KeyPrefix + ":" + strings.ToLower(strings.TrimSpace(identifier))
}
