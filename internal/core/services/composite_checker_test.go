package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Supreme070/marketsage-fe-sub019/internal/adapters/storage/memory"
	"github.com/Supreme070/marketsage-fe-sub019/internal/core/domain"
)

type stubLimiter struct {
	allowed bool
	calls   int
}

func (s *stubLimiter) Check(context.Context, string) domain.Decision {
	s.calls++
	return domain.Decision{Allowed: s.allowed, ResetTime: time.Now()}
}

func (s *stubLimiter) RemainingRequests(context.Context, string) int { return 0 }

func TestCheckAll_ShortCircuitsAtFirstDenial(t *testing.T) {
	a := &stubLimiter{allowed: true}
	b := &stubLimiter{allowed: false}
	c := &stubLimiter{allowed: true}

	result := CheckAll(context.Background(), []NamedCheck{
		{Name: "A", Limiter: a, Identifier: "u1"},
		{Name: "B", Limiter: b, Identifier: "u1"},
		{Name: "C", Limiter: c, Identifier: "u1"},
	})

	assert.False(t, result.Allowed)
	assert.Equal(t, "B", result.FailedCheck)

	assert.Contains(t, result.Results, "A")
	assert.Contains(t, result.Results, "B")
	assert.NotContains(t, result.Results, "C", "checks after the denial must not be evaluated")
	assert.Zero(t, c.calls)
}

func TestCheckAll_AllPass(t *testing.T) {
	a := &stubLimiter{allowed: true}
	b := &stubLimiter{allowed: true}

	result := CheckAll(context.Background(), []NamedCheck{
		{Name: "ip", Limiter: a, Identifier: "10.0.0.1"},
		{Name: "api", Limiter: b, Identifier: "user-1"},
	})

	assert.True(t, result.Allowed)
	assert.Empty(t, result.FailedCheck)
	assert.Len(t, result.Results, 2)
	assert.True(t, result.Results["ip"].Allowed)
	assert.True(t, result.Results["api"].Allowed)
}

func TestCheckAll_EmptyListAllows(t *testing.T) {
	result := CheckAll(context.Background(), nil)

	assert.True(t, result.Allowed)
	assert.Empty(t, result.Results)
}

func TestCheckAll_WithRealLimiters(t *testing.T) {
	store := memory.NewWindowStore()

	ip, err := NewSlidingWindowLimiter(store, domain.Policy{Window: time.Minute, MaxRequests: 10, KeyPrefix: "ip"}, Options{})
	require.NoError(t, err)

	api, err := NewSlidingWindowLimiter(store, domain.Policy{Window: time.Minute, MaxRequests: 1, KeyPrefix: "api"}, Options{})
	require.NoError(t, err)

	checks := []NamedCheck{
		{Name: "ip", Limiter: ip, Identifier: "10.0.0.1"},
		{Name: "api", Limiter: api, Identifier: "user-1"},
	}

	ctx := context.Background()

	first := CheckAll(ctx, checks)
	require.True(t, first.Allowed)

	second := CheckAll(ctx, checks)
	assert.False(t, second.Allowed)
	assert.Equal(t, "api", second.FailedCheck)
	assert.True(t, second.Results["ip"].Allowed, "earlier checks still consume quota")
}
