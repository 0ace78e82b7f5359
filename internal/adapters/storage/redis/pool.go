// Package redis disponibiliza o pool de conexões e o storage de janelas
// baseados em Redis.
package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Supreme070/marketsage-fe-sub019/internal/backoff"
	"github.com/Supreme070/marketsage-fe-sub019/internal/core/domain"
)

// State is the pool's connection lifecycle state.
type State int32

const (
	StateUninitialized State = iota
	StateConnecting
	StateConnected
	StateDisconnected
	// StateBuildSkipped is entered when the pool is constructed during an
	// offline packaging step. It is permanent for the process lifetime and
	// all accessors report unavailable instead of attempting network I/O.
	StateBuildSkipped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateBuildSkipped:
		return "build-skipped"
	default:
		return "unknown"
	}
}

// Role selects the capability a caller needs from the client handle.
// Both roles resolve to the same redis.UniversalClient, which exposes the
// plain key-value surface and the transactional/pipeline surface; the role
// keeps call-site intent explicit.
type Role string

const (
	RoleGeneral  Role = "general"
	RolePipeline Role = "pipeline"
)

// PoolConfig holds the immutable pool settings.
type PoolConfig struct {
	Addr           string
	Password       string
	DB             int
	PoolSize       int
	MaxRetries     int
	ConnectTimeout time.Duration
	LazyConnect    bool
	// SkipConnect pins the pool in StateBuildSkipped. Set when a build or
	// packaging context is detected by the configuration loader.
	SkipConnect bool
}

// PoolStats is a diagnostics snapshot of the pool.
type PoolStats struct {
	State     string
	Attempts  int
	LastError string
	Redis     *redis.PoolStats
}

// reconnectBackoffCap is the maximum delay between reconnect attempts.
const reconnectBackoffCap = 30 * time.Second

const (
	defaultPoolSize       = 10
	defaultConnectTimeout = 5 * time.Second
	reconnectBackoffBase  = 500 * time.Millisecond
)

// Pool owns the logical connections to the shared Redis store. It is a
// long-lived, process-wide object: connection state is mutated only by the
// pool's own methods, callers read it or request an action.
type Pool struct {
	mu      sync.RWMutex
	cfg     PoolConfig
	logger  *zap.Logger
	client  redis.UniversalClient
	state   State
	closed  bool
	lastErr error

	// attempts counts consecutive failed connection attempts in the current
	// disconnection episode; reset to zero on success.
	attempts    int
	lastAttempt time.Time

	// test hooks
	dialFn    func(ctx context.Context) (redis.UniversalClient, error)
	backoffFn func(attempt int) time.Duration
}

// NewPool validates the configuration and constructs the pool. Unless
// LazyConnect is set, it attempts the initial connection immediately; a
// handshake failure is logged and leaves the pool Disconnected, it never
// escapes construction as an error.
func NewPool(cfg PoolConfig, logger *zap.Logger) (*Pool, error) {
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("pool config: max retries must be >= 0")
	}
	if cfg.ConnectTimeout < 0 {
		return nil, fmt.Errorf("pool config: connect timeout must be > 0")
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = defaultPoolSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pool{
		cfg:    cfg,
		logger: logger,
		state:  StateUninitialized,
	}
	p.dialFn = p.dial
	p.backoffFn = reconnectDelay

	if cfg.SkipConnect {
		p.state = StateBuildSkipped
		logger.Info("redis pool skipped: build context detected")

		return p, nil
	}

	if cfg.Addr == "" {
		return nil, fmt.Errorf("pool config: redis address is required")
	}

	if !cfg.LazyConnect {
		p.mu.Lock()
		if err := p.connectLocked(context.Background()); err != nil {
			p.logger.Warn("initial redis connection failed", zap.Error(err))
		}
		p.mu.Unlock()
	}

	return p, nil
}

// GetClient returns a live client handle for the requested role, triggering
// a reconnection attempt when disconnected and under the retry ceiling.
// It never blocks longer than the configured connect timeout. When the pool
// is unavailable it returns an error wrapping domain.ErrPoolUnavailable.
func (p *Pool) GetClient(ctx context.Context, role Role) (redis.UniversalClient, error) {
	p.mu.RLock()

	if p.state == StateConnected && p.client != nil {
		client := p.client
		p.mu.RUnlock()

		return client, nil
	}

	unavailable := p.closed || p.state == StateBuildSkipped
	p.mu.RUnlock()

	if unavailable {
		return nil, fmt.Errorf("%w: pool is %s", domain.ErrPoolUnavailable, p.CurrentState())
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateConnected && p.client != nil {
		return p.client, nil
	}

	if p.closed || p.state == StateBuildSkipped {
		return nil, fmt.Errorf("%w: pool is %s", domain.ErrPoolUnavailable, p.state)
	}

	// The very first lazy connect is not a reconnection and is exempt from
	// the retry ceiling.
	if p.state != StateUninitialized && p.attempts >= p.cfg.MaxRetries {
		// Terminal for this episode: the pool stays down until an external
		// re-init. No further network calls.
		return nil, fmt.Errorf("%w: retry ceiling reached after %d attempts: %v",
			domain.ErrPoolUnavailable, p.attempts, p.lastErr)
	}

	// Space reconnect attempts out to avoid hammering a server that just
	// went away. Callers inside the delay get unavailable without I/O.
	if p.attempts > 0 {
		delay := p.backoffFn(p.attempts)

		if elapsed := time.Since(p.lastAttempt); elapsed < delay {
			return nil, fmt.Errorf("%w: reconnect backoff, next attempt in %s",
				domain.ErrPoolUnavailable, delay-elapsed)
		}
	}

	if err := p.connectLocked(ctx); err != nil {
		p.logger.Warn("redis reconnection failed",
			zap.String("role", string(role)),
			zap.Int("attempts", p.attempts),
			zap.Int("max_retries", p.cfg.MaxRetries),
			zap.Error(err))

		return nil, fmt.Errorf("%w: %v", domain.ErrPoolUnavailable, err)
	}

	return p.client, nil
}

// reconnectDelay spaces consecutive reconnect attempts, exponential with
// jitter, capped at reconnectBackoffCap.
func reconnectDelay(attempt int) time.Duration {
	delay := backoff.ExponentialWithJitter(reconnectBackoffBase, attempt)
	if delay > reconnectBackoffCap {
		delay = reconnectBackoffCap
	}

	return delay
}

// connectLocked performs one connection attempt. Callers must hold p.mu.
func (p *Pool) connectLocked(ctx context.Context) error {
	p.state = StateConnecting
	p.lastAttempt = time.Now()

	dialCtx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	defer cancel()

	client, err := p.dialFn(dialCtx)
	if err != nil {
		p.state = StateDisconnected
		p.attempts++
		p.lastErr = err

		return err
	}

	if p.client != nil {
		_ = p.client.Close()
	}

	p.client = client
	p.state = StateConnected
	p.attempts = 0
	p.lastErr = nil

	p.logger.Info("connected to redis", zap.String("addr", p.cfg.Addr))

	return nil
}

func (p *Pool) dial(ctx context.Context) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        p.cfg.Addr,
		Password:    p.cfg.Password,
		DB:          p.cfg.DB,
		PoolSize:    p.cfg.PoolSize,
		DialTimeout: p.cfg.ConnectTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// IsConnected reports whether the pool currently holds a live connection.
// Always false in StateBuildSkipped.
func (p *Pool) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.state == StateConnected
}

// CurrentState returns the pool's lifecycle state.
func (p *Pool) CurrentState() State {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.state
}

// Ping actively probes the store. It does not mutate the attempt counter,
// but a failed probe on a connected pool flips the state to Disconnected so
// the next accessor triggers reconnection.
func (p *Pool) Ping(ctx context.Context) bool {
	p.mu.RLock()
	client := p.client
	connected := p.state == StateConnected
	p.mu.RUnlock()

	if client == nil || !connected {
		return false
	}

	pingCtx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		p.logger.Warn("redis ping failed", zap.Error(err))

		p.mu.Lock()
		if p.state == StateConnected {
			p.state = StateDisconnected
			p.lastErr = err
		}
		p.mu.Unlock()

		return false
	}

	return true
}

// Info returns the server INFO output for the given sections, or an error
// wrapping domain.ErrPoolUnavailable when no connection is live.
func (p *Pool) Info(ctx context.Context, sections ...string) (string, error) {
	p.mu.RLock()
	client := p.client
	connected := p.state == StateConnected
	p.mu.RUnlock()

	if client == nil || !connected {
		return "", fmt.Errorf("%w: info requires a live connection", domain.ErrPoolUnavailable)
	}

	infoCtx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	defer cancel()

	out, err := client.Info(infoCtx, sections...).Result()
	if err != nil {
		return "", fmt.Errorf("redis info: %w", err)
	}

	return out, nil
}

// Disconnect tears down the underlying client. It is idempotent and
// terminal: no reconnection attempts happen after it returns.
func (p *Pool) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true
	p.state = StateDisconnected

	if p.client == nil {
		return nil
	}

	err := p.client.Close()
	p.client = nil

	if err != nil {
		return fmt.Errorf("redis close: %w", err)
	}

	p.logger.Info("redis pool disconnected")

	return nil
}

// Stats returns a diagnostics snapshot of the pool.
func (p *Pool) Stats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := PoolStats{
		State:    p.state.String(),
		Attempts: p.attempts,
	}

	if p.lastErr != nil {
		stats.LastError = p.lastErr.Error()
	}

	if p.client != nil {
		stats.Redis = p.client.PoolStats()
	}

	return stats
}
