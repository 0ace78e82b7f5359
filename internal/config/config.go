// Package config centraliza o carregamento de configurações da aplicação.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Supreme070/marketsage-fe-sub019/internal/core/domain"
)

type Config struct {
	Server      ServerConfig
	Storage     StorageConfig
	RateLimiter RateLimiterConfig
	LocalGuard  LocalGuardConfig
}

type ServerConfig struct {
	Port string
}

type StorageConfig struct {
	Type  string
	Redis RedisConfig
}

type RedisConfig struct {
	Host           string
	Port           int
	Password       string
	DB             int
	PoolSize       int
	MaxRetries     int
	ConnectTimeout time.Duration
	LazyConnect    bool
	// SkipConnect is set when a build/packaging context is detected; the
	// pool then never performs network I/O for this process lifetime.
	SkipConnect bool
}

// Addr returns the host:port pair for the Redis connection.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type RateLimiterConfig struct {
	// Disabled turns throttling off entirely (local development).
	Disabled bool
	IP       domain.Policy
	// Policies holds the named product policies (api, email, workflow).
	Policies map[string]domain.Policy
}

// LocalGuardConfig tunes the in-process burst guard. Zero values disable it.
type LocalGuardConfig struct {
	RPS   float64
	Burst int
}

// policyDefaults seeds the named product policies; each is overridable via
// RATE_LIMIT_<NAME>_MAX_REQUESTS / RATE_LIMIT_<NAME>_WINDOW_MS.
var policyDefaults = map[string]domain.Policy{
	"api":      {MaxRequests: 100, Window: time.Minute, KeyPrefix: "ratelimit:api"},
	"email":    {MaxRequests: 10, Window: time.Hour, KeyPrefix: "ratelimit:email"},
	"workflow": {MaxRequests: 20, Window: time.Minute, KeyPrefix: "ratelimit:workflow"},
}

func Load() (Config, error) {
	_ = godotenv.Load()

	server := ServerConfig{Port: getEnv("SERVER_PORT", "8080")}

	storageType := getEnv("STORAGE_TYPE", "redis")

	redisConfig, err := buildRedisConfig()
	if err != nil {
		return Config{}, err
	}

	rateLimiterConfig, err := buildRateLimiterConfig()
	if err != nil {
		return Config{}, err
	}

	localGuard, err := buildLocalGuardConfig()
	if err != nil {
		return Config{}, err
	}

	return Config{
		Server: server,
		Storage: StorageConfig{
			Type:  storageType,
			Redis: redisConfig,
		},
		RateLimiter: rateLimiterConfig,
		LocalGuard:  localGuard,
	}, nil
}

func buildRedisConfig() (RedisConfig, error) {
	port, err := getEnvInt("REDIS_PORT", 6379)
	if err != nil {
		return RedisConfig{}, err
	}

	db, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return RedisConfig{}, err
	}

	poolSize, err := getEnvInt("REDIS_POOL_SIZE", 10)
	if err != nil {
		return RedisConfig{}, err
	}

	maxRetries, err := getEnvInt("REDIS_MAX_RETRIES", 3)
	if err != nil {
		return RedisConfig{}, err
	}

	connectTimeoutMs, err := getEnvInt("REDIS_CONNECT_TIMEOUT_MS", 5000)
	if err != nil {
		return RedisConfig{}, err
	}

	return RedisConfig{
		Host:           getEnv("REDIS_HOST", "localhost"),
		Port:           port,
		Password:       os.Getenv("REDIS_PASSWORD"),
		DB:             db,
		PoolSize:       poolSize,
		MaxRetries:     maxRetries,
		ConnectTimeout: time.Duration(connectTimeoutMs) * time.Millisecond,
		LazyConnect:    getEnvBool("REDIS_LAZY_CONNECT", false),
		SkipConnect:    getEnvBool("BUILD_PHASE", false),
	}, nil
}

func buildRateLimiterConfig() (RateLimiterConfig, error) {
	ipPolicy, err := buildPolicy("IP", domain.Policy{
		MaxRequests: 100,
		Window:      time.Minute,
		KeyPrefix:   "ratelimit:ip",
	})
	if err != nil {
		return RateLimiterConfig{}, err
	}

	policies := make(map[string]domain.Policy, len(policyDefaults))

	for name, fallback := range policyDefaults {
		policy, err := buildPolicy(strings.ToUpper(name), fallback)
		if err != nil {
			return RateLimiterConfig{}, err
		}

		policies[name] = policy
	}

	return RateLimiterConfig{
		Disabled: getEnvBool("RATE_LIMIT_DISABLED", false),
		IP:       ipPolicy,
		Policies: policies,
	}, nil
}

func buildPolicy(name string, fallback domain.Policy) (domain.Policy, error) {
	maxRequests, err := getEnvInt("RATE_LIMIT_"+name+"_MAX_REQUESTS", fallback.MaxRequests)
	if err != nil {
		return domain.Policy{}, err
	}

	windowMs, err := getEnvInt("RATE_LIMIT_"+name+"_WINDOW_MS", int(fallback.Window.Milliseconds()))
	if err != nil {
		return domain.Policy{}, err
	}

	return domain.Policy{
		MaxRequests: maxRequests,
		Window:      time.Duration(windowMs) * time.Millisecond,
		KeyPrefix:   fallback.KeyPrefix,
	}, nil
}

func buildLocalGuardConfig() (LocalGuardConfig, error) {
	rpsStr := getEnv("LOCAL_GUARD_RPS", "0")

	rps, err := strconv.ParseFloat(rpsStr, 64)
	if err != nil {
		return LocalGuardConfig{}, fmt.Errorf("invalid LOCAL_GUARD_RPS: %w", err)
	}

	burst, err := getEnvInt("LOCAL_GUARD_BURST", 0)
	if err != nil {
		return LocalGuardConfig{}, err
	}

	return LocalGuardConfig{RPS: rps, Burst: burst}, nil
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}

	return value
}

func getEnvInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return parsed, nil
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}

	return parsed
}
