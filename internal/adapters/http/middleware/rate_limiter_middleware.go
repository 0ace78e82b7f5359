// Package middleware disponibiliza middlewares HTTP específicos da aplicação.
package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Supreme070/marketsage-fe-sub019/internal/core/domain"
	"github.com/Supreme070/marketsage-fe-sub019/internal/core/ports"
	"github.com/Supreme070/marketsage-fe-sub019/internal/core/services"
)

const rateLimitExceededMessage = "you have reached the maximum number of requests or actions allowed within a certain time frame"

// defaultTokenHeader carries the authenticated principal's API key.
const defaultTokenHeader = "API_KEY"

// RateLimitOptions wires the limiters the middleware evaluates per request.
type RateLimitOptions struct {
	// IPLimiter is checked for every request, keyed by client address.
	IPLimiter ports.Limiter
	// TokenLimiter, when set, is checked first for requests carrying an API
	// key, keyed by the key value.
	TokenLimiter ports.Limiter
	TokenHeader  string
	Logger       *zap.Logger
}

// policyProvider lets the middleware surface the configured quota without
// widening the Limiter port.
type policyProvider interface {
	Policy() domain.Policy
}

// NewRateLimiterMiddleware translates limiter decisions into protocol
// responses: 429 plus quota headers on denial, the same headers on success
// for client-side backoff guidance. Store outages never deny requests; they
// show up only as absent quota headers and a logged warning.
func NewRateLimiterMiddleware(opts RateLimitOptions) func(http.Handler) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tokenHeader := opts.TokenHeader
	if tokenHeader == "" {
		tokenHeader = defaultTokenHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opts.IPLimiter == nil && opts.TokenLimiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			checks := buildChecks(r, opts, tokenHeader)

			result := services.CheckAll(r.Context(), checks)

			name, decision := headerDecision(result, checks)
			if decision.Err != "" {
				logger.Warn("rate limiter degraded, request admitted unmetered",
					zap.String("check", name),
					zap.String("error", decision.Err))
			} else {
				writeQuotaHeaders(w, checks, name, decision)
			}

			if !result.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(decision)))
				writeTooManyRequests(w)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func buildChecks(r *http.Request, opts RateLimitOptions, tokenHeader string) []services.NamedCheck {
	checks := make([]services.NamedCheck, 0, 2)

	token := strings.TrimSpace(r.Header.Get(tokenHeader))
	if token != "" && opts.TokenLimiter != nil {
		checks = append(checks, services.NamedCheck{Name: "token", Limiter: opts.TokenLimiter, Identifier: token})
	}

	if opts.IPLimiter != nil {
		checks = append(checks, services.NamedCheck{Name: "ip", Limiter: opts.IPLimiter, Identifier: ExtractIP(r)})
	}

	return checks
}

// headerDecision picks the decision the quota headers report: the failed
// check on denial, otherwise the evaluated check with the least remaining
// quota (the one the client will trip first).
func headerDecision(result domain.CompositeResult, checks []services.NamedCheck) (string, domain.Decision) {
	if !result.Allowed {
		return result.FailedCheck, result.Results[result.FailedCheck]
	}

	var (
		name     string
		decision domain.Decision
		found    bool
	)

	for _, check := range checks {
		d, ok := result.Results[check.Name]
		if !ok {
			continue
		}

		if !found || d.Remaining < decision.Remaining {
			name = check.Name
			decision = d
			found = true
		}
	}

	return name, decision
}

func writeQuotaHeaders(w http.ResponseWriter, checks []services.NamedCheck, name string, decision domain.Decision) {
	for _, check := range checks {
		if check.Name != name {
			continue
		}

		if pp, ok := check.Limiter.(policyProvider); ok {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(pp.Policy().MaxRequests))
		}
	}

	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetTime.Unix(), 10))
}

func retryAfterSeconds(decision domain.Decision) int {
	seconds := int(time.Until(decision.ResetTime).Seconds())
	if seconds < 1 {
		seconds = 1
	}

	return seconds
}

// ExtractIP resolves the client network address from the prioritized
// proxy-forwarding headers, falling back to the connection address and
// finally the literal "unknown".
func ExtractIP(r *http.Request) string {
	xForwardedFor := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if xForwardedFor != "" {
		parts := strings.Split(xForwardedFor, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}

	xRealIP := strings.TrimSpace(r.Header.Get("X-Real-IP"))
	if xRealIP != "" {
		return xRealIP
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}

	if remote := strings.TrimSpace(r.RemoteAddr); remote != "" {
		return remote
	}

	return "unknown"
}

func writeTooManyRequests(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(rateLimitExceededMessage))
}
