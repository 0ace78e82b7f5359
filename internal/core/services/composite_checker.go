package services

import (
	"context"

	"github.com/Supreme070/marketsage-fe-sub019/internal/core/domain"
	"github.com/Supreme070/marketsage-fe-sub019/internal/core/ports"
)

// NamedCheck pairs a limiter with the identifier it should evaluate.
type NamedCheck struct {
	Name       string
	Limiter    ports.Limiter
	Identifier string
}

// CheckAll evaluates the checks in the given order and short-circuits at the
// first denial, skipping the remaining store round-trips. Results holds the
// decisions of every check evaluated so far, keyed by name.
func CheckAll(ctx context.Context, checks []NamedCheck) domain.CompositeResult {
	results := make(map[string]domain.Decision, len(checks))

	for _, check := range checks {
		decision := check.Limiter.Check(ctx, check.Identifier)
		results[check.Name] = decision

		if !decision.Allowed {
			return domain.CompositeResult{
				Allowed:     false,
				FailedCheck: check.Name,
				Results:     results,
			}
		}
	}

	return domain.CompositeResult{Allowed: true, Results: results}
}
