// Package ports define contratos que conectam o domínio a implementações externas.
package ports

import (
	"context"

	"github.com/Supreme070/marketsage-fe-sub019/internal/core/domain"
)

// Limiter decides whether an identifier may proceed under one policy.
// Implementations fail open: a backing-store failure yields an allowed
// Decision with Err set, never a panic or an error return.
type Limiter interface {
	Check(ctx context.Context, identifier string) domain.Decision
	RemainingRequests(ctx context.Context, identifier string) int
}
