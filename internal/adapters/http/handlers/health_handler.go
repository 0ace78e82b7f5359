package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	redisstorage "github.com/Supreme070/marketsage-fe-sub019/internal/adapters/storage/redis"
)

// pinger is the pool surface the health endpoint needs.
type pinger interface {
	Ping(ctx context.Context) bool
	Stats() redisstorage.PoolStats
}

type healthResponse struct {
	Status string                 `json:"status"`
	Store  storeHealth            `json:"store"`
	Pool   redisstorage.PoolStats `json:"pool"`
}

type storeHealth struct {
	Reachable bool `json:"reachable"`
}

// NewHealthHandler reports process liveness and backing-store reachability.
// A store outage degrades the report, it does not fail the endpoint: the
// product stays up when the limiter's store is down.
func NewHealthHandler(pool pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}

		if pool != nil {
			resp.Store.Reachable = pool.Ping(r.Context())
			resp.Pool = pool.Stats()

			if !resp.Store.Reachable {
				resp.Status = "degraded"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
