package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisstorage "github.com/Supreme070/marketsage-fe-sub019/internal/adapters/storage/redis"
)

type fakePool struct {
	reachable bool
	stats     redisstorage.PoolStats
}

func (f *fakePool) Ping(context.Context) bool     { return f.reachable }
func (f *fakePool) Stats() redisstorage.PoolStats { return f.stats }

func TestHealthHandler_ReportsOKWhenStoreReachable(t *testing.T) {
	h := NewHealthHandler(&fakePool{
		reachable: true,
		stats:     redisstorage.PoolStats{State: "connected"},
	})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestHealthHandler_DegradesOnStoreOutage(t *testing.T) {
	h := NewHealthHandler(&fakePool{
		reachable: false,
		stats:     redisstorage.PoolStats{State: "disconnected", Attempts: 3, LastError: "connection refused"},
	})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	// Outage degrades the report, the endpoint itself stays 200.
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])

	pool, ok := resp["pool"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "disconnected", pool["State"])
}
