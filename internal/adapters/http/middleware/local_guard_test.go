package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalGuard_ShedsBurstPerClient(t *testing.T) {
	guard := NewLocalGuard(0.001, 2)

	h := guard.Middleware()(okHandler())

	send := func(addr string) int {
		r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
		r.RemoteAddr = addr
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		return w.Code
	}

	require.Equal(t, http.StatusOK, send("10.0.0.1:1"))
	require.Equal(t, http.StatusOK, send("10.0.0.1:1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:1"))

	// Other clients keep their own bucket.
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1"))
}

func TestLocalGuard_ZeroRateIsPassthrough(t *testing.T) {
	guard := NewLocalGuard(0, 0)

	h := guard.Middleware()(okHandler())

	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestLocalGuard_CleanupPrunesIdleEntries(t *testing.T) {
	guard := NewLocalGuard(1, 1)
	guard.allow("10.0.0.1")
	guard.allow("10.0.0.2")

	guard.mu.Lock()
	guard.entries["10.0.0.1"].lastSeen = time.Now().Add(-time.Hour)
	guard.mu.Unlock()

	guard.cleanup()

	guard.mu.Lock()
	defer guard.mu.Unlock()

	assert.NotContains(t, guard.entries, "10.0.0.1")
	assert.Contains(t, guard.entries, "10.0.0.2")
}
