package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/auth"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func noContent() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitUsesUserKeyBeforeIPFallback(t *testing.T) {
	limited := RateLimit(1)(noContent())
	userCtx := WithUser(context.Background(), auth.UserContext{TenantID: "tenant-1", UserID: "user-1"})

	first := httptest.NewRequest(http.MethodPost, "/api/v1/performance/cycles", nil).WithContext(userCtx)
	first.RemoteAddr = "198.51.100.11:2222"
	require.Equal(t, http.StatusNoContent, serve(limited, first).Code)

	second := httptest.NewRequest(http.MethodPost, "/api/v1/performance/cycles", nil).WithContext(userCtx)
	second.RemoteAddr = "198.51.100.12:3333"
	assert.Equal(t, http.StatusTooManyRequests, serve(limited, second).Code, "throttled by user key across addresses")
}

func TestRateLimitFallsBackToIP(t *testing.T) {
	limited := RateLimit(1)(noContent())

	first := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	first.RemoteAddr = "203.0.113.10:4444"
	require.Equal(t, http.StatusNoContent, serve(limited, first).Code)

	second := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	second.RemoteAddr = "203.0.113.10:5555"
	assert.Equal(t, http.StatusTooManyRequests, serve(limited, second).Code)

	other := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	other.RemoteAddr = "203.0.113.11:5555"
	assert.Equal(t, http.StatusNoContent, serve(limited, other).Code)
}

func TestRateLimitRefills(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	limited := RateLimit(60, WithBurst(1), withClock(clock.Now))(noContent())

	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "192.0.2.20:1111"
		return r
	}
	require.Equal(t, http.StatusNoContent, serve(limited, req()).Code)
	require.Equal(t, http.StatusTooManyRequests, serve(limited, req()).Code)

	clock.Advance(time.Second)
	assert.Equal(t, http.StatusNoContent, serve(limited, req()).Code)
}

func TestRateLimitReturnsRetryMetadata(t *testing.T) {
	limited := RateLimit(1)(noContent())

	req1 := httptest.NewRequest(http.MethodGet, "/", nil)
	req1.RemoteAddr = "192.0.2.30:1234"
	serve(limited, req1)

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.RemoteAddr = "192.0.2.30:1234"
	rec := serve(limited, req2)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Contains(t, rec.Body.String(), `"rate_limited"`)
}

func TestRateLimitDisabled(t *testing.T) {
	limited := RateLimit(0)(noContent())
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusNoContent, serve(limited, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
}

func TestSensitiveMutationRateLimitScope(t *testing.T) {
	limited := SensitiveMutationRateLimit(8)(noContent())

	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/performance/cycles/c1/ratings", nil)
		req.RemoteAddr = "198.51.100.40:8888"
		assert.Equal(t, http.StatusNoContent, serve(limited, req).Code, "read request %d bypasses sensitive limits", i+1)
	}

	userCtx := WithUser(context.Background(), auth.UserContext{TenantID: "tenant-1", UserID: "hr-1"})
	// 8/4 = 2 per minute with a burst of 1.
	first := httptest.NewRequest(http.MethodPost, "/api/v1/performance/cycles/c1/assignments/generate", nil).WithContext(userCtx)
	require.Equal(t, http.StatusNoContent, serve(limited, first).Code)
	second := httptest.NewRequest(http.MethodPost, "/api/v1/performance/cycles/c1/ratify", nil).WithContext(userCtx)
	assert.Equal(t, http.StatusTooManyRequests, serve(limited, second).Code)

	plain := httptest.NewRequest(http.MethodPost, "/api/v1/performance/cycles", nil).WithContext(userCtx)
	assert.Equal(t, http.StatusNoContent, serve(limited, plain).Code)
}

func TestIsSensitiveMutation(t *testing.T) {
	assert.True(t, isSensitiveMutation(httptest.NewRequest(http.MethodPost, "/api/v1/calibration/sessions/s1/close", nil)))
	assert.True(t, isSensitiveMutation(httptest.NewRequest(http.MethodPost, "/api/v1/performance/competencies/seed/", nil)))
	assert.False(t, isSensitiveMutation(httptest.NewRequest(http.MethodGet, "/api/v1/calibration/sessions/s1/close", nil)))
	assert.False(t, isSensitiveMutation(httptest.NewRequest(http.MethodPost, "/api/v1/performance/assignments/a1/responses", nil)))
}
