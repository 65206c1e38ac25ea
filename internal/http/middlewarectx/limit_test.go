package middlewarectx

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIPRateLimiter_PerClient(t *testing.T) {
	l := NewIPRateLimiter(1, 2)
	now := time.Now()
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))

	// другой клиент не затронут
	assert.True(t, l.Allow("10.0.0.2"))

	now = now.Add(time.Second)
	assert.True(t, l.Allow("10.0.0.1"))
}

func TestIPRateLimiter_SweepsIdleVisitors(t *testing.T) {
	l := NewIPRateLimiter(1, 1)
	now := time.Now()
	l.now = func() time.Time { return now }

	l.Allow("10.0.0.1")
	now = now.Add(visitorIdle + sweepInterval + time.Second)
	l.Allow("10.0.0.2")

	assert.Len(t, l.visitors, 1)
	assert.Contains(t, l.visitors, "10.0.0.2")
}

func TestRateLimitMiddleware(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	limiter := NewIPRateLimiter(0.001, 1)
	h := RateLimitMiddleware(log, limiter)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(remote string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("192.0.2.1:1234"))
	assert.Equal(t, http.StatusTooManyRequests, send("192.0.2.1:5678"))
	assert.Equal(t, http.StatusOK, send("192.0.2.2:1234"))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.5:443"
	assert.Equal(t, "203.0.113.5", clientIP(req))

	req.RemoteAddr = "203.0.113.5"
	assert.Equal(t, "203.0.113.5", clientIP(req))
}
