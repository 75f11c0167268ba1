package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/transport/http/api"
)

type RateLimitKeyFunc func(r *http.Request) string

type RateLimitOption func(*rateLimiter)

type rateEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one token bucket per key. Idle buckets are swept lazily.
type rateLimiter struct {
	mu          sync.Mutex
	perMinute   int
	limit       rate.Limit
	burst       int
	keyFn       RateLimitKeyFunc
	entries     map[string]*rateEntry
	entryTTL    time.Duration
	lastCleanup time.Time
	now         func() time.Time
}

func WithKeyFunc(fn RateLimitKeyFunc) RateLimitOption {
	return func(rl *rateLimiter) {
		if fn != nil {
			rl.keyFn = fn
		}
	}
}

func WithBurst(burst int) RateLimitOption {
	return func(rl *rateLimiter) {
		if burst > 0 {
			rl.burst = burst
		}
	}
}

func withClock(now func() time.Time) RateLimitOption {
	return func(rl *rateLimiter) {
		rl.now = now
	}
}

// RateLimit allows perMinute requests per caller with a burst of the same size
// unless WithBurst says otherwise. A non-positive limit disables the middleware.
func RateLimit(perMinute int, opts ...RateLimitOption) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	rl := newRateLimiter(perMinute, actorOrIPKey)
	for _, opt := range opts {
		opt(rl)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.enforce(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SensitiveMutationRateLimit applies a tighter per-actor budget to the bulk
// administrative endpoints: assignment generation, aggregation, ratification,
// seeding and calibration session mutations.
func SensitiveMutationRateLimit(basePerMinute int, opts ...RateLimitOption) func(http.Handler) http.Handler {
	if basePerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	perMinute := max(basePerMinute/4, 1)
	rl := newRateLimiter(perMinute, actorOrIPKey)
	rl.burst = max(perMinute/2, 1)
	for _, opt := range opts {
		opt(rl)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSensitiveMutation(r) && !rl.enforce(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func actorOrIPKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
		return "user:" + user.TenantID + ":" + user.UserID
	}
	return "ip:" + ClientIP(r)
}

func newRateLimiter(perMinute int, keyFn RateLimitKeyFunc) *rateLimiter {
	if keyFn == nil {
		keyFn = actorOrIPKey
	}
	return &rateLimiter{
		perMinute:   perMinute,
		limit:       rate.Every(time.Minute / time.Duration(perMinute)),
		burst:       perMinute,
		keyFn:       keyFn,
		entries:     map[string]*rateEntry{},
		entryTTL:    15 * time.Minute,
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

func (rl *rateLimiter) reserve(key string) (allowed bool, remaining int, retryAfter time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastCleanup) >= rl.entryTTL {
		for k, entry := range rl.entries {
			if now.Sub(entry.lastSeen) > rl.entryTTL {
				delete(rl.entries, k)
			}
		}
		rl.lastCleanup = now
	}

	entry, ok := rl.entries[key]
	if !ok {
		entry = &rateEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.entries[key] = entry
	}
	entry.lastSeen = now

	if entry.limiter.AllowN(now, 1) {
		return true, int(math.Floor(entry.limiter.TokensAt(now))), 0
	}
	missing := 1 - entry.limiter.TokensAt(now)
	wait := time.Duration(missing * float64(time.Second) / float64(rl.limit))
	return false, 0, wait
}

func (rl *rateLimiter) enforce(w http.ResponseWriter, r *http.Request) bool {
	key := rl.keyFn(r)
	if key == "" {
		key = "ip:" + ClientIP(r)
	}
	allowed, remaining, retryAfter := rl.reserve(key)

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.perMinute))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
	if allowed {
		return true
	}

	seconds := max(int(math.Ceil(retryAfter.Seconds())), 1)
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	slog.Warn("rate limit exceeded",
		"key", key,
		"path", r.URL.Path,
		"method", r.Method,
		"perMinute", rl.perMinute,
	)
	api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}

var sensitiveSuffixes = []string{
	"/assignments/generate",
	"/assignments/generate-employee",
	"/aggregate",
	"/ratify",
	"/competencies/seed",
	"/start",
	"/close",
	"/retrigger",
}

func isSensitiveMutation(r *http.Request) bool {
	if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch && r.Method != http.MethodDelete {
		return false
	}
	path := strings.TrimSuffix(normalizedAPIPath(r.URL.Path), "/")
	for _, suffix := range sensitiveSuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

func normalizedAPIPath(path string) string {
	cleaned := strings.TrimPrefix(strings.TrimSpace(path), "/api/v1")
	if cleaned == "" {
		return "/"
	}
	if !strings.HasPrefix(cleaned, "/") {
		return "/" + cleaned
	}
	return cleaned
}
