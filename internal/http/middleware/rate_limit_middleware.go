package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/storelane/auth-engine/internal/http/response"
	"github.com/storelane/auth-engine/internal/observability"
)

type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// Limiter decides whether a keyed request fits inside a fixed window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

// FailureMode controls behavior when the limiter backend is unreachable.
// Auth endpoints fail closed; general API traffic fails open.
type FailureMode string

const (
	FailOpen   FailureMode = "fail_open"
	FailClosed FailureMode = "fail_closed"
)

type RateLimiter struct {
	limiter Limiter
	limit   int
	window  time.Duration
	mode    FailureMode
	scope   string
	keyFunc func(r *http.Request) string
}

func NewRateLimiter(limiter Limiter, limit int, window time.Duration, mode FailureMode, scope string) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if scope == "" {
		scope = "api"
	}
	return &RateLimiter{
		limiter: limiter,
		limit:   limit,
		window:  window,
		mode:    mode,
		scope:   scope,
		keyFunc: clientIPKey,
	}
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rl.scope + ":" + rl.keyFunc(r)
			decision, err := rl.limiter.Allow(r.Context(), key, rl.limit, rl.window)
			if err != nil {
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "backend_error", string(rl.mode))
				if rl.mode == FailOpen {
					slog.WarnContext(r.Context(), "rate limiter backend unavailable, allowing request",
						"scope", rl.scope, "error", err.Error())
					next.ServeHTTP(w, r)
					return
				}
				writeRateLimitHeaders(w.Header(), rl.limit, 0, time.Now().Add(rl.window))
				w.Header().Set("Retry-After", retryAfterHeader(rl.window))
				response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
				return
			}
			writeRateLimitHeaders(w.Header(), rl.limit, decision.Remaining, decision.ResetAt)
			if !decision.Allowed {
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "deny", string(rl.mode))
				w.Header().Set("Retry-After", retryAfterHeader(decision.RetryAfter))
				response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
				return
			}
			observability.RecordRateLimitDecision(r.Context(), rl.scope, "allow", string(rl.mode))
			next.ServeHTTP(w, r)
		})
	}
}

type localWindow struct {
	count   int
	resetAt time.Time
}

type localFixedWindowLimiter struct {
	mu    sync.Mutex
	store map[string]*localWindow
}

// NewLocalFixedWindowLimiter keeps counters in process memory. Suitable for
// a single instance; multi-instance deployments use the Redis limiter.
func NewLocalFixedWindowLimiter() Limiter {
	return &localFixedWindowLimiter{store: make(map[string]*localWindow)}
}

func (l *localFixedWindowLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (Decision, error) {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.store[key]
	if !ok || now.After(state.resetAt) {
		// Expired windows for other keys get reclaimed lazily as they recur;
		// staleness is bounded by the window length.
		state = &localWindow{resetAt: now.Add(window)}
		l.store[key] = state
	}
	state.count++
	remaining := limit - state.count
	if remaining < 0 {
		remaining = 0
	}
	if state.count > limit {
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: state.resetAt.Sub(now),
			ResetAt:    state.resetAt,
		}, nil
	}
	return Decision{Allowed: true, Remaining: remaining, ResetAt: state.resetAt}, nil
}

func clientIPKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func retryAfterHeader(d time.Duration) string {
	seconds := int(d.Round(time.Second).Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return fmt.Sprintf("%d", seconds)
}

func writeRateLimitHeaders(h http.Header, limit, remaining int, resetAt time.Time) {
	h.Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
	h.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", max(remaining, 0)))
	h.Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetAt.Unix()))
}
