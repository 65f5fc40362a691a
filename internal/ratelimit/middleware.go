package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/noah-isme/pos-pricing/internal/common"
)

// Rate is the number of events allowed per window.
type Rate struct {
	Window time.Duration
	Max    int
}

// unlimited reports whether the rate disables limiting.
func (r Rate) unlimited() bool { return r.Max <= 0 || r.Window <= 0 }

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

func allowAll(rate Rate) Decision {
	return Decision{Allowed: true, Remaining: rate.Max, Reset: time.Now().Add(rate.Window)}
}

// Limiter counts an event for key against rate.
type Limiter interface {
	Allow(ctx context.Context, key string, rate Rate) (Decision, error)
}

// Handler throttles the quote routes. Limiter failures let the request through.
type Handler struct {
	Limiter Limiter
	Rate    Rate
	Key     func(*http.Request) string
	OnError func(error)
}

// Middleware sets the X-RateLimit-* headers and answers 429 once the key is exhausted.
func (h Handler) Middleware(next http.Handler) http.Handler {
	if h.Limiter == nil || h.Key == nil || h.Rate.unlimited() {
		return next
	}
	limit := strconv.Itoa(h.Rate.Max)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, err := h.Limiter.Allow(r.Context(), h.Key(r), h.Rate)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", limit)
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
		if d.Allowed {
			next.ServeHTTP(w, r)
			return
		}
		wait := time.Until(d.Reset)
		if wait < 0 {
			wait = 0
		}
		headers.Set("Retry-After", strconv.Itoa(int(wait.Round(time.Second).Seconds())))
		common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded", nil)
	})
}

// ByClientIP keys requests by the caller's address.
func ByClientIP(prefix string) func(*http.Request) string {
	return func(r *http.Request) string {
		return prefix + common.ClientIP(r)
	}
}
