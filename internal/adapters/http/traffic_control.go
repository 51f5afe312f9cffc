package httpadapter

import (
	"net/http"
	"strconv"
	"time"
)

// rateLimitMiddleware sheds load with a shared token bucket. The /metrics
// endpoint stays reachable so scrapes survive client floods.
func (rt *Router) rateLimitMiddleware(next http.Handler) http.Handler {
	if rt.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		if !rt.limiter.Allow() {
			retryAfter := time.Second
			if delay := rt.limiter.Reserve(); delay.OK() {
				retryAfter = delay.Delay()
				delay.Cancel()
			}
			seconds := int(retryAfter.Seconds())
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
