package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/meeplelog/meeplelog/internal/api/response"
	"github.com/meeplelog/meeplelog/internal/repository/redis"
	"github.com/rs/zerolog/log"
)

// RateLimitMiddleware throttles requests using the Redis limiter, keyed
// by the acting player when one is present.
type RateLimitMiddleware struct {
	limiter *redis.RateLimiter
}

// NewRateLimitMiddleware creates a new rate limit middleware
func NewRateLimitMiddleware(limiter *redis.RateLimiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter}
}

// Limit enforces the rate limit
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			allowed   bool
			remaining int
			reset     time.Time
			err       error
		)
		if playerID, ok := GetPlayerID(r.Context()); ok {
			allowed, remaining, reset, err = m.limiter.AllowPlayer(r.Context(), playerID)
		} else {
			allowed, remaining, reset, err = m.limiter.AllowAddr(r.Context(), r.RemoteAddr)
		}
		if err != nil {
			// Fail open: a limiter outage must not take the API down.
			log.Warn().Err(err).Msg("rate limit check failed")
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if !allowed {
			response.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}
