// Package ratelimit provides a fixed-window per-user request limiter backed
// by Redis.
package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/atelier-ai/atelier/internal/setup/config"
	"github.com/redis/rueidis"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// window is the fixed limiting window.
const window = time.Minute

// Middleware counts requests per caller per window in Redis. Limiter outages
// fail open; a slow Redis must not take the API down with it.
type Middleware struct {
	client rueidis.Client
	limit  int
	logger *zap.Logger
}

// New creates a rate limiting middleware.
func New(client rueidis.Client, cfg *config.RateLimit, logger *zap.Logger) *Middleware {
	return &Middleware{
		client: client,
		limit:  cfg.RequestsPerMinute,
		logger: logger.Named("ratelimit"),
	}
}

// AsRESTMiddleware wraps a bunrouter handler with the limiter.
func (m *Middleware) AsRESTMiddleware(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		key := fmt.Sprintf("rl:%s:%d", callerKey(req.Request), time.Now().Unix()/int64(window.Seconds()))
		ctx := req.Context()

		count, err := m.client.Do(ctx, m.client.B().Incr().Key(key).Build()).AsInt64()
		if err != nil {
			m.logger.Warn("Rate limiter unavailable, failing open", zap.Error(err))

			return next(w, req)
		}

		if count == 1 {
			if err := m.client.Do(ctx, m.client.B().Expire().Key(key).Seconds(int64(window.Seconds())).Build()).Error(); err != nil {
				m.logger.Warn("Failed to expire rate limit key", zap.Error(err))
			}
		}

		if count > int64(m.limit) {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)

			return nil
		}

		return next(w, req)
	}
}

// callerKey prefers the authenticated user, falling back to the client IP.
func callerKey(req *http.Request) string {
	if userID := req.Header.Get("X-User-ID"); userID != "" {
		return userID
	}

	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}

	return host
}
