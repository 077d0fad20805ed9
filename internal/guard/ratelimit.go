package guard

import (
	"log/slog"
	"net/http"
	"time"

	"hatch/pkg/requestcontext"
)

// RateLimit enforces a fixed quota per route name and client address.
// Limiter errors let the request through.
type RateLimit struct {
	route   string
	limit   int
	window  time.Duration
	limiter Limiter
	logger  *slog.Logger
}

func NewRateLimit(route string, limit int, window time.Duration, limiter Limiter, logger *slog.Logger) *RateLimit {
	return &RateLimit{route: route, limit: limit, window: window, limiter: limiter, logger: logger}
}

// PerSecond is shorthand for a quota of n requests per second.
func PerSecond(route string, n int, limiter Limiter, logger *slog.Logger) *RateLimit {
	return NewRateLimit(route, n, time.Second, limiter, logger)
}

func (g *RateLimit) Name() string { return "rate_limit" }

func (g *RateLimit) Check(r *http.Request) Outcome {
	ctx := r.Context()
	key := "rl:" + g.route + ":" + requestcontext.ClientIP(ctx)

	result, err := g.limiter.Allow(ctx, key, g.limit, g.window)
	if err != nil {
		g.logger.ErrorContext(ctx, "failed to check rate limit",
			"error", err,
			"route", g.route,
			"request_id", requestcontext.RequestID(ctx),
		)
		return Allowed()
	}
	if result.Allowed {
		return Allowed()
	}

	out := Rejected(http.StatusTooManyRequests, "rate limit exceeded")
	out.RetryAfter = result.ResetAt.Sub(requestcontext.Now(ctx))
	if out.RetryAfter < time.Second {
		out.RetryAfter = time.Second
	}
	return out
}
