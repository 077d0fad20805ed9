package guard

import (
	"log/slog"
	"net/http"

	"hatch/pkg/requestcontext"
)

// NotBanned refuses requests from addresses on the ban list.
//
// When the ban list cannot be read the guard lets the request through unless
// it was built WithFailClosed.
type NotBanned struct {
	bans       BanChecker
	logger     *slog.Logger
	failClosed bool
}

type NotBannedOption func(*NotBanned)

// WithFailClosed treats ban lookup errors as banned.
func WithFailClosed(failClosed bool) NotBannedOption {
	return func(g *NotBanned) {
		g.failClosed = failClosed
	}
}

func NewNotBanned(bans BanChecker, logger *slog.Logger, opts ...NotBannedOption) *NotBanned {
	g := &NotBanned{bans: bans, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *NotBanned) Name() string { return "not_banned" }

func (g *NotBanned) Check(r *http.Request) Outcome {
	ctx := r.Context()
	ip := requestcontext.ClientIP(ctx)
	if ip == "" || ip == "unknown" {
		return Forwarded(http.StatusBadRequest, "client address unavailable")
	}

	banned, err := g.bans.IsIPBanned(ctx, ip)
	if err != nil {
		g.logger.WarnContext(ctx, "ban lookup failed",
			"error", err,
			"fail_closed", g.failClosed,
			"request_id", requestcontext.RequestID(ctx),
		)
		if g.failClosed {
			return Rejected(http.StatusForbidden, "this address is banned")
		}
		return Allowed()
	}
	if banned {
		return Rejected(http.StatusForbidden, "this address is banned")
	}
	return Allowed()
}
