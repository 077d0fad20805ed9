package guard

import (
	"log/slog"
	"net/http"

	"hatch/pkg/requestcontext"
)

// Moderator allows verified users whose username is on the moderator list.
type Moderator struct {
	verified *TokenVerified
	users    UsernameResolver
	mods     map[string]struct{}
	logger   *slog.Logger
}

func NewModerator(verified *TokenVerified, users UsernameResolver, mods []string, logger *slog.Logger) *Moderator {
	set := make(map[string]struct{}, len(mods))
	for _, m := range mods {
		set[m] = struct{}{}
	}
	return &Moderator{verified: verified, users: users, mods: set, logger: logger}
}

func (g *Moderator) Name() string { return "moderator" }

func (g *Moderator) Check(r *http.Request) Outcome {
	out := g.verified.Check(r)
	if out.Decision != Allow {
		return out
	}
	p := *out.Principal

	ctx := r.Context()
	name, err := g.users.ResolveUsername(ctx, p.UserID)
	if err != nil {
		g.logger.ErrorContext(ctx, "username lookup failed",
			"error", err,
			"user_id", p.UserID,
			"request_id", requestcontext.RequestID(ctx),
		)
		return unavailable("username lookup failed")
	}
	if _, ok := g.mods[name]; !ok {
		return Rejected(http.StatusForbidden, "moderators only")
	}

	p.Username = name
	return AllowedAs(p)
}
