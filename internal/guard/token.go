package guard

import (
	"errors"
	"log/slog"
	"net/http"

	"hatch/pkg/domain"
	"hatch/pkg/platform/sentinel"
	"hatch/pkg/requestcontext"
)

// TokenHeader carries the caller's auth token.
const TokenHeader = "Token"

// Token authenticates the caller from TokenHeader.
//
// Expiry is checked lazily: a token read after its deadline is deleted on
// that read and the request proceeds unauthenticated. Nothing sweeps expired
// tokens, so a token nobody presents again stays stored indefinitely, and a
// stale token is honored by no request after its deadline.
type Token struct {
	tokens TokenStore
	logger *slog.Logger
}

func NewToken(tokens TokenStore, logger *slog.Logger) *Token {
	return &Token{tokens: tokens, logger: logger}
}

func (g *Token) Name() string { return "token" }

func (g *Token) Check(r *http.Request) Outcome {
	ctx := r.Context()
	raw := r.Header.Get(TokenHeader)
	if raw == "" {
		return Forwarded(http.StatusUnauthorized, "missing token")
	}

	t, err := g.tokens.LookupToken(ctx, raw)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Forwarded(http.StatusUnauthorized, "invalid token")
	}
	if err != nil {
		g.logger.ErrorContext(ctx, "token lookup failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return unavailable("token lookup failed")
	}

	if t.Expired(requestcontext.Now(ctx)) {
		if err := g.tokens.DeleteToken(ctx, raw); err != nil {
			g.logger.WarnContext(ctx, "failed to delete expired token",
				"error", err,
				"user_id", t.UserID,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return Forwarded(http.StatusUnauthorized, "token expired")
	}

	return AllowedAs(domain.Principal{UserID: t.UserID, RawToken: raw})
}

// TokenVerified is Token plus the account's email-verified flag.
type TokenVerified struct {
	token  *Token
	users  VerificationChecker
	logger *slog.Logger
}

func NewTokenVerified(token *Token, users VerificationChecker, logger *slog.Logger) *TokenVerified {
	return &TokenVerified{token: token, users: users, logger: logger}
}

func (g *TokenVerified) Name() string { return "token_verified" }

func (g *TokenVerified) Check(r *http.Request) Outcome {
	out := g.token.Check(r)
	if out.Decision != Allow {
		return out
	}
	p := *out.Principal

	ctx := r.Context()
	verified, err := g.users.IsVerified(ctx, p.UserID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Forwarded(http.StatusUnauthorized, "invalid token")
	}
	if err != nil {
		g.logger.ErrorContext(ctx, "verification lookup failed",
			"error", err,
			"user_id", p.UserID,
			"request_id", requestcontext.RequestID(ctx),
		)
		return unavailable("verification lookup failed")
	}
	if !verified {
		return Forwarded(http.StatusUnauthorized, "email not verified")
	}

	p.Verified = true
	return AllowedAs(p)
}
