package guard

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks TokenStore,VerificationChecker,BanChecker,UsernameResolver,Limiter

import (
	"context"
	"time"

	"hatch/internal/credentials"
	"hatch/pkg/domain"
)

type TokenStore interface {
	LookupToken(ctx context.Context, token string) (credentials.AuthToken, error)
	DeleteToken(ctx context.Context, token string) error
}

type VerificationChecker interface {
	IsVerified(ctx context.Context, id domain.UserID) (bool, error)
}

type BanChecker interface {
	IsIPBanned(ctx context.Context, ip string) (bool, error)
}

type UsernameResolver interface {
	ResolveUsername(ctx context.Context, id domain.UserID) (string, error)
}

// Limiter records one hit against key and reports whether it fits the quota.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*RateLimitResult, error)
}
