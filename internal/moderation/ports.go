package moderation

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks UsernameResolver,Notifier,Purger

import (
	"context"

	"hatch/internal/webhook"
	"hatch/pkg/domain"
)

type UsernameResolver interface {
	ResolveUsername(ctx context.Context, id domain.UserID) (string, error)
}

// Notifier delivers one message to a chat webhook.
type Notifier interface {
	Send(ctx context.Context, msg webhook.Message) error
}

// Purger removes everything an account owns. It must tolerate accounts that
// are already gone.
type Purger interface {
	PurgeAccount(ctx context.Context, id domain.UserID) error
}
