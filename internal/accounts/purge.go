// Package accounts carries out deferred account deletion.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"hatch/pkg/domain"
	"hatch/pkg/platform/sentinel"
)

type UserDeleter interface {
	DeleteUser(ctx context.Context, id domain.UserID) error
}

type ObjectRemover interface {
	RemovePrefix(ctx context.Context, prefix string) (int, error)
}

// Purger removes an account's stored files and rows. Running it again for
// the same account, or for one deleted some other way, is a no-op.
type Purger struct {
	users   UserDeleter
	objects ObjectRemover
	logger  *slog.Logger
}

// NewPurger builds a purger. objects may be nil when object storage is not
// configured.
func NewPurger(users UserDeleter, objects ObjectRemover, logger *slog.Logger) *Purger {
	return &Purger{users: users, objects: objects, logger: logger}
}

// ObjectPrefix is where a user's uploads live in every bucket.
func ObjectPrefix(id domain.UserID) string {
	return fmt.Sprintf("users/%d/", id)
}

func (p *Purger) PurgeAccount(ctx context.Context, id domain.UserID) error {
	batch := uuid.NewString()
	var errs []error

	removed := 0
	if p.objects != nil {
		n, err := p.objects.RemovePrefix(ctx, ObjectPrefix(id))
		removed = n
		if err != nil {
			errs = append(errs, fmt.Errorf("remove objects: %w", err))
		}
	}

	alreadyGone := false
	if err := p.users.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			alreadyGone = true
		} else {
			errs = append(errs, fmt.Errorf("delete user: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("purge account %d: %w", id, err)
	}
	p.logger.InfoContext(ctx, "account purged",
		"user_id", id,
		"objects_removed", removed,
		"already_deleted", alreadyGone,
		"batch_id", batch,
	)
	return nil
}
