package accounts

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hatch/internal/credentials"
	"hatch/pkg/platform/sentinel"
)

type fakeObjects struct {
	prefixes []string
	err      error
}

func (f *fakeObjects) RemovePrefix(_ context.Context, prefix string) (int, error) {
	f.prefixes = append(f.prefixes, prefix)
	return 2, f.err
}

func TestPurgeAccount(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("removes objects and rows, then is idempotent", func(t *testing.T) {
		store := credentials.NewMemoryStore()
		u, err := store.CreateUser(ctx, credentials.NewUser{Name: "alice"})
		require.NoError(t, err)
		objects := &fakeObjects{}
		p := NewPurger(store, objects, logger)

		require.NoError(t, p.PurgeAccount(ctx, u.ID))
		_, err = store.UserByID(ctx, u.ID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)

		require.NoError(t, p.PurgeAccount(ctx, u.ID))
		assert.Equal(t, []string{ObjectPrefix(u.ID), ObjectPrefix(u.ID)}, objects.prefixes)
	})

	t.Run("without object storage", func(t *testing.T) {
		store := credentials.NewMemoryStore()
		u, err := store.CreateUser(ctx, credentials.NewUser{Name: "bob"})
		require.NoError(t, err)

		require.NoError(t, NewPurger(store, nil, logger).PurgeAccount(ctx, u.ID))
	})

	t.Run("object failure still deletes rows", func(t *testing.T) {
		store := credentials.NewMemoryStore()
		u, err := store.CreateUser(ctx, credentials.NewUser{Name: "carol"})
		require.NoError(t, err)

		err = NewPurger(store, &fakeObjects{err: errors.New("s3 down")}, logger).PurgeAccount(ctx, u.ID)
		assert.ErrorContains(t, err, "s3 down")

		_, err = store.UserByID(ctx, u.ID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestObjectPrefix(t *testing.T) {
	assert.Equal(t, "users/42/", ObjectPrefix(42))
}
