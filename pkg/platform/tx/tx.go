// Package tx runs a unit of store work inside one SQL transaction.
package tx

import (
	"context"
	"database/sql"
	"fmt"
)

// Beginner starts transactions. *sql.DB satisfies it.
type Beginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Run calls fn inside a transaction and commits when fn returns nil. Any
// error from fn rolls the transaction back and is returned unchanged.
func Run(ctx context.Context, db Beginner, fn func(tx *sql.Tx) error) error {
	t, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = t.Rollback() }()

	if err := fn(t); err != nil {
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
