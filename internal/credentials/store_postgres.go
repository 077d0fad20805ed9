package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"hatch/pkg/domain"
	"hatch/pkg/platform/sentinel"
	"hatch/pkg/platform/tx"
)

const pgUniqueViolation = "23505"

// PostgresStore persists credentials in PostgreSQL. All statements run under
// one mutex on a single-connection pool, so store access is serialized
// process-wide and the lock is never held across other I/O.
type PostgresStore struct {
	mu sync.Mutex
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (s *PostgresStore) CreateUser(ctx context.Context, u NewUser) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := User{Name: u.Name, PasswordHash: u.PasswordHash, Email: u.Email, JoinedAt: u.JoinedAt}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (name, pw, email, join_date) VALUES ($1, $2, $3, $4) RETURNING id`,
		u.Name, u.PasswordHash, u.Email, u.JoinedAt,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, fmt.Errorf("username %q: %w", u.Name, sentinel.ErrConflict)
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

const userColumns = `id, name, pw, email, verified, join_date`

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.PasswordHash, &u.Email, &u.Verified, &u.JoinedAt)
	return u, err
}

func (s *PostgresStore) UserByName(ctx context.Context, name string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(name) = lower($1)`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("user %q: %w", name, sentinel.ErrNotFound)
	}
	if err != nil {
		return User{}, fmt.Errorf("select user by name: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) UserByID(ctx context.Context, id domain.UserID) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("user %d: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return User{}, fmt.Errorf("select user by id: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) ResolveUsername(ctx context.Context, id domain.UserID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM users WHERE id = $1`, id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("user %d: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("resolve username: %w", err)
	}
	return name, nil
}

func (s *PostgresStore) IsVerified(ctx context.Context, id domain.UserID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var verified bool
	err := s.db.QueryRowContext(ctx, `SELECT verified FROM users WHERE id = $1`, id).Scan(&verified)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("user %d: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("select verified: %w", err)
	}
	return verified, nil
}

func (s *PostgresStore) SetVerified(ctx context.Context, id domain.UserID, verified bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE users SET verified = $2 WHERE id = $1`, id, verified)
	if err != nil {
		return fmt.Errorf("update verified: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("user %d", id))
}

func (s *PostgresStore) RecordLoginIP(ctx context.Context, id domain.UserID, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_ips (user_id, address) VALUES ($1, $2) ON CONFLICT DO NOTHING`, id, ip)
	if err != nil {
		return fmt.Errorf("record login ip: %w", err)
	}
	return nil
}

// DeleteUser removes the user; tokens and login addresses cascade.
func (s *PostgresStore) DeleteUser(ctx context.Context, id domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("user %d", id))
}

// IssueToken returns the user's live token, replacing it first when it has
// expired at now. The unique user_id column backs the one-token-per-user rule.
func (s *PostgresStore) IssueToken(ctx context.Context, id domain.UserID, ttl time.Duration, now time.Time) (AuthToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var issued AuthToken
	err := tx.Run(ctx, s.db, func(t *sql.Tx) error {
		var (
			existing string
			ts       int64
		)
		err := t.QueryRowContext(ctx,
			`SELECT token, expiration_ts FROM auth_tokens WHERE user_id = $1`, id).Scan(&existing, &ts)
		switch {
		case err == nil:
			live := AuthToken{UserID: id, Token: existing, ExpiresAt: expiryFromUnix(ts)}
			if !live.Expired(now) {
				issued = live
				return nil
			}
			if _, err := t.ExecContext(ctx, `DELETE FROM auth_tokens WHERE token = $1`, existing); err != nil {
				return fmt.Errorf("delete expired token: %w", err)
			}
		case errors.Is(err, sql.ErrNoRows):
		default:
			return fmt.Errorf("select token: %w", err)
		}

		raw, err := NewToken()
		if err != nil {
			return err
		}
		expires := now.Add(ttl).Unix()
		if _, err := t.ExecContext(ctx,
			`INSERT INTO auth_tokens (token, user_id, expiration_ts) VALUES ($1, $2, $3)`,
			raw, id, expires); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("token for user %d: %w", id, sentinel.ErrConflict)
			}
			return fmt.Errorf("insert token: %w", err)
		}
		issued = AuthToken{UserID: id, Token: raw, ExpiresAt: expiryFromUnix(expires)}
		return nil
	})
	if err != nil {
		return AuthToken{}, fmt.Errorf("issue token: %w", err)
	}
	return issued, nil
}

func (s *PostgresStore) LookupToken(ctx context.Context, token string) (AuthToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := AuthToken{Token: token}
	var ts int64
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, expiration_ts FROM auth_tokens WHERE token = $1`, token).Scan(&t.UserID, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return AuthToken{}, sentinel.ErrNotFound
	}
	if err != nil {
		return AuthToken{}, fmt.Errorf("lookup token: %w", err)
	}
	t.ExpiresAt = expiryFromUnix(ts)
	return t, nil
}

func (s *PostgresStore) DeleteToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountTokens(ctx context.Context, id domain.UserID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM auth_tokens WHERE user_id = $1`, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tokens: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) CreateEmailToken(ctx context.Context, id domain.UserID, ttl time.Duration, now time.Time) (EmailToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := NewToken()
	if err != nil {
		return EmailToken{}, err
	}
	expires := now.Add(ttl).Unix()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO email_tokens (token, user_id, expiration_ts) VALUES ($1, $2, $3)`,
		raw, id, expires); err != nil {
		return EmailToken{}, fmt.Errorf("insert email token: %w", err)
	}
	return EmailToken{UserID: id, Token: raw, ExpiresAt: expiryFromUnix(expires)}, nil
}

func (s *PostgresStore) TakeEmailToken(ctx context.Context, token string) (EmailToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := EmailToken{Token: token}
	var ts int64
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM email_tokens WHERE token = $1 RETURNING user_id, expiration_ts`, token).Scan(&t.UserID, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return EmailToken{}, sentinel.ErrNotFound
	}
	if err != nil {
		return EmailToken{}, fmt.Errorf("take email token: %w", err)
	}
	t.ExpiresAt = expiryFromUnix(ts)
	return t, nil
}

func (s *PostgresStore) IsIPBanned(ctx context.Context, ip string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var banned bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM ip_bans WHERE address = $1)`, ip).Scan(&banned); err != nil {
		return false, fmt.Errorf("check ip ban: %w", err)
	}
	return banned, nil
}

func (s *PostgresStore) BanIP(ctx context.Context, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO ip_bans (address) VALUES ($1) ON CONFLICT DO NOTHING`, ip); err != nil {
		return fmt.Errorf("ban ip: %w", err)
	}
	return nil
}

func (s *PostgresStore) UnbanIP(ctx context.Context, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM ip_bans WHERE address = $1`, ip); err != nil {
		return fmt.Errorf("unban ip: %w", err)
	}
	return nil
}

func (s *PostgresStore) ProjectExists(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ok bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1)`, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("check project: %w", err)
	}
	return ok, nil
}

func (s *PostgresStore) CommentExists(ctx context.Context, projectID, commentID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ok bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM comments WHERE id = $1 AND project_id = $2)`,
		commentID, projectID).Scan(&ok); err != nil {
		return false, fmt.Errorf("check comment: %w", err)
	}
	return ok, nil
}

func (s *PostgresStore) CreateReport(ctx context.Context, r Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (reporter, location, resource_id, category, reason) VALUES ($1, $2, $3, $4, $5)`,
		r.Reporter, r.Location, r.ResourceID, r.Category, r.Reason)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("report %s/%s: %w", r.Location, r.ResourceID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, sentinel.ErrNotFound)
	}
	return nil
}
