// Package credentials holds user accounts, auth tokens, email verification
// tokens, and the IP ban list.
//
// Token expiry is lazy: an expired auth or email token is deleted when it is
// read, never by a background sweep. An idle expired token therefore stays in
// storage until the next lookup presents it; that lookup is the one that
// removes it.
package credentials

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"hatch/pkg/domain"
)

type User struct {
	ID           domain.UserID
	Name         string
	PasswordHash string
	Email        string
	Verified     bool
	JoinedAt     time.Time
}

type NewUser struct {
	Name         string
	PasswordHash string
	Email        string
	JoinedAt     time.Time
}

// AuthToken is a login token. At most one exists per user.
type AuthToken struct {
	UserID    domain.UserID
	Token     string
	ExpiresAt time.Time
}

// Expired reports whether the token's deadline has passed at now.
func (t AuthToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

type EmailToken struct {
	UserID    domain.UserID
	Token     string
	ExpiresAt time.Time
}

func (t EmailToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Report is a stored content report. At most one report exists per
// (location, resource) pair.
type Report struct {
	Reporter   domain.UserID
	Location   string
	ResourceID string
	Category   int
	Reason     string
}

// NewToken returns a random 128-bit value, hex-encoded.
func NewToken() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}

// expiryFromUnix mirrors the storage precision of expiration timestamps.
func expiryFromUnix(ts int64) time.Time {
	return time.Unix(ts, 0).UTC()
}
