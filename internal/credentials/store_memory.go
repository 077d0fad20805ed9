package credentials

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"hatch/pkg/domain"
	"hatch/pkg/platform/sentinel"
)

// MemoryStore is the in-process credential store. A single mutex serializes
// every operation.
type MemoryStore struct {
	mu sync.Mutex

	nextUserID    domain.UserID
	nextContentID int64

	users       map[domain.UserID]*User
	byName      map[string]domain.UserID
	ips         map[domain.UserID][]string
	tokens      map[string]AuthToken
	emailTokens map[string]EmailToken
	bans        map[string]struct{}
	projects    map[int64]domain.UserID
	comments    map[int64]int64
	reports     map[string]Report
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[domain.UserID]*User),
		byName:      make(map[string]domain.UserID),
		ips:         make(map[domain.UserID][]string),
		tokens:      make(map[string]AuthToken),
		emailTokens: make(map[string]EmailToken),
		bans:        make(map[string]struct{}),
		projects:    make(map[int64]domain.UserID),
		comments:    make(map[int64]int64),
		reports:     make(map[string]Report),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, u NewUser) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(u.Name)
	if _, taken := s.byName[key]; taken {
		return User{}, fmt.Errorf("username %q: %w", u.Name, sentinel.ErrConflict)
	}
	s.nextUserID++
	user := &User{
		ID:           s.nextUserID,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Email:        u.Email,
		JoinedAt:     u.JoinedAt,
	}
	s.users[user.ID] = user
	s.byName[key] = user.ID
	return *user, nil
}

func (s *MemoryStore) UserByName(_ context.Context, name string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byName[strings.ToLower(name)]
	if !ok {
		return User{}, fmt.Errorf("user %q: %w", name, sentinel.ErrNotFound)
	}
	return *s.users[id], nil
}

func (s *MemoryStore) UserByID(_ context.Context, id domain.UserID) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, fmt.Errorf("user %d: %w", id, sentinel.ErrNotFound)
	}
	return *u, nil
}

func (s *MemoryStore) ResolveUsername(ctx context.Context, id domain.UserID) (string, error) {
	u, err := s.UserByID(ctx, id)
	if err != nil {
		return "", err
	}
	return u.Name, nil
}

func (s *MemoryStore) IsVerified(ctx context.Context, id domain.UserID) (bool, error) {
	u, err := s.UserByID(ctx, id)
	if err != nil {
		return false, err
	}
	return u.Verified, nil
}

func (s *MemoryStore) SetVerified(_ context.Context, id domain.UserID, verified bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %d: %w", id, sentinel.ErrNotFound)
	}
	u.Verified = verified
	return nil
}

func (s *MemoryStore) RecordLoginIP(_ context.Context, id domain.UserID, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return fmt.Errorf("user %d: %w", id, sentinel.ErrNotFound)
	}
	if !slices.Contains(s.ips[id], ip) {
		s.ips[id] = append(s.ips[id], ip)
	}
	return nil
}

// LoginIPs returns the distinct addresses a user has logged in from.
func (s *MemoryStore) LoginIPs(_ context.Context, id domain.UserID) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.ips[id]), nil
}

// DeleteUser removes the user with its tokens and login addresses.
func (s *MemoryStore) DeleteUser(_ context.Context, id domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %d: %w", id, sentinel.ErrNotFound)
	}
	for tok, t := range s.tokens {
		if t.UserID == id {
			delete(s.tokens, tok)
		}
	}
	for tok, t := range s.emailTokens {
		if t.UserID == id {
			delete(s.emailTokens, tok)
		}
	}
	delete(s.byName, strings.ToLower(u.Name))
	delete(s.ips, id)
	delete(s.users, id)
	return nil
}

// IssueToken returns the user's live token, replacing it first when it has
// expired at now.
func (s *MemoryStore) IssueToken(_ context.Context, id domain.UserID, ttl time.Duration, now time.Time) (AuthToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return AuthToken{}, fmt.Errorf("user %d: %w", id, sentinel.ErrNotFound)
	}
	for tok, t := range s.tokens {
		if t.UserID != id {
			continue
		}
		if !t.Expired(now) {
			return t, nil
		}
		delete(s.tokens, tok)
	}

	raw, err := NewToken()
	if err != nil {
		return AuthToken{}, err
	}
	t := AuthToken{UserID: id, Token: raw, ExpiresAt: expiryFromUnix(now.Add(ttl).Unix())}
	s.tokens[raw] = t
	return t, nil
}

func (s *MemoryStore) LookupToken(_ context.Context, token string) (AuthToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[token]
	if !ok {
		return AuthToken{}, sentinel.ErrNotFound
	}
	return t, nil
}

// DeleteToken removes a token. Deleting an absent token is not an error.
func (s *MemoryStore) DeleteToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

// CountTokens returns how many auth tokens are stored for a user.
func (s *MemoryStore) CountTokens(_ context.Context, id domain.UserID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range s.tokens {
		if t.UserID == id {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CreateEmailToken(_ context.Context, id domain.UserID, ttl time.Duration, now time.Time) (EmailToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return EmailToken{}, fmt.Errorf("user %d: %w", id, sentinel.ErrNotFound)
	}
	raw, err := NewToken()
	if err != nil {
		return EmailToken{}, err
	}
	t := EmailToken{UserID: id, Token: raw, ExpiresAt: expiryFromUnix(now.Add(ttl).Unix())}
	s.emailTokens[raw] = t
	return t, nil
}

// TakeEmailToken returns and deletes an email token. The token is removed
// whether or not it has expired.
func (s *MemoryStore) TakeEmailToken(_ context.Context, token string) (EmailToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.emailTokens[token]
	if !ok {
		return EmailToken{}, sentinel.ErrNotFound
	}
	delete(s.emailTokens, token)
	return t, nil
}

func (s *MemoryStore) IsIPBanned(_ context.Context, ip string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, banned := s.bans[ip]
	return banned, nil
}

func (s *MemoryStore) BanIP(_ context.Context, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bans[ip] = struct{}{}
	return nil
}

func (s *MemoryStore) UnbanIP(_ context.Context, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bans, ip)
	return nil
}

// AddProject stores a project owned by author and returns its id.
func (s *MemoryStore) AddProject(_ context.Context, author domain.UserID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextContentID++
	s.projects[s.nextContentID] = author
	return s.nextContentID, nil
}

// AddComment stores a comment on projectID and returns its id.
func (s *MemoryStore) AddComment(_ context.Context, projectID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[projectID]; !ok {
		return 0, fmt.Errorf("project %d: %w", projectID, sentinel.ErrNotFound)
	}
	s.nextContentID++
	s.comments[s.nextContentID] = projectID
	return s.nextContentID, nil
}

func (s *MemoryStore) ProjectExists(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.projects[id]
	return ok, nil
}

func (s *MemoryStore) CommentExists(_ context.Context, projectID, commentID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.comments[commentID]
	return ok && p == projectID, nil
}

// CreateReport stores r, or returns ErrConflict when the resource was
// already reported by anyone.
func (s *MemoryStore) CreateReport(_ context.Context, r Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := r.Location + "/" + r.ResourceID
	if _, dup := s.reports[key]; dup {
		return fmt.Errorf("report %s: %w", key, sentinel.ErrConflict)
	}
	s.reports[key] = r
	return nil
}
