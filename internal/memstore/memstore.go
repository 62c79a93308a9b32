// Package memstore implements the in-memory storage backend holding users
// and shortened URLs. Usernames are keyed case-insensitively; the store is
// the single shared mutable resource, so every mutation goes through one
// mutex and callers only ever receive copies of the stored records.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ashmarin/shortlinker/internal/models"
)

// User is a stored user record.
// Links is the set of short codes owned by the user.
type User struct {
	Username     string
	PasswordHash string
	FullName     string
	Links        map[string]struct{}
}

// URL is a stored shortened URL record.
// Redirects is kept sorted ascending after every mutation.
type URL struct {
	URL       string
	Short     string
	Owner     string
	CreatedAt time.Time
	Redirects []time.Time
}

// MemStore keeps users and URLs in maps guarded by a single RWMutex.
type MemStore struct {
	mu    sync.RWMutex
	users map[string]*User
	urls  map[string]*URL
}

// New returns an empty MemStore.
func New() *MemStore {
	return &MemStore{
		users: map[string]*User{},
		urls:  map[string]*URL{},
	}
}

// userKey normalizes a username for storage and lookup. Keeping the
// lower-casing here means no call site can forget it.
func userKey(username string) string {
	return strings.ToLower(username)
}

// FindUser looks a user up by username, case-insensitively.
func (s *MemStore) FindUser(ctx context.Context, username string) (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	usr, found := s.users[userKey(username)]
	if !found {
		return nil, false
	}

	return cloneUser(usr), true
}

// CreateUser inserts a user under its normalized username. The occupancy
// check happens under the write lock, so two concurrent creates for the same
// name cannot both succeed; the loser gets ErrUsernameTaken.
func (s *MemStore) CreateUser(ctx context.Context, usr *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := userKey(usr.Username)
	if _, taken := s.users[key]; taken {
		return fmt.Errorf("%w: %q", models.ErrUsernameTaken, usr.Username)
	}
	s.users[key] = cloneUser(usr)

	return nil
}

// SaveURL stores a URL record, links its short code into the owner's set and
// keeps the redirect log sorted. A missing owner is an invariant violation
// caused by a logic bug upstream, not bad input.
func (s *MemStore) SaveURL(ctx context.Context, u *URL) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, found := s.users[userKey(u.Owner)]
	if !found {
		return fmt.Errorf("%w: URL %q references unknown owner %q", models.ErrInternal, u.Short, u.Owner)
	}

	stored := cloneURL(u)
	sortRedirects(stored.Redirects)

	owner.Links[stored.Short] = struct{}{}
	s.urls[stored.Short] = stored

	return nil
}

// FindURL looks a URL up by its short code.
func (s *MemStore) FindURL(ctx context.Context, short string) (*URL, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, found := s.urls[short]
	if !found {
		return nil, false
	}

	return cloneURL(u), true
}

// IsShortTaken reports whether a short code is already in use.
func (s *MemStore) IsShortTaken(ctx context.Context, short string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, taken := s.urls[short]

	return taken
}

// AppendRedirect records a redirect timestamp on the stored record itself,
// so two concurrent redirects on the same code are both kept.
func (s *MemStore) AppendRedirect(ctx context.Context, short string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, found := s.urls[short]
	if !found {
		return fmt.Errorf("%w: redirect recorded for unknown short code %q", models.ErrInternal, short)
	}

	u.Redirects = append(u.Redirects, at)
	sortRedirects(u.Redirects)

	return nil
}

// CountUserLinks returns the number of short codes owned by the user.
func (s *MemStore) CountUserLinks(ctx context.Context, username string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	usr, found := s.users[userKey(username)]
	if !found {
		return 0
	}

	return len(usr.Links)
}

// Ping reports storage health. The in-memory backend is always healthy.
func (s *MemStore) Ping(ctx context.Context) error {
	return nil
}

// Close releases storage resources. Nothing persists, so there is nothing to do.
func (s *MemStore) Close() error {
	return nil
}

func sortRedirects(redirects []time.Time) {
	sort.Slice(redirects, func(i, j int) bool {
		return redirects[i].Before(redirects[j])
	})
}

func cloneUser(usr *User) *User {
	links := make(map[string]struct{}, len(usr.Links))
	for short := range usr.Links {
		links[short] = struct{}{}
	}

	return &User{
		Username:     usr.Username,
		PasswordHash: usr.PasswordHash,
		FullName:     usr.FullName,
		Links:        links,
	}
}

func cloneURL(u *URL) *URL {
	redirects := make([]time.Time, len(u.Redirects))
	copy(redirects, u.Redirects)

	return &URL{
		URL:       u.URL,
		Short:     u.Short,
		Owner:     u.Owner,
		CreatedAt: u.CreatedAt,
		Redirects: redirects,
	}
}
