// Package service contains the domain logic of the shortener: registration,
// authentication, URL creation, redirect accounting and listing. It composes
// the storage, the password hasher, the token service and the code generator
// behind narrow interfaces so each can be replaced in tests.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/thoas/go-funk"

	"github.com/ashmarin/shortlinker/internal/memstore"
	"github.com/ashmarin/shortlinker/internal/models"
)

// PageSize is the fixed number of URLs per listing page.
const PageSize = 10

type userKeeper interface {
	FindUser(ctx context.Context, username string) (*memstore.User, bool)

	CreateUser(ctx context.Context, usr *memstore.User) error

	CountUserLinks(ctx context.Context, username string) int
}

type urlKeeper interface {
	FindURL(ctx context.Context, short string) (*memstore.URL, bool)

	SaveURL(ctx context.Context, u *memstore.URL) error

	AppendRedirect(ctx context.Context, short string, at time.Time) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	userKeeper
	urlKeeper
	pinger
}

type codeGenerator interface {
	Generate(ctx context.Context) (string, error)
}

type passwordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) bool
}

type tokenIssuer interface {
	Issue(username string) (string, error)
	Parse(tokenString string) (string, bool)
}

// Service implements the domain operations exposed to the transport layer.
type Service struct {
	db        storage
	codes     codeGenerator
	passwords passwordHasher
	tokens    tokenIssuer
	now       func() time.Time
}

// New creates a Service on top of the given collaborators.
func New(
	db storage,
	codes codeGenerator,
	passwords passwordHasher,
	tokens tokenIssuer,
) *Service {
	return &Service{
		db:        db,
		codes:     codes,
		passwords: passwords,
		tokens:    tokens,
		now:       time.Now,
	}
}

// IsUsernameAvailable reports whether no user exists under the normalized name.
func (s *Service) IsUsernameAvailable(ctx context.Context, username string) bool {
	_, found := s.db.FindUser(ctx, username)

	return !found
}

// RegisterUser hashes the password and stores a new user with an empty links
// set. The username is stored lower-cased. Returns ErrUsernameTaken when the
// normalized name is occupied.
func (s *Service) RegisterUser(
	ctx context.Context,
	username,
	password,
	fullName string,
) (*memstore.User, error) {
	// Fast path only; the store re-checks under its write lock, so a
	// concurrent registration for the same name loses there.
	if !s.IsUsernameAvailable(ctx, username) {
		return nil, fmt.Errorf("%w: %q", models.ErrUsernameTaken, username)
	}

	// Hashing is CPU-bound and deliberately happens before touching the store.
	passwordHash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	usr := &memstore.User{
		Username:     strings.ToLower(username),
		PasswordHash: passwordHash,
		FullName:     fullName,
		Links:        map[string]struct{}{},
	}
	if err := s.db.CreateUser(ctx, usr); err != nil {
		if errors.Is(err, models.ErrUsernameTaken) {
			return nil, err
		}

		return nil, fmt.Errorf("saving user: %w", err)
	}

	return usr, nil
}

// Authenticate returns the user iff one exists under the normalized username
// and the password verifies against its stored hash.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*memstore.User, bool) {
	usr, found := s.db.FindUser(ctx, username)
	if !found {
		return nil, false
	}
	if !s.passwords.Verify(password, usr.PasswordHash) {
		return nil, false
	}

	return usr, true
}

// Login authenticates the user and issues a bearer token for it.
// Unknown username and wrong password both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	usr, ok := s.Authenticate(ctx, username, password)
	if !ok {
		return "", models.ErrInvalidCredentials
	}

	tokenString, err := s.tokens.Issue(usr.Username)
	if err != nil {
		return "", fmt.Errorf("issuing token: %w", err)
	}

	return tokenString, nil
}

// CurrentUser resolves a bearer token into the user it names. A token that
// does not parse, has expired, or references a vanished user yields
// ErrUnauthenticated.
func (s *Service) CurrentUser(ctx context.Context, tokenString string) (*memstore.User, error) {
	username, ok := s.tokens.Parse(tokenString)
	if !ok {
		return nil, models.ErrUnauthenticated
	}

	usr, found := s.db.FindUser(ctx, username)
	if !found {
		return nil, models.ErrUnauthenticated
	}

	return usr, nil
}

// Shorten stores a new URL under a freshly generated code. It is not
// idempotent: the same URL shortened twice gets two distinct codes.
func (s *Service) Shorten(ctx context.Context, rawURL, owner string) (*memstore.URL, error) {
	short, err := s.codes.Generate(ctx)
	if err != nil {
		return nil, fmt.Errorf("generating short code: %w", err)
	}

	u := &memstore.URL{
		URL:       rawURL,
		Short:     short,
		Owner:     owner,
		CreatedAt: s.now(),
		Redirects: []time.Time{},
	}
	if err := s.db.SaveURL(ctx, u); err != nil {
		return nil, fmt.Errorf("saving URL: %w", err)
	}

	return u, nil
}

// RedirectTarget looks a URL up by short code without recording anything.
func (s *Service) RedirectTarget(ctx context.Context, short string) (*memstore.URL, bool) {
	return s.db.FindURL(ctx, short)
}

// RecordRedirect appends the current time to the URL's redirect log.
// The URL vanishing between lookup and record is an invariant violation,
// reported as internal by the store.
func (s *Service) RecordRedirect(ctx context.Context, short string) error {
	return s.db.AppendRedirect(ctx, short, s.now())
}

// ListOwnedURLs returns one 10-item page of the owner's URLs, newest first.
// Dangling link references are dropped defensively. Pages past the end are
// empty, never an error.
func (s *Service) ListOwnedURLs(ctx context.Context, owner string, page int) ([]*memstore.URL, error) {
	if page < 1 {
		page = 1
	}

	usr, found := s.db.FindUser(ctx, owner)
	if !found {
		return nil, fmt.Errorf("%w: listing URLs of unknown user %q", models.ErrInternal, owner)
	}

	shorts := funk.Keys(usr.Links).([]string)
	urls := make([]*memstore.URL, 0, len(shorts))
	for _, short := range shorts {
		u, found := s.db.FindURL(ctx, short)
		if !found {
			continue
		}
		urls = append(urls, u)
	}

	sort.Slice(urls, func(i, j int) bool {
		return urls[i].CreatedAt.After(urls[j].CreatedAt)
	})

	from := (page - 1) * PageSize
	if from >= len(urls) {
		return []*memstore.URL{}, nil
	}
	to := from + PageSize
	if to > len(urls) {
		to = len(urls)
	}

	return urls[from:to], nil
}

// CountOwnedURLs returns the owner's total link count, used by the transport
// layer to compute pagination links.
func (s *Service) CountOwnedURLs(ctx context.Context, owner string) int {
	return s.db.CountUserLinks(ctx, owner)
}

// ListRedirects returns the URL's redirect timestamps ascending. A missing
// code and a code owned by someone else both yield ErrNotFound, so callers
// cannot tell foreign codes from absent ones.
func (s *Service) ListRedirects(ctx context.Context, short, requester string) ([]time.Time, error) {
	u, found := s.db.FindURL(ctx, short)
	if !found {
		return nil, models.ErrNotFound
	}
	if !strings.EqualFold(u.Owner, requester) {
		return nil, models.ErrNotFound
	}

	return u.Redirects, nil
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
