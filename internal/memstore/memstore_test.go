package memstore

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashmarin/shortlinker/internal/models"
)

func newTestUser(username string) *User {
	return &User{
		Username:     username,
		PasswordHash: "$argon2id$...",
		Links:        map[string]struct{}{},
	}
}

func TestFindUserIsCaseInsensitive(t *testing.T) {
	theStore := New()

	err := theStore.CreateUser(context.Background(), newTestUser("Alice"))
	require.NoError(t, err)

	for _, username := range []string{"alice", "Alice", "ALICE"} {
		usr, found := theStore.FindUser(context.Background(), username)
		assert.True(t, found, "lookup by %q should succeed", username)
		assert.Equal(t, "Alice", usr.Username)
	}

	_, found := theStore.FindUser(context.Background(), "bob")
	assert.False(t, found)
}

func TestCreateUserRejectsOccupiedNormalizedKey(t *testing.T) {
	theStore := New()

	first := newTestUser("bob")
	first.FullName = "Bob"
	require.NoError(t, theStore.CreateUser(context.Background(), first))

	second := newTestUser("BOB")
	second.FullName = "Robert"
	err := theStore.CreateUser(context.Background(), second)
	assert.ErrorIs(t, err, models.ErrUsernameTaken)

	usr, found := theStore.FindUser(context.Background(), "bob")
	require.True(t, found)
	assert.Equal(t, "Bob", usr.FullName, "the first record must survive untouched")
}

func TestCreateUserConcurrentDuplicatesAdmitOne(t *testing.T) {
	theStore := New()

	const writers = 50

	var (
		wg        sync.WaitGroup
		successes int64
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := theStore.CreateUser(context.Background(), newTestUser("bob"))
			if err == nil {
				atomic.AddInt64(&successes, 1)
			} else {
				assert.ErrorIs(t, err, models.ErrUsernameTaken)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), successes)
}

func TestSaveURLRequiresExistingOwner(t *testing.T) {
	theStore := New()

	err := theStore.SaveURL(context.Background(), &URL{
		URL:   "https://example.com",
		Short: "abc12345",
		Owner: "ghost",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInternal)
}

func TestSaveURLLinksShortIntoOwnerSet(t *testing.T) {
	theStore := New()
	require.NoError(t, theStore.CreateUser(context.Background(), newTestUser("alice")))

	err := theStore.SaveURL(context.Background(), &URL{
		URL:       "https://example.com",
		Short:     "abc12345",
		Owner:     "alice",
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	usr, found := theStore.FindUser(context.Background(), "alice")
	require.True(t, found)
	assert.Contains(t, usr.Links, "abc12345")
	assert.Equal(t, 1, theStore.CountUserLinks(context.Background(), "ALICE"))

	u, found := theStore.FindURL(context.Background(), "abc12345")
	require.True(t, found)
	assert.Equal(t, "https://example.com", u.URL)
	assert.True(t, theStore.IsShortTaken(context.Background(), "abc12345"))
	assert.False(t, theStore.IsShortTaken(context.Background(), "zzz99999"))
}

func TestSaveURLSortsRedirects(t *testing.T) {
	theStore := New()
	require.NoError(t, theStore.CreateUser(context.Background(), newTestUser("alice")))

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	err := theStore.SaveURL(context.Background(), &URL{
		URL:       "https://example.com",
		Short:     "abc12345",
		Owner:     "alice",
		Redirects: []time.Time{base.Add(2 * time.Minute), base, base.Add(time.Minute)},
	})
	require.NoError(t, err)

	u, found := theStore.FindURL(context.Background(), "abc12345")
	require.True(t, found)
	require.Len(t, u.Redirects, 3)
	assert.Equal(t, base, u.Redirects[0])
	assert.Equal(t, base.Add(time.Minute), u.Redirects[1])
	assert.Equal(t, base.Add(2*time.Minute), u.Redirects[2])
}

func TestAppendRedirect(t *testing.T) {
	theStore := New()
	require.NoError(t, theStore.CreateUser(context.Background(), newTestUser("alice")))
	require.NoError(t, theStore.SaveURL(context.Background(), &URL{
		URL:   "https://example.com",
		Short: "abc12345",
		Owner: "alice",
	}))

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, theStore.AppendRedirect(context.Background(), "abc12345", base.Add(time.Minute)))
	require.NoError(t, theStore.AppendRedirect(context.Background(), "abc12345", base))

	u, found := theStore.FindURL(context.Background(), "abc12345")
	require.True(t, found)
	require.Len(t, u.Redirects, 2)
	assert.Equal(t, base, u.Redirects[0])

	err := theStore.AppendRedirect(context.Background(), "missing", base)
	assert.ErrorIs(t, err, models.ErrInternal)
}

func TestAppendRedirectConcurrentWritersLoseNothing(t *testing.T) {
	theStore := New()
	require.NoError(t, theStore.CreateUser(context.Background(), newTestUser("alice")))
	require.NoError(t, theStore.SaveURL(context.Background(), &URL{
		URL:   "https://example.com",
		Short: "abc12345",
		Owner: "alice",
	}))

	const writers = 50

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := theStore.AppendRedirect(
				context.Background(),
				"abc12345",
				time.Unix(int64(n), 0),
			)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	u, found := theStore.FindURL(context.Background(), "abc12345")
	require.True(t, found)
	require.Len(t, u.Redirects, writers)
	for i := 1; i < len(u.Redirects); i++ {
		assert.False(t, u.Redirects[i].Before(u.Redirects[i-1]), "redirects must stay sorted")
	}
}

func TestCallersReceiveCopies(t *testing.T) {
	theStore := New()
	require.NoError(t, theStore.CreateUser(context.Background(), newTestUser("alice")))
	require.NoError(t, theStore.SaveURL(context.Background(), &URL{
		URL:   "https://example.com",
		Short: "abc12345",
		Owner: "alice",
	}))

	usr, found := theStore.FindUser(context.Background(), "alice")
	require.True(t, found)
	usr.Links["forged"] = struct{}{}

	again, found := theStore.FindUser(context.Background(), "alice")
	require.True(t, found)
	assert.NotContains(t, again.Links, "forged")

	u, found := theStore.FindURL(context.Background(), "abc12345")
	require.True(t, found)
	u.Redirects = append(u.Redirects, time.Now())

	uAgain, found := theStore.FindURL(context.Background(), "abc12345")
	require.True(t, found)
	assert.Empty(t, uAgain.Redirects)
}

func TestPingAndClose(t *testing.T) {
	theStore := New()

	assert.NoError(t, theStore.Ping(context.Background()))
	assert.NoError(t, theStore.Close())
}
