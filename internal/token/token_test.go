package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSigningKey = []byte("test-token-signing-key-0000000001")

func TestNewValidatesArguments(t *testing.T) {
	_, err := New(nil, 30*time.Minute)
	assert.Error(t, err)

	_, err = New(testSigningKey, 0)
	assert.Error(t, err)

	service, err := New(testSigningKey, 30*time.Minute)
	require.NoError(t, err)
	require.NotNil(t, service)
}

func TestIssueAndParse(t *testing.T) {
	service, err := New(testSigningKey, 30*time.Minute)
	require.NoError(t, err)

	tokenString, err := service.Issue("alice")
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	username, ok := service.Parse(tokenString)
	assert.True(t, ok)
	assert.Equal(t, "alice", username)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	service, err := New(testSigningKey, 30*time.Minute)
	require.NoError(t, err)

	claims := jwt.RegisteredClaims{
		Subject:   "alice",
		IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-30 * time.Minute)),
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSigningKey)
	require.NoError(t, err)

	_, ok := service.Parse(expired)
	assert.False(t, ok)
}

func TestParseRejectsTamperedToken(t *testing.T) {
	service, err := New(testSigningKey, 30*time.Minute)
	require.NoError(t, err)

	tokenString, err := service.Issue("alice")
	require.NoError(t, err)

	tampered := tokenString[:len(tokenString)-2] + "xx"
	_, ok := service.Parse(tampered)
	assert.False(t, ok)
}

func TestParseRejectsForeignKeyAndGarbage(t *testing.T) {
	service, err := New(testSigningKey, 30*time.Minute)
	require.NoError(t, err)

	foreign, err := New([]byte("another-signing-key-000000000002"), 30*time.Minute)
	require.NoError(t, err)

	tokenString, err := foreign.Issue("alice")
	require.NoError(t, err)

	_, ok := service.Parse(tokenString)
	assert.False(t, ok)

	for _, garbage := range []string{"", "not.a.jwt", "a.b"} {
		_, ok := service.Parse(garbage)
		assert.False(t, ok, "garbage token %q must not yield an identity", garbage)
	}
}

func TestParseRejectsUnsignedToken(t *testing.T) {
	service, err := New(testSigningKey, 30*time.Minute)
	require.NoError(t, err)

	claims := jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(30 * time.Minute)),
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, ok := service.Parse(unsigned)
	assert.False(t, ok)
}
