// Package auth provides the HTTP middleware that resolves bearer tokens from
// the Authorization header into the authenticated user and places it in the
// request context.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ashmarin/shortlinker/internal/logger"
	"github.com/ashmarin/shortlinker/internal/memstore"
	"github.com/ashmarin/shortlinker/internal/models"
)

type userProvider interface {
	CurrentUser(ctx context.Context, tokenString string) (*memstore.User, error)
}

// ContextKey is a custom type for context values to avoid collisions.
type ContextKey string

// UserKey is the context key under which the authenticated user is stored.
const UserKey ContextKey = "authUser"

// Auth authenticates incoming requests with bearer tokens.
type Auth struct {
	users userProvider
}

// New creates an Auth middleware backed by the given user provider.
func New(users userProvider) *Auth {
	return &Auth{users: users}
}

// RequireUser rejects requests without a valid bearer token with 401 and
// otherwise stores the authenticated user in the request context.
func (a *Auth) RequireUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		usr, err := a.users.CurrentUser(request.Context(), bearerToken(request))
		if err != nil {
			response.Header().Set("WWW-Authenticate", "Bearer")
			response.Header().Set("Content-Type", "application/json")
			response.WriteHeader(http.StatusUnauthorized)
			if err := json.NewEncoder(response).Encode(models.Detailed{
				Detail: models.ErrUnauthenticated.Error(),
			}); err != nil {
				logger.Log.Debugw("writing unauthorized response", "error", err)
			}

			return
		}

		ctx := context.WithValue(request.Context(), UserKey, usr)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// UserFromContext returns the authenticated user placed by RequireUser.
func UserFromContext(ctx context.Context) (*memstore.User, bool) {
	usr, ok := ctx.Value(UserKey).(*memstore.User)

	return usr, ok
}

func bearerToken(request *http.Request) string {
	header := request.Header.Get("Authorization")

	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}

	return header[len(prefix):]
}
