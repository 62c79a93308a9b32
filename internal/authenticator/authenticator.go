package authenticator

import "net/http"

// Authenticator guards routes that need an authenticated user.
type Authenticator interface {
	RequireUser(h http.Handler) http.Handler
}
