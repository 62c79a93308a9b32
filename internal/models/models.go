// Package models defines the payloads exchanged with the transport layer
// and the error kinds returned by the domain logic.
package models

import (
	"errors"
	"regexp"
	"time"

	validator "github.com/go-playground/validator/v10"
)

// Domain error kinds. Handlers map these to HTTP status codes;
// everything else is treated as an internal failure.
var (
	// ErrUsernameTaken is returned when a registration uses an occupied username.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrInvalidCredentials is returned on login with an unknown username or
	// a wrong password. The two cases are not distinguished.
	ErrInvalidCredentials = errors.New("incorrect username or password")

	// ErrUnauthenticated is returned when a bearer token is missing, invalid,
	// expired, or references a user that no longer exists.
	ErrUnauthenticated = errors.New("could not validate credentials")

	// ErrNotFound is returned for a missing short code. For the redirect
	// history listing it also covers codes owned by another user, so the
	// caller cannot probe for existence of foreign codes.
	ErrNotFound = errors.New("not found")

	// ErrInternal marks invariant violations: a URL referencing a vanished
	// owner, generator exhaustion and the like. These are bugs, not bad input.
	ErrInternal = errors.New("internal error")
)

// RegisterRequest describes the payload used to create a new user.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=20,username"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name,omitempty" validate:"omitempty,max=64"`
}

// UserResponse is the public projection of a user.
// Links carries the number of short codes owned by the user.
type UserResponse struct {
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
	Links    int    `json:"links"`
}

// TokenResponse is the result of a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// ShortenRequest describes the payload used to shorten a URL.
type ShortenRequest struct {
	URL string `json:"url" validate:"required,http_url"`
}

// URLResponse is the public projection of a shortened URL.
// ShortURL is the absolute address built from the configured base;
// Redirects carries the number of recorded redirects.
type URLResponse struct {
	URL       string    `json:"url"`
	Short     string    `json:"short"`
	ShortURL  string    `json:"short_url"`
	Owner     string    `json:"owner"`
	Redirects int       `json:"redirects"`
	CreatedAt time.Time `json:"created_at"`
}

// Detailed is the generic error response body.
type Detailed struct {
	Detail string `json:"detail"`
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

func validateUsername(fieldLevel validator.FieldLevel) bool {
	return usernamePattern.MatchString(fieldLevel.Field().String())
}

// NewValidator returns a validator with the custom rules used by the
// request payload tags registered.
func NewValidator() (*validator.Validate, error) {
	validate := validator.New()

	if err := validate.RegisterValidation("username", validateUsername); err != nil {
		return nil, err
	}

	return validate, nil
}
