// Package router wires the HTTP surface of the shortener: the JSON API under
// /api, the public redirect endpoint and the index page. Everything here is a
// thin wrapper over the domain logic in internal/service; status codes are
// decided here and nowhere else.
package router

import (
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ashmarin/shortlinker/internal/authenticator"
	"github.com/ashmarin/shortlinker/internal/logger"
	"github.com/ashmarin/shortlinker/internal/models"
	"github.com/ashmarin/shortlinker/internal/service"
)

// New builds the chi router with all middleware and routes attached.
// shortURLBase is the public base address short links are advertised under.
func New(svc *service.Service, auth authenticator.Authenticator, shortURLBase string) (*chi.Mux, error) {
	validate, err := models.NewValidator()
	if err != nil {
		return nil, err
	}

	h := &handlers{
		service:      svc,
		validate:     validate,
		shortURLBase: strings.TrimRight(shortURLBase, "/"),
	}

	router := chi.NewRouter()
	router.Use(withRequestID)
	router.Use(logger.WithLoggingHTTPMiddleware)
	router.Use(withCORS)
	router.Use(withGzippedResponse)

	router.Get(`/`, h.getIndex)
	router.Get(`/ping`, h.getPing)
	router.Get(`/{short}`, h.getRedirect)

	router.Route(`/api`, func(router chi.Router) {
		router.Post(`/register`, h.postRegister)
		router.Post(`/login`, h.postLogin)

		router.Group(func(router chi.Router) {
			router.Use(auth.RequireUser)
			router.Get(`/me`, h.getMe)
			router.Post(`/shorten`, h.postShorten)
			router.Get(`/urls`, h.getOwnedURLs)
			router.Get(`/urls/{short}/redirects`, h.getURLRedirects)
		})
	})

	return router, nil
}
