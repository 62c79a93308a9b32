package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/ashmarin/shortlinker/internal/auth"
	"github.com/ashmarin/shortlinker/internal/logger"
	"github.com/ashmarin/shortlinker/internal/memstore"
	"github.com/ashmarin/shortlinker/internal/models"
	"github.com/ashmarin/shortlinker/internal/service"
	"github.com/ashmarin/shortlinker/internal/token"
)

type handlers struct {
	service      *service.Service
	validate     *validator.Validate
	shortURLBase string
}

type link struct {
	url string
	rel string
}

func linkHeader(links []link) string {
	parts := make([]string, 0, len(links))
	for _, l := range links {
		parts = append(parts, fmt.Sprintf(`<%s>; rel=%q`, l.url, l.rel))
	}

	return strings.Join(parts, ", ")
}

func writeJSON(res http.ResponseWriter, statusCode int, v interface{}) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(statusCode)
	if err := json.NewEncoder(res).Encode(v); err != nil {
		logger.Log.Debugw("writing JSON response", "error", err)
	}
}

func writeDetail(res http.ResponseWriter, statusCode int, detail string) {
	writeJSON(res, statusCode, models.Detailed{Detail: detail})
}

func (h *handlers) decodeAndValidate(req *http.Request, v interface{}) error {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding request body: %w", err)
	}

	return h.validate.Struct(v)
}

func userResponse(usr *memstore.User) models.UserResponse {
	return models.UserResponse{
		Username: usr.Username,
		FullName: usr.FullName,
		Links:    len(usr.Links),
	}
}

func (h *handlers) urlResponse(u *memstore.URL) models.URLResponse {
	return models.URLResponse{
		URL:       u.URL,
		Short:     u.Short,
		ShortURL:  h.shortURLBase + "/" + u.Short,
		Owner:     u.Owner,
		Redirects: len(u.Redirects),
		CreatedAt: u.CreatedAt,
	}
}

func (h *handlers) postRegister(res http.ResponseWriter, req *http.Request) {
	var input models.RegisterRequest
	if err := h.decodeAndValidate(req, &input); err != nil {
		writeDetail(res, http.StatusBadRequest, err.Error())

		return
	}

	usr, err := h.service.RegisterUser(req.Context(), input.Username, input.Password, input.FullName)
	if err != nil {
		if errors.Is(err, models.ErrUsernameTaken) {
			writeDetail(res, http.StatusConflict, "Username already taken")

			return
		}
		logger.Log.Errorw("registering user", "error", err)
		writeDetail(res, http.StatusInternalServerError, models.ErrInternal.Error())

		return
	}

	res.Header().Set("Link", linkHeader([]link{{url: "/api/login", rel: "login"}}))
	writeJSON(res, http.StatusCreated, userResponse(usr))
}

// postLogin expects a form-encoded username/password pair, matching the
// OAuth2 password flow shape.
func (h *handlers) postLogin(res http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		writeDetail(res, http.StatusBadRequest, err.Error())

		return
	}

	tokenString, err := h.service.Login(
		req.Context(),
		req.PostFormValue("username"),
		req.PostFormValue("password"),
	)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			res.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(res, http.StatusUnauthorized, "Incorrect username or password")

			return
		}
		logger.Log.Errorw("logging user in", "error", err)
		writeDetail(res, http.StatusInternalServerError, models.ErrInternal.Error())

		return
	}

	res.Header().Set("Link", linkHeader([]link{{url: "/api/me", rel: "self"}}))
	writeJSON(res, http.StatusOK, models.TokenResponse{
		AccessToken: tokenString,
		TokenType:   token.Type,
	})
}

func (h *handlers) getMe(res http.ResponseWriter, req *http.Request) {
	usr, ok := auth.UserFromContext(req.Context())
	if !ok {
		writeDetail(res, http.StatusUnauthorized, models.ErrUnauthenticated.Error())

		return
	}

	writeJSON(res, http.StatusOK, userResponse(usr))
}

func (h *handlers) postShorten(res http.ResponseWriter, req *http.Request) {
	usr, ok := auth.UserFromContext(req.Context())
	if !ok {
		writeDetail(res, http.StatusUnauthorized, models.ErrUnauthenticated.Error())

		return
	}

	var input models.ShortenRequest
	if err := h.decodeAndValidate(req, &input); err != nil {
		writeDetail(res, http.StatusBadRequest, err.Error())

		return
	}

	u, err := h.service.Shorten(req.Context(), input.URL, usr.Username)
	if err != nil {
		logger.Log.Errorw("shortening URL", "error", err)
		writeDetail(res, http.StatusInternalServerError, models.ErrInternal.Error())

		return
	}

	writeJSON(res, http.StatusCreated, h.urlResponse(u))
}

func (h *handlers) getOwnedURLs(res http.ResponseWriter, req *http.Request) {
	usr, ok := auth.UserFromContext(req.Context())
	if !ok {
		writeDetail(res, http.StatusUnauthorized, models.ErrUnauthenticated.Error())

		return
	}

	page := 1
	if raw := req.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeDetail(res, http.StatusBadRequest, "page must be a positive integer")

			return
		}
		page = parsed
	}

	urls, err := h.service.ListOwnedURLs(req.Context(), usr.Username, page)
	if err != nil {
		logger.Log.Errorw("listing user URLs", "error", err)
		writeDetail(res, http.StatusInternalServerError, models.ErrInternal.Error())

		return
	}

	res.Header().Set("Link", linkHeader(paginationLinks(
		page,
		h.service.CountOwnedURLs(req.Context(), usr.Username),
	)))

	response := make([]models.URLResponse, 0, len(urls))
	for _, u := range urls {
		response = append(response, h.urlResponse(u))
	}
	writeJSON(res, http.StatusOK, response)
}

func paginationLinks(page, total int) []link {
	lastPage := (total + service.PageSize - 1) / service.PageSize
	if lastPage < 1 {
		lastPage = 1
	}

	pageURL := func(n int) string {
		return fmt.Sprintf("/api/urls?page=%d", n)
	}

	links := []link{
		{url: pageURL(1), rel: "first"},
		{url: pageURL(lastPage), rel: "last"},
	}
	if page > 1 {
		links = append(links, link{url: pageURL(page - 1), rel: "prev"})
	}
	if page < lastPage {
		links = append(links, link{url: pageURL(page + 1), rel: "next"})
	}

	return links
}

func (h *handlers) getURLRedirects(res http.ResponseWriter, req *http.Request) {
	usr, ok := auth.UserFromContext(req.Context())
	if !ok {
		writeDetail(res, http.StatusUnauthorized, models.ErrUnauthenticated.Error())

		return
	}

	timestamps, err := h.service.ListRedirects(req.Context(), chi.URLParam(req, "short"), usr.Username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeDetail(res, http.StatusNotFound, "Not found")

			return
		}
		logger.Log.Errorw("listing URL redirects", "error", err)
		writeDetail(res, http.StatusInternalServerError, models.ErrInternal.Error())

		return
	}

	if timestamps == nil {
		timestamps = []time.Time{}
	}
	writeJSON(res, http.StatusOK, timestamps)
}

func (h *handlers) getRedirect(res http.ResponseWriter, req *http.Request) {
	short := chi.URLParam(req, "short")

	u, found := h.service.RedirectTarget(req.Context(), short)
	if !found {
		writeDetail(res, http.StatusNotFound, "Not found")

		return
	}

	if err := h.service.RecordRedirect(req.Context(), short); err != nil {
		logger.Log.Errorw("recording redirect", "short", short, "error", err)
		writeDetail(res, http.StatusInternalServerError, models.ErrInternal.Error())

		return
	}

	res.Header().Set("Content-Type", "text/html; charset=utf-8")
	res.Header().Set("Location", u.URL)
	res.WriteHeader(http.StatusTemporaryRedirect)
	fmt.Fprintf(res, redirectPageTemplate, u.URL, u.URL, u.URL)
}

func (h *handlers) getPing(res http.ResponseWriter, req *http.Request) {
	if err := h.service.Ping(req.Context()); err != nil {
		writeDetail(res, http.StatusInternalServerError, models.ErrInternal.Error())

		return
	}

	res.WriteHeader(http.StatusOK)
}

func (h *handlers) getIndex(res http.ResponseWriter, req *http.Request) {
	res.Header().Set("Content-Type", "text/html; charset=utf-8")
	res.WriteHeader(http.StatusOK)
	fmt.Fprint(res, indexPage)
}

const indexPage = `<html>
<head><title>URL Shortener</title></head>
<body>
<h1>URL Shortener</h1>
<p>POST /api/register, POST /api/login, POST /api/shorten, GET /api/urls</p>
</body>
</html>
`

const redirectPageTemplate = `<!DOCTYPE html>
<html>
  <head>
    <meta http-equiv="refresh" content="0; url=%s" />
    <meta charset="utf-8" />
  </head>
  <body>
    <a href="%s">Click here if not redirected to %s</a>
  </body>
</html>
`
