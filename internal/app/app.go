// Package app initializes and runs the shortener service. It wires together
// configuration, logging, storage, the domain logic and the HTTP router, and
// handles graceful shutdown.
package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashmarin/shortlinker/internal/auth"
	"github.com/ashmarin/shortlinker/internal/config"
	"github.com/ashmarin/shortlinker/internal/logger"
	"github.com/ashmarin/shortlinker/internal/memstore"
	"github.com/ashmarin/shortlinker/internal/passhash"
	"github.com/ashmarin/shortlinker/internal/router"
	"github.com/ashmarin/shortlinker/internal/service"
	"github.com/ashmarin/shortlinker/internal/shortcode"
	"github.com/ashmarin/shortlinker/internal/token"
)

// App holds everything needed to serve requests and shut down cleanly.
type App struct {
	cfg         *config.Config
	store       *memstore.MemStore
	httpHandler http.Handler
}

// New builds the application: loads configuration, initializes the logger,
// creates the in-memory store and the domain service, optionally seeds demo
// data, and assembles the router.
func New() (*App, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}

	if err := logger.Init(cfg.LogLevel); err != nil {
		return nil, err
	}

	store := memstore.New()

	signingKey, err := base64.URLEncoding.DecodeString(cfg.TokenSigningKey)
	if err != nil {
		return nil, fmt.Errorf("decoding token signing key: %w", err)
	}

	tokens, err := token.New(signingKey, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}

	codes, err := shortcode.New(store, cfg.ShortCodeLength)
	if err != nil {
		return nil, err
	}

	svc := service.New(store, codes, passhash.New(), tokens)

	if cfg.SeedDemoData {
		if err := seedDemoData(svc); err != nil {
			return nil, fmt.Errorf("seeding demo data: %w", err)
		}
		logger.Log.Infoln("demo data seeded")
	}

	httpHandler, err := router.New(svc, auth.New(svc), cfg.ShortURLBase)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:         cfg,
		store:       store,
		httpHandler: httpHandler,
	}, nil
}

// seedDemoData populates the store with a few users, links and redirects so
// a fresh instance has something to show.
func seedDemoData(svc *service.Service) error {
	ctx := context.Background()

	const (
		demoUsers     = 3
		demoURLs      = 10
		demoRedirects = 100
	)

	usernames := make([]string, 0, demoUsers)
	for i := 0; i < demoUsers; i++ {
		username := fmt.Sprintf("user_%d", i+1)
		if _, err := svc.RegisterUser(ctx, username, "12345678", ""); err != nil {
			return err
		}
		usernames = append(usernames, username)
	}

	shorts := make([]string, 0, demoURLs)
	for i := 0; i < demoURLs; i++ {
		u, err := svc.Shorten(
			ctx,
			fmt.Sprintf("https://example.com/articles/%d", rand.Intn(1000)),
			usernames[rand.Intn(len(usernames))],
		)
		if err != nil {
			return err
		}
		shorts = append(shorts, u.Short)
	}

	for i := 0; i < demoRedirects; i++ {
		if err := svc.RecordRedirect(ctx, shorts[rand.Intn(len(shorts))]); err != nil {
			return err
		}
	}

	return nil
}

// Run starts the HTTP server and blocks until a shutdown signal arrives,
// then drains in-flight requests and releases resources.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infow("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.httpHandler,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("received shutdown signal, draining and exiting")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	if err := a.store.Close(); err != nil {
		return err
	}

	return logger.Sync()
}
