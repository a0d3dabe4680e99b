package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/studyhub/authsvc/internal/db"
	"github.com/studyhub/authsvc/internal/handlers"
	"github.com/studyhub/authsvc/internal/logger"
	"github.com/studyhub/authsvc/internal/oauth"
	"github.com/studyhub/authsvc/internal/repository/postgres"
	"github.com/studyhub/authsvc/internal/service/auth"
	"github.com/studyhub/authsvc/internal/service/auth/tokenmanager"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger logger.Logger
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)
	userRepo := storage.User()

	// Initialize services
	tokenManager, err := tokenmanager.New(tokenmanager.Config{
		AccessSecret:  c.AccessSecret,
		RefreshSecret: c.RefreshSecret,
		AccessTTL:     c.AccessTokenTTL,
		RefreshTTL:    c.RefreshTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}

	authService, err := auth.NewService(
		auth.Config{CookieSecure: c.CookieSecure, Logger: log},
		tokenManager,
		userRepo,
	)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	// Mount the Google sub-flow only when configured
	var oauthHandler http.Handler
	if c.GoogleClientID != "" {
		googleHandler, err := oauth.NewGoogleHandler(oauth.Config{
			ClientID:      c.GoogleClientID,
			ClientSecret:  c.GoogleClientSecret,
			RedirectURL:   c.GoogleRedirectURL,
			SessionSecret: c.SessionSecret,
			CookieSecure:  c.CookieSecure,
			Logger:        log,
		}, authService)
		if err != nil {
			return nil, fmt.Errorf("error while creating google oauth handler. Err: %w", err)
		}
		oauthHandler = googleHandler.Handler()
	}

	mux := handlers.NewRouter(authService, userRepo, oauthHandler, log)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		logger:     log,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
