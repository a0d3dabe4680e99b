package e2e

import (
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stretchr/testify/require"

	"github.com/studyhub/authsvc/internal/handlers"
	"github.com/studyhub/authsvc/internal/logger"
	"github.com/studyhub/authsvc/internal/repository/postgres"
	"github.com/studyhub/authsvc/internal/service/auth"
	"github.com/studyhub/authsvc/internal/service/auth/tokenmanager"
	"github.com/studyhub/authsvc/internal/testutil"
)

type Services struct {
	AuthService *auth.AuthService
	UserRepo    *postgres.UserRepo
}

// Create db transaction and run server with that connection (one connection cause one transaction)
// The created transaction passed to inner function: so, you can safely use testutil.WithTx with it
func ServeWithTx(dbpool *pgxpool.Pool, t *testing.T, fn func(tx pgx.Tx, srvURL string, services Services)) {
	testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
		// Initialize repositories
		userRepo := &postgres.UserRepo{DB: tx}

		// Initialize services
		tokenManager, err := tokenmanager.New(tokenmanager.Config{
			AccessSecret:  "access-secret",
			RefreshSecret: "refresh-secret",
		})
		require.NoError(t, err, "token manager should be created without errors")

		as, err := auth.NewService(auth.Config{}, tokenManager, userRepo)
		require.NoError(t, err, "auth service starting error")

		// Complete all together as router
		router := handlers.NewRouter(as, userRepo, nil, logger.NewNoOpLogger())

		// Run http server with the router in transaction
		srv := httptest.NewServer(router)
		defer srv.Close()

		fn(tx, srv.URL, Services{
			AuthService: as,
			UserRepo:    userRepo,
		})
	})
}
