package handlers

import (
	"context"
	"net/http"

	"github.com/studyhub/authsvc/internal/handlers/middleware"
	"github.com/studyhub/authsvc/internal/logger"
	"github.com/studyhub/authsvc/internal/models"
	"github.com/studyhub/authsvc/internal/repository"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	auth authService,
	userRepo repository.UserRepo,
	oauthHandler http.Handler,
	log logger.Logger,
) http.Handler {
	authMiddleware := middleware.AuthMiddleware(auth)
	withAuth := func(h http.Handler) http.Handler {
		return authMiddleware(h)
	}

	mux := http.NewServeMux()

	mux.Handle("POST /signUp", handleSignUp(auth, log))
	mux.Handle("POST /login", handleLogin(auth, log))
	mux.Handle("GET /refresh", handleTokenRefresh(auth, log))

	mux.Handle("GET /profile", withAuth(handleProfile(userRepo, log)))

	// OAuth routes are optional: mounted only when google credentials are configured
	if oauthHandler != nil {
		mux.Handle("/oauth/google/", http.StripPrefix("/oauth/google", oauthHandler))
	}

	return chain(mux,
		middleware.LoggerMiddleware(log),
	)
}

type authService interface {
	// Create a credential record. Issues no tokens: sign-up and login are
	// deliberately decoupled
	// Has to return apperrors.ErrUserAlreadyExists if user already exists
	SignUp(ctx context.Context, username string, password string) (models.User, error)

	// Login user with username and password
	// Has to return apperrors.ErrAuthenticationFailed for unknown user and
	// wrong password alike
	Login(ctx context.Context, username string, password string) (models.TokenPair, error)

	// Exchange a refresh token for a new access token
	// Has to return apperrors.ErrTokenInvalid if the token does not verify
	Refresh(ctx context.Context, refresh string) (models.IssuedToken, error)

	// Set the refresh token cookie on the response
	SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair)

	// Get refresh token from request
	GetRefreshString(r *http.Request) (string, error)

	// Methods consumed by the auth middleware
	BearerToken(r *http.Request) (string, error)
	Authenticate(ctx context.Context, access string) (models.User, error)
}
