package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/studyhub/authsvc/internal/apperrors"
	"github.com/studyhub/authsvc/internal/handlers/render"
	"github.com/studyhub/authsvc/internal/handlers/userctx"
	"github.com/studyhub/authsvc/internal/models"
)

type authService interface {
	// Extract the bearer token from the request
	// Missing or malformed header returns apperrors.ErrAccessTokenRequired
	BearerToken(r *http.Request) (string, error)

	// Verify an access token and return the identity it encodes
	// Expired tokens return apperrors.ErrTokenExpired, anything else
	// failing verification returns apperrors.ErrTokenInvalid
	Authenticate(ctx context.Context, access string) (models.User, error)
}

// AuthMiddleware gates protected routes behind a valid access token.
//
// The status split is part of the client contract: 401 means "you never sent
// a token", 403 "token expired" means "call refresh", any other 403 means the
// token is garbage and the client should re-login.
func AuthMiddleware(as authService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := as.BearerToken(r)
			if err != nil {
				render.ServiceError(w, "access token required", http.StatusUnauthorized)
				return
			}

			user, err := as.Authenticate(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, apperrors.ErrTokenExpired):
					render.ServiceError(w, "token expired", http.StatusForbidden)
				default:
					render.ServiceError(w, "invalid token", http.StatusForbidden)
				}
				return
			}

			ctx := userctx.New(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
