package handlers

import (
	"errors"
	"net/http"

	"github.com/studyhub/authsvc/internal/apperrors"
	"github.com/studyhub/authsvc/internal/handlers/render"
	"github.com/studyhub/authsvc/internal/logger"
)

func handleSignUp(auth authService, log logger.Logger) http.Handler {
	type SignUpRequest struct {
		Username string `json:"userName" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	type SignUpSuccessResponse struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[SignUpRequest](w, r)
		if err != nil {
			return
		}

		_, err = auth.SignUp(r.Context(), data.Username, data.Password)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserAlreadyExists):
				render.ServiceError(w, "user already exists", http.StatusConflict)
			default:
				log.Error("sign-up failed", "username", data.Username, "error", err.Error())
				render.ServiceError(w, "internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSONWithStatus(w, SignUpSuccessResponse{Message: "user created successfully"}, http.StatusCreated)
	})
}

func handleLogin(auth authService, log logger.Logger) http.Handler {
	type LoginRequest struct {
		Username string `json:"userName" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	type LoginSuccessResponse struct {
		AccessToken string `json:"accessToken"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[LoginRequest](w, r)
		if err != nil {
			return
		}

		pair, err := auth.Login(r.Context(), data.Username, data.Password)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrAuthenticationFailed):
				// One message for unknown user and wrong password alike
				render.ServiceError(w, "invalid username or password", http.StatusUnauthorized)
			default:
				log.Error("login failed", "username", data.Username, "error", err.Error())
				render.ServiceError(w, "internal server error", http.StatusInternalServerError)
			}
			return
		}

		auth.SetTokenPairToResponse(w, pair)
		render.JSON(w, LoginSuccessResponse{AccessToken: pair.Access.Value})
	})
}

func handleTokenRefresh(auth authService, log logger.Logger) http.Handler {
	type RefreshSuccessResponse struct {
		AccessToken string `json:"accessToken"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refresh, err := auth.GetRefreshString(r)
		if err != nil {
			render.ServiceError(w, "login required", http.StatusForbidden)
			return
		}

		access, err := auth.Refresh(r.Context(), refresh)
		if err != nil {
			log.Debug("refresh rejected", "error", err.Error())
			render.ServiceError(w, "invalid token", http.StatusForbidden)
			return
		}

		render.JSON(w, RefreshSuccessResponse{AccessToken: access.Value})
	})
}
