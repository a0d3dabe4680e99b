package handlers

import (
	"net/http"

	"github.com/studyhub/authsvc/internal/handlers/render"
	"github.com/studyhub/authsvc/internal/handlers/userctx"
	"github.com/studyhub/authsvc/internal/logger"
	"github.com/studyhub/authsvc/internal/repository"
)

// Consumption side of the auth middleware: the identity comes from the
// request context, everything else from the credential store
func handleProfile(userRepo repository.UserRepo, log logger.Logger) http.Handler {
	type ProfileResponse struct {
		User       string `json:"user"`
		TotalUsers int64  `json:"totalUsers"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := userctx.FromContext(r.Context())

		total, err := userRepo.CountUsers(r.Context())
		if err != nil {
			log.Error("profile fetch failed", "username", user.Username, "error", err.Error())
			render.ServiceError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, ProfileResponse{User: user.Username, TotalUsers: total})
	})
}
