package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Username       string
	HashedPassword string

	// Email is set for identities issued through the OAuth flow
	Email string

	// Last issued refresh token. Written through on login for observability,
	// not consulted during validation: refresh tokens are verified by
	// signature and expiry only.
	RefreshToken string
}
