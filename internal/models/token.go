package models

import (
	"time"
)

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Token pair issued by the token manager on login, sign-up via OAuth, etc.
// Access goes to the response body, Refresh to the httpOnly cookie.
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}
