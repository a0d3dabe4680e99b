package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/studyhub/authsvc/internal/apperrors"
	"github.com/studyhub/authsvc/internal/logger"
	"github.com/studyhub/authsvc/internal/models"
	"github.com/studyhub/authsvc/internal/repository"
	"github.com/studyhub/authsvc/internal/service/auth/tokenmanager"
)

const (
	defaultAccessHeaderName  = "Authorization"
	defaultAccessAuthScheme  = "Bearer"
	defaultRefreshCookieName = "refreshToken"
)

// Compared against when the username is unknown, so login takes roughly the
// same time whether the user exists or not. Hash of an unguessable value
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

type Config struct {
	// Hasher to use during sign-up and login
	// BcryptHasher is used when not set
	Hasher PasswordHasher

	// Set the Secure flag on the refresh cookie
	// Off by default so the flow works over plain http in development
	CookieSecure bool

	// Logger for internal auth failures that must not reach responses
	Logger logger.Logger
}

type AuthService struct {
	token  *tokenmanager.TokenManager
	hasher PasswordHasher
	logger logger.Logger

	userRepo repository.UserRepo

	accessHeaderName  string
	accessAuthScheme  string
	refreshCookieName string
	cookieSecure      bool
}

func NewService(cfg Config, token *tokenmanager.TokenManager, userRepo repository.UserRepo) (*AuthService, error) {
	if token == nil || userRepo == nil {
		return nil, errors.New("token manager and user repo must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = BcryptHasher{}
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &AuthService{
		token:             token,
		hasher:            hasher,
		logger:            log,
		userRepo:          userRepo,
		accessHeaderName:  defaultAccessHeaderName,
		accessAuthScheme:  defaultAccessAuthScheme,
		refreshCookieName: defaultRefreshCookieName,
		cookieSecure:      cfg.CookieSecure,
	}, nil
}

// SignUp creates a credential record. It issues no tokens:
// sign-up and login are deliberately decoupled
func (s *AuthService) SignUp(ctx context.Context, username string, password string) (models.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.User{}, fmt.Errorf("can't use this as password, error=%w", err)
	}

	user, err := s.userRepo.CreateUser(ctx, username, hash)
	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

// Login verifies credentials and issues a token pair
// Unknown username and wrong password both surface as ErrAuthenticationFailed;
// only the logs keep them apart
func (s *AuthService) Login(ctx context.Context, username string, password string) (models.TokenPair, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, username)

	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		// Burn a compare anyway to keep timing comparable
		_ = s.hasher.Compare(dummyPasswordHash, password)
		s.logger.Debug("login failed: unknown user", "username", username)
		return models.TokenPair{}, apperrors.ErrAuthenticationFailed
	case err != nil:
		return models.TokenPair{}, fmt.Errorf("error while looking up user %q. Err: %w", username, err)
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		s.logger.Debug("login failed: password mismatch", "username", username)
		return models.TokenPair{}, apperrors.ErrAuthenticationFailed
	}

	pair, err := s.token.GeneratePair(user)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	// Write-through of the last issued refresh token. Not authoritative for
	// validation, so a failure here fails the login loudly rather than
	// leaving the record silently stale
	if err := s.userRepo.SaveRefreshToken(ctx, user.Username, pair.Refresh.Value); err != nil {
		return models.TokenPair{}, fmt.Errorf("error while saving refresh token for %q. Err: %w", username, err)
	}

	return pair, nil
}

// Refresh exchanges a valid refresh token for a new access token
// The refresh token itself is not rotated: it stays valid for the remainder
// of its window and may be replayed for further access tokens until then
func (s *AuthService) Refresh(ctx context.Context, refresh string) (models.IssuedToken, error) {
	claims, err := s.token.ParseRefresh(refresh)
	if err != nil {
		return models.IssuedToken{}, err
	}

	access, err := s.token.GenerateAccess(claims.Username)
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	return access, nil
}

// IssueForIdentity mints a pair for an externally authenticated identity
// (the OAuth flow). No credential lookup happens: the provider already
// vouched for the user
func (s *AuthService) IssueForIdentity(username string, email string) (models.TokenPair, error) {
	pair, err := s.token.GeneratePair(models.User{Username: username, Email: email})
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	return pair, nil
}

// BearerToken extracts the access token from the Authorization header
// Missing or malformed header returns ErrAccessTokenRequired
func (s *AuthService) BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get(s.accessHeaderName)

	scheme, token, found := strings.Cut(header, " ")
	if !found || scheme != s.accessAuthScheme || token == "" {
		return "", apperrors.ErrAccessTokenRequired
	}

	return token, nil
}

// Authenticate verifies an access token and returns the identity it encodes
func (s *AuthService) Authenticate(ctx context.Context, access string) (models.User, error) {
	claims, err := s.token.ParseAccess(access)
	if err != nil {
		return models.User{}, err
	}

	return models.User{Username: claims.Username, Email: claims.Email}, nil
}

// SetTokenPairToResponse delivers the refresh token as an httpOnly cookie
// The access token is the handler's business: it belongs in the body
func (s *AuthService) SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.refreshCookieName,
		Value:    pair.Refresh.Value,
		Path:     "/",
		MaxAge:   int(time.Until(pair.Refresh.ExpiresAt).Round(time.Second).Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// GetRefreshString reads the refresh token cookie from the request
func (s *AuthService) GetRefreshString(r *http.Request) (string, error) {
	cookie, err := r.Cookie(s.refreshCookieName)
	if err != nil || cookie.Value == "" {
		return "", apperrors.ErrRefreshTokenMissing
	}

	return cookie.Value, nil
}
