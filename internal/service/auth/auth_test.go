package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/authsvc/internal/apperrors"
	"github.com/studyhub/authsvc/internal/models"
	"github.com/studyhub/authsvc/internal/service/auth/tokenmanager"
)

// In-memory user repo. Tokens are stateless, so the service itself needs no
// database; the postgres implementation is covered in its own package
type memUserRepo struct {
	users map[string]models.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]models.User{}}
}

func (r *memUserRepo) CreateUser(ctx context.Context, username string, hashedPassword string) (models.User, error) {
	if _, ok := r.users[username]; ok {
		return models.User{}, apperrors.ErrUserAlreadyExists
	}

	user := models.User{
		ID:             uuid.New(),
		CreatedAt:      time.Now(),
		Username:       username,
		HashedPassword: hashedPassword,
	}
	r.users[username] = user
	return user, nil
}

func (r *memUserRepo) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	user, ok := r.users[username]
	if !ok {
		return models.User{}, apperrors.ErrUserNotFound
	}
	return user, nil
}

func (r *memUserRepo) SaveRefreshToken(ctx context.Context, username string, token string) error {
	user, ok := r.users[username]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	user.RefreshToken = token
	r.users[username] = user
	return nil
}

func (r *memUserRepo) CountUsers(ctx context.Context) (int64, error) {
	return int64(len(r.users)), nil
}

func newService(t *testing.T, cfg tokenmanager.Config) (*AuthService, *memUserRepo) {
	t.Helper()

	if cfg.AccessSecret == "" {
		cfg.AccessSecret = "access-secret"
	}
	if cfg.RefreshSecret == "" {
		cfg.RefreshSecret = "refresh-secret"
	}

	tokenManager, err := tokenmanager.New(cfg)
	require.NoError(t, err, "token manager should be created without errors")

	repo := newMemUserRepo()
	s, err := NewService(Config{}, tokenManager, repo)
	require.NoError(t, err, "auth service couldn't be started")

	return s, repo
}

func Test_AuthService(t *testing.T) {
	t.Parallel()

	t.Run("new service defaults", func(t *testing.T) {
		s, _ := newService(t, tokenmanager.Config{})

		require.Equal(t, defaultAccessHeaderName, s.accessHeaderName, "default access header name should be set")
		require.Equal(t, defaultAccessAuthScheme, s.accessAuthScheme, "default access auth scheme should be set")
		require.Equal(t, defaultRefreshCookieName, s.refreshCookieName, "default refresh cookie name should be set")
		require.Equal(t, BcryptHasher{}, s.hasher, "default hasher should be set to BcryptHasher")
	})

	t.Run("new service requires deps", func(t *testing.T) {
		_, err := NewService(Config{}, nil, nil)
		require.Error(t, err)
	})

	t.Run("SignUp", func(t *testing.T) {
		t.Run("new user ok", func(t *testing.T) {
			s, repo := newService(t, tokenmanager.Config{})

			user, err := s.SignUp(t.Context(), "alice", "secret123")

			require.NoError(t, err, "signing up a new user should be ok")
			require.Equal(t, "alice", user.Username)
			require.NotEqual(t, "secret123", user.HashedPassword, "password must never be stored in plaintext")

			stored, err := repo.GetUserByUsername(t.Context(), "alice")
			require.NoError(t, err)
			require.NoError(t, BcryptHasher{}.Compare(stored.HashedPassword, "secret123"))
		})

		t.Run("fail if user exists", func(t *testing.T) {
			s, _ := newService(t, tokenmanager.Config{})

			_, err := s.SignUp(t.Context(), "alice", "secret123")
			require.NoError(t, err, "no error should happen if user not exists")

			_, err = s.SignUp(t.Context(), "alice", "other-pwd")

			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
		})
	})

	t.Run("Login", func(t *testing.T) {
		t.Run("valid credentials ok", func(t *testing.T) {
			s, repo := newService(t, tokenmanager.Config{})

			_, err := s.SignUp(t.Context(), "alice", "secret123")
			require.NoError(t, err)

			pair, err := s.Login(t.Context(), "alice", "secret123")

			require.NoError(t, err)
			require.NotEmpty(t, pair.Access.Value, "access token should not be empty")
			require.NotEmpty(t, pair.Refresh.Value, "refresh token should not be empty")

			user, err := s.Authenticate(t.Context(), pair.Access.Value)
			require.NoError(t, err, "issued access token should authenticate")
			require.Equal(t, "alice", user.Username)

			stored, err := repo.GetUserByUsername(t.Context(), "alice")
			require.NoError(t, err)
			require.Equal(t, pair.Refresh.Value, stored.RefreshToken, "last refresh token should be written through")
		})

		t.Run("unknown user and wrong password fail the same way", func(t *testing.T) {
			s, _ := newService(t, tokenmanager.Config{})

			_, err := s.SignUp(t.Context(), "alice", "secret123")
			require.NoError(t, err)

			_, errUnknown := s.Login(t.Context(), "nobody", "secret123")
			_, errWrongPwd := s.Login(t.Context(), "alice", "wrong")

			require.ErrorIs(t, errUnknown, apperrors.ErrAuthenticationFailed)
			require.ErrorIs(t, errWrongPwd, apperrors.ErrAuthenticationFailed)
			require.Equal(t, errUnknown.Error(), errWrongPwd.Error(), "responses must not reveal which usernames exist")
		})
	})

	t.Run("Refresh", func(t *testing.T) {
		t.Run("valid refresh mints new access", func(t *testing.T) {
			s, _ := newService(t, tokenmanager.Config{})

			_, err := s.SignUp(t.Context(), "alice", "secret123")
			require.NoError(t, err)

			pair, err := s.Login(t.Context(), "alice", "secret123")
			require.NoError(t, err)

			access, err := s.Refresh(t.Context(), pair.Refresh.Value)

			require.NoError(t, err)
			require.NotEmpty(t, access.Value)

			user, err := s.Authenticate(t.Context(), access.Value)
			require.NoError(t, err, "refreshed access token should authenticate")
			require.Equal(t, "alice", user.Username)
		})

		t.Run("repeated refresh within window keeps working", func(t *testing.T) {
			s, _ := newService(t, tokenmanager.Config{})

			_, err := s.SignUp(t.Context(), "alice", "secret123")
			require.NoError(t, err)

			pair, err := s.Login(t.Context(), "alice", "secret123")
			require.NoError(t, err)

			first, err := s.Refresh(t.Context(), pair.Refresh.Value)
			require.NoError(t, err)

			second, err := s.Refresh(t.Context(), pair.Refresh.Value)
			require.NoError(t, err, "refresh token is not rotated, replay within the window is allowed")

			require.NotEqual(t, first.Value, second.Value, "each refresh yields an independent access token")
		})

		t.Run("expired refresh rejected as invalid", func(t *testing.T) {
			s, _ := newService(t, tokenmanager.Config{RefreshTTL: -time.Second})

			_, err := s.SignUp(t.Context(), "alice", "secret123")
			require.NoError(t, err)

			pair, err := s.Login(t.Context(), "alice", "secret123")
			require.NoError(t, err)

			_, err = s.Refresh(t.Context(), pair.Refresh.Value)

			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrTokenInvalid)
		})

		t.Run("access token rejected as refresh", func(t *testing.T) {
			s, _ := newService(t, tokenmanager.Config{})

			_, err := s.SignUp(t.Context(), "alice", "secret123")
			require.NoError(t, err)

			pair, err := s.Login(t.Context(), "alice", "secret123")
			require.NoError(t, err)

			_, err = s.Refresh(t.Context(), pair.Access.Value)

			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrTokenInvalid)
		})
	})

	t.Run("BearerToken", func(t *testing.T) {
		s, _ := newService(t, tokenmanager.Config{})

		tests := []struct {
			name   string
			header string
			token  string
			err    error
		}{
			{name: "valid header", header: "Bearer some-token", token: "some-token"},
			{name: "missing header", header: "", err: apperrors.ErrAccessTokenRequired},
			{name: "wrong scheme", header: "Basic some-token", err: apperrors.ErrAccessTokenRequired},
			{name: "scheme without token", header: "Bearer", err: apperrors.ErrAccessTokenRequired},
			{name: "scheme with empty token", header: "Bearer ", err: apperrors.ErrAccessTokenRequired},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				r := httptest.NewRequest(http.MethodGet, "/profile", nil)
				if tt.header != "" {
					r.Header.Set("Authorization", tt.header)
				}

				token, err := s.BearerToken(r)

				if tt.err != nil {
					require.ErrorIs(t, err, tt.err)
					return
				}
				require.NoError(t, err)
				require.Equal(t, tt.token, token)
			})
		}
	})

	t.Run("refresh cookie", func(t *testing.T) {
		t.Run("set to response", func(t *testing.T) {
			s, _ := newService(t, tokenmanager.Config{})

			_, err := s.SignUp(t.Context(), "alice", "secret123")
			require.NoError(t, err)

			pair, err := s.Login(t.Context(), "alice", "secret123")
			require.NoError(t, err)

			rec := httptest.NewRecorder()
			s.SetTokenPairToResponse(rec, pair)

			cookies := rec.Result().Cookies()
			require.Len(t, cookies, 1)

			cookie := cookies[0]
			assert.Equal(t, "refreshToken", cookie.Name)
			assert.Equal(t, pair.Refresh.Value, cookie.Value)
			assert.True(t, cookie.HttpOnly, "refresh cookie must be httpOnly")
			assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite, "refresh cookie should be SameSite Strict")
			assert.Equal(t, "/", cookie.Path)
			assert.InDelta(t, 60, cookie.MaxAge, 1, "max age should match the refresh TTL")
		})

		t.Run("read from request", func(t *testing.T) {
			s, _ := newService(t, tokenmanager.Config{})

			r := httptest.NewRequest(http.MethodGet, "/refresh", nil)
			r.AddCookie(&http.Cookie{Name: "refreshToken", Value: "the-token"})

			got, err := s.GetRefreshString(r)
			require.NoError(t, err)
			require.Equal(t, "the-token", got)
		})

		t.Run("missing cookie", func(t *testing.T) {
			s, _ := newService(t, tokenmanager.Config{})

			r := httptest.NewRequest(http.MethodGet, "/refresh", nil)

			_, err := s.GetRefreshString(r)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenMissing)
		})
	})

	t.Run("Authenticate expired access", func(t *testing.T) {
		s, _ := newService(t, tokenmanager.Config{AccessTTL: -time.Second})

		_, err := s.SignUp(t.Context(), "alice", "secret123")
		require.NoError(t, err)

		pair, err := s.Login(t.Context(), "alice", "secret123")
		require.NoError(t, err)

		_, err = s.Authenticate(t.Context(), pair.Access.Value)

		require.Error(t, err)
		require.ErrorIs(t, err, apperrors.ErrTokenExpired)
	})
}
