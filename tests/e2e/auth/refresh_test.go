package auth

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/authsvc/internal/testutil"
	"github.com/studyhub/authsvc/tests/e2e"
)

const (
	RefreshURL = "/refresh"
)

// Sign up and login over http, return access token and refresh cookie
func loginUser(t *testing.T, srvURL string, s e2e.Services, username string, password string) (string, *http.Cookie) {
	t.Helper()

	_, err := s.AuthService.SignUp(t.Context(), username, password)
	require.NoError(t, err)

	data := `{"userName": "` + username + `", "password": "` + password + `"}`
	resp, err := http.Post(srvURL+LoginURL, "application/json", strings.NewReader(data))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equalf(t, http.StatusOK, resp.StatusCode, "login failed. Body: %s", string(body))

	var parsed struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(body, &parsed))
	require.Equal(t, 1, len(resp.Cookies()), "login should set refresh cookie")

	return parsed.AccessToken, resp.Cookies()[0]
}

func Test_Refresh(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	e2e.ServeWithTx(pg.Pool, t, func(tx pgx.Tx, srvURL string, s e2e.Services) {
		t.Run("refresh ok", func(t *testing.T) {
			testutil.WithTx(tx, t, func(_ pgx.Tx) {
				_, cookie := loginUser(t, srvURL, s, "alice", "StrongEnoughPassword")

				req, err := http.NewRequest(http.MethodGet, srvURL+RefreshURL, nil)
				require.NoError(t, err)
				req.AddCookie(cookie)

				resp, err := http.DefaultClient.Do(req)
				require.NoError(t, err)
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				defer func() { _ = resp.Body.Close() }()

				require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", string(body))

				var parsed struct {
					AccessToken string `json:"accessToken"`
				}
				require.NoError(t, json.Unmarshal(body, &parsed))
				require.NotEmpty(t, parsed.AccessToken, "fresh access token should be in response body")
			})
		})

		t.Run("refresh without cookie fails", func(t *testing.T) {
			testutil.WithTx(tx, t, func(_ pgx.Tx) {
				resp, err := http.Get(srvURL + RefreshURL)
				require.NoError(t, err)
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				defer func() { _ = resp.Body.Close() }()

				require.Equal(t, http.StatusForbidden, resp.StatusCode)
				require.JSONEq(t, `
					{
						"error": "service_error",
						"message": "login required"
					}`, string(body))
			})
		})

		t.Run("refresh with garbage cookie fails", func(t *testing.T) {
			testutil.WithTx(tx, t, func(_ pgx.Tx) {
				req, err := http.NewRequest(http.MethodGet, srvURL+RefreshURL, nil)
				require.NoError(t, err)
				req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "not-a-jwt"})

				resp, err := http.DefaultClient.Do(req)
				require.NoError(t, err)
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				defer func() { _ = resp.Body.Close() }()

				require.Equal(t, http.StatusForbidden, resp.StatusCode)
				require.JSONEq(t, `
					{
						"error": "service_error",
						"message": "invalid token"
					}`, string(body))
			})
		})

		t.Run("access token is not accepted as refresh", func(t *testing.T) {
			testutil.WithTx(tx, t, func(_ pgx.Tx) {
				access, _ := loginUser(t, srvURL, s, "alice", "StrongEnoughPassword")

				req, err := http.NewRequest(http.MethodGet, srvURL+RefreshURL, nil)
				require.NoError(t, err)
				req.AddCookie(&http.Cookie{Name: "refreshToken", Value: access})

				resp, err := http.DefaultClient.Do(req)
				require.NoError(t, err)
				defer func() { _ = resp.Body.Close() }()

				require.Equal(t, http.StatusForbidden, resp.StatusCode, "tokens signed with the access secret must not refresh")
			})
		})
	})
}
