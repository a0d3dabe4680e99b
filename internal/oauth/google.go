// Package oauth implements the Google sign-in sub-flow as an explicit handler
// with injected configuration. It authenticates against Google and then hands
// off to the same token issuer the password login uses, so signing logic
// lives in exactly one place.
package oauth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/studyhub/authsvc/internal/apperrors"
	"github.com/studyhub/authsvc/internal/handlers/render"
	"github.com/studyhub/authsvc/internal/logger"
	"github.com/studyhub/authsvc/internal/models"
)

const (
	stateCookieName = "oauthState"
	stateTTLSeconds = 300

	defaultUserinfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// TokenIssuer is the slice of the auth service the OAuth flow needs
type TokenIssuer interface {
	// Mint a token pair for an identity the provider already authenticated
	IssueForIdentity(username string, email string) (models.TokenPair, error)

	// Set the refresh token cookie on the response
	SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair)
}

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Secret used to sign the anti-CSRF state value
	// Must differ from both token signing secrets
	SessionSecret string

	// Set the Secure flag on the state cookie
	CookieSecure bool

	// Endpoint and userinfo overrides for tests. Google when empty
	Endpoint    oauth2.Endpoint
	UserinfoURL string

	Logger logger.Logger
}

type GoogleHandler struct {
	oauth       *oauth2.Config
	issuer      TokenIssuer
	secret      []byte
	secure      bool
	userinfoURL string
	logger      logger.Logger
}

func NewGoogleHandler(cfg Config, issuer TokenIssuer) (*GoogleHandler, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("google client id and secret must not be empty")
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret must not be empty")
	}
	if issuer == nil {
		return nil, errors.New("token issuer must not be nil")
	}

	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = endpoints.Google
	}

	userinfoURL := cfg.UserinfoURL
	if userinfoURL == "" {
		userinfoURL = defaultUserinfoURL
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &GoogleHandler{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		issuer:      issuer,
		secret:      []byte(cfg.SessionSecret),
		secure:      cfg.CookieSecure,
		userinfoURL: userinfoURL,
		logger:      log,
	}, nil
}

func (h *GoogleHandler) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /login", http.HandlerFunc(h.login))
	mux.Handle("GET /callback", http.HandlerFunc(h.callback))

	return mux
}

func (h *GoogleHandler) login(w http.ResponseWriter, r *http.Request) {
	state, err := h.newState()
	if err != nil {
		h.logger.Error("oauth state generation failed", "error", err.Error())
		render.ServiceError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   stateTTLSeconds,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode, // the callback arrives as a cross-site redirect
	})

	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusFound)
}

func (h *GoogleHandler) callback(w http.ResponseWriter, r *http.Request) {
	type CallbackSuccessResponse struct {
		AccessToken string `json:"accessToken"`
	}

	if err := h.checkState(r); err != nil {
		h.logger.Debug("oauth callback rejected", "error", err.Error())
		render.ServiceError(w, "oauth state mismatch", http.StatusForbidden)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		render.ServiceError(w, "authorization code required", http.StatusBadRequest)
		return
	}

	token, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth code exchange failed", "error", err.Error())
		render.ServiceError(w, "code exchange failed", http.StatusBadGateway)
		return
	}

	email, err := h.fetchEmail(r, token)
	if err != nil {
		h.logger.Error("oauth userinfo fetch failed", "error", err.Error())
		render.ServiceError(w, "userinfo fetch failed", http.StatusBadGateway)
		return
	}

	pair, err := h.issuer.IssueForIdentity(email, email)
	if err != nil {
		h.logger.Error("oauth token issue failed", "email", email, "error", err.Error())
		render.ServiceError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.issuer.SetTokenPairToResponse(w, pair)
	render.JSON(w, CallbackSuccessResponse{AccessToken: pair.Access.Value})
}

func (h *GoogleHandler) fetchEmail(r *http.Request, token *oauth2.Token) (string, error) {
	client := h.oauth.Client(r.Context(), token)

	resp, err := client.Get(h.userinfoURL)
	if err != nil {
		return "", fmt.Errorf("error while requesting userinfo. Err: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo endpoint returned status %d", resp.StatusCode)
	}

	var info struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("error while decoding userinfo. Err: %w", err)
	}

	if info.Email == "" {
		return "", errors.New("userinfo contains no email")
	}

	return info.Email, nil
}

// newState returns "nonce.signature" where the signature is an HMAC of the
// nonce under the session secret, so a forged state never verifies
func (h *GoogleHandler) newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	nonce := hex.EncodeToString(b)

	return nonce + "." + h.signState(nonce), nil
}

func (h *GoogleHandler) checkState(r *http.Request) error {
	state := r.URL.Query().Get("state")

	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" {
		return apperrors.ErrOAuthStateMismatch
	}

	nonce, signature, found := strings.Cut(state, ".")
	if !found || state != cookie.Value {
		return apperrors.ErrOAuthStateMismatch
	}

	if !hmac.Equal([]byte(signature), []byte(h.signState(nonce))) {
		return apperrors.ErrOAuthStateMismatch
	}

	return nil
}

func (h *GoogleHandler) signState(nonce string) string {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(nonce))
	return hex.EncodeToString(mac.Sum(nil))
}
