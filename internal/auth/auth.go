// Package auth manages the Spotify OAuth token lifecycle: PKCE authorization,
// code exchange, refresh, and logout. Tokens are persisted to a secret store
// so a session survives restarts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/browser"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/evanjr/daylog/internal/secrets"
)

// Credential store keys. One secret per (service, account) pair.
const (
	credentialService   = "Spotify"
	accessTokenAccount  = "accessToken"
	refreshTokenAccount = "refreshToken"
)

// expiryMargin is the safety window before literal expiry during which an
// access token is already treated as expired.
const expiryMargin = 60 * time.Second

const defaultTimeout = 30 * time.Second

var (
	// ErrAuthRequired is returned when no usable access or refresh token
	// exists and the user must go through the authorization flow.
	ErrAuthRequired = errors.New("authorization required")

	// ErrNoAuthorization is returned when a code exchange is attempted
	// without a pending authorization (no stored verifier).
	ErrNoAuthorization = errors.New("no authorization in progress")

	// ErrStateMismatch is returned when the OAuth state parameter doesn't match.
	ErrStateMismatch = errors.New("OAuth state mismatch")
)

// Config holds Manager configuration.
type Config struct {
	ClientID    string
	RedirectURL string
	Scopes      []string
	// Endpoint overrides the provider endpoints; defaults to Spotify.
	Endpoint oauth2.Endpoint
	// Timeout applies to every token endpoint request.
	Timeout time.Duration
	// OpenBrowser launches the system browser on StartAuthorization.
	OpenBrowser bool
}

// Manager owns the access/refresh token pair and its expiry. It implements
// oauth2.TokenSource: Token returns a currently valid access token,
// refreshing when needed, or ErrAuthRequired.
type Manager struct {
	cfg     oauth2.Config
	secrets secrets.Store
	logger  *slog.Logger
	timeout time.Duration
	open    bool

	mu       sync.Mutex
	token    oauth2.Token
	verifier string
	state    string
}

// NewManager creates a Manager and loads any persisted tokens from the secret
// store. A persisted access token has no persisted expiry, so it is treated
// as expired and the first use goes through refresh.
func NewManager(cfg Config, store secrets.Store, logger *slog.Logger) *Manager {
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = oauth2.Endpoint{
			AuthURL:   spotifyauth.AuthURL,
			TokenURL:  spotifyauth.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		}
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{spotifyauth.ScopeUserReadRecentlyPlayed}
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	m := &Manager{
		cfg: oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURL,
			Endpoint:    endpoint,
			Scopes:      scopes,
		},
		secrets: store,
		logger:  logger,
		timeout: timeout,
		open:    cfg.OpenBrowser,
	}

	if access, err := store.Read(credentialService, accessTokenAccount); err == nil {
		m.token.AccessToken = access
	}
	if refresh, err := store.Read(credentialService, refreshTokenAccount); err == nil {
		m.token.RefreshToken = refresh
	}

	return m
}

// StartAuthorization begins a PKCE authorization: it generates a fresh code
// verifier and state, stores them for the subsequent exchange, and returns
// the authorization URL. A second call overwrites the pending verifier,
// invalidating the first flow. When configured, the system browser is opened
// as a best effort.
func (m *Manager) StartAuthorization() (string, error) {
	verifier, err := newCodeVerifier()
	if err != nil {
		return "", err
	}
	state := uuid.NewString()

	m.mu.Lock()
	m.verifier = verifier
	m.state = state
	m.mu.Unlock()

	authURL := m.cfg.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		oauth2.SetAuthURLParam("code_challenge", codeChallengeS256(verifier)),
	)

	if m.open {
		if err := browser.OpenURL(authURL); err != nil {
			m.logger.Warn("opening browser failed", "error", err)
		}
	}

	return authURL, nil
}

// HandleRedirectCallback processes the authorization redirect URL. A missing
// code is logged and ignored (no state change); otherwise the code is
// exchanged for tokens.
func (m *Manager) HandleRedirectCallback(ctx context.Context, u *url.URL) error {
	q := u.Query()

	if errMsg := q.Get("error"); errMsg != "" {
		m.logger.Warn("authorization denied", "error", errMsg)
		return fmt.Errorf("authorization denied: %s", errMsg)
	}

	code := q.Get("code")
	if code == "" {
		m.logger.Warn("no code found in redirect URL")
		return nil
	}

	m.mu.Lock()
	state := m.state
	m.mu.Unlock()
	if got := q.Get("state"); got != "" && got != state {
		return ErrStateMismatch
	}

	return m.Exchange(ctx, code)
}

// Exchange trades an authorization code for tokens using the pending PKCE
// verifier. On success the access token and expiry are replaced and
// persisted; the refresh token is persisted only when the response carries a
// non-empty one, so an absent refresh token never erases a stored one. On
// failure the token state is left unchanged.
func (m *Manager) Exchange(ctx context.Context, code string) error {
	m.mu.Lock()
	verifier := m.verifier
	m.mu.Unlock()
	if verifier == "" {
		return ErrNoAuthorization
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	token, err := m.cfg.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", verifier),
	)
	if err != nil {
		return fmt.Errorf("exchanging code for token: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifier = ""
	m.state = ""
	m.storeToken(token)
	return nil
}

// Token returns a valid access token, implementing oauth2.TokenSource.
// If the current token expires more than 60 seconds from now it is returned
// without any network call. Otherwise a refresh is attempted when a refresh
// token exists; without one, ErrAuthRequired is returned.
func (m *Manager) Token() (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.validLocked() {
		tok := m.token
		return &tok, nil
	}

	if err := m.refreshLocked(); err != nil {
		return nil, err
	}

	tok := m.token
	return &tok, nil
}

// EnsureValid reports whether a valid access token is available, refreshing
// if necessary.
func (m *Manager) EnsureValid() bool {
	_, err := m.Token()
	return err == nil
}

// Authenticated reports whether any credentials exist at all (valid or not).
func (m *Manager) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token.AccessToken != "" || m.token.RefreshToken != ""
}

// HTTPClient returns a client whose transport injects the managed bearer
// token into every request, refreshing as needed.
func (m *Manager) HTTPClient() *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{Source: m},
		Timeout:   m.timeout,
	}
}

// Logout clears the in-memory token state, discards any pending
// authorization, and deletes both persisted credential entries.
func (m *Manager) Logout() error {
	m.mu.Lock()
	m.token = oauth2.Token{}
	m.verifier = ""
	m.state = ""
	m.mu.Unlock()

	var errs []error
	if err := m.secrets.Delete(credentialService, accessTokenAccount); err != nil {
		errs = append(errs, fmt.Errorf("deleting access token: %w", err))
	}
	if err := m.secrets.Delete(credentialService, refreshTokenAccount); err != nil {
		errs = append(errs, fmt.Errorf("deleting refresh token: %w", err))
	}
	return errors.Join(errs...)
}

// validLocked reports whether the current access token is usable. The expiry
// check includes the 60-second safety margin. Callers must hold mu.
func (m *Manager) validLocked() bool {
	if m.token.AccessToken == "" {
		return false
	}
	if m.token.Expiry.IsZero() {
		return false
	}
	return time.Now().Before(m.token.Expiry.Add(-expiryMargin))
}

// refreshLocked performs a refresh_token grant. On failure the existing
// tokens are left untouched so a transient network failure doesn't force a
// logout. Callers must hold mu.
func (m *Manager) refreshLocked() error {
	refresh := m.token.RefreshToken
	if refresh == "" {
		return ErrAuthRequired
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	src := m.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refresh})
	token, err := src.Token()
	if err != nil {
		return fmt.Errorf("refreshing access token: %w", err)
	}

	m.storeToken(token)
	return nil
}

// storeToken replaces the in-memory token state and persists it. The refresh
// token only changes when the response carried a non-empty one. Callers must
// hold mu.
func (m *Manager) storeToken(token *oauth2.Token) {
	if token.RefreshToken == "" {
		token.RefreshToken = m.token.RefreshToken
	}
	m.token = *token

	if err := m.secrets.Save(credentialService, accessTokenAccount, token.AccessToken); err != nil {
		m.logger.Warn("persisting access token failed", "error", err)
	}
	if token.RefreshToken != "" {
		if err := m.secrets.Save(credentialService, refreshTokenAccount, token.RefreshToken); err != nil {
			m.logger.Warn("persisting refresh token failed", "error", err)
		}
	}
}
