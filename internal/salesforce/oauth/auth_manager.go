package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/junkie765/saft-reporting/internal/config"
)

// Session is the usable credential pair handed to API callers. Every
// Salesforce request needs both: the bearer token and the tenant base URL
// it was issued for.
type Session struct {
	AccessToken string
	InstanceURL string
}

// CredentialStore abstracts the config-file credential record so the
// Manager can be tested against an in-memory store. The production
// implementation is *config.Store.
type CredentialStore interface {
	LoadCredentials() (*config.Credentials, error)
	SaveCredentials(*config.Credentials) error
}

// ManagerConfig configures the auth manager.
type ManagerConfig struct {
	// AuthorizeURL is the provider authorization endpoint, e.g.
	// https://login.salesforce.com/services/oauth2/authorize.
	AuthorizeURL string

	// Scopes is the space-separated scope string for the authorization
	// request.
	Scopes string

	// CallbackPort and CallbackPath form the local redirect URI; they must
	// match the connected app registration. Zero values fall back to
	// DefaultCallbackPort / DefaultCallbackPath.
	CallbackPort int
	CallbackPath string

	// CallbackTimeout bounds the wait for the browser redirect.
	// Defaults to DefaultCallbackTimeout.
	CallbackTimeout time.Duration

	// OpenBrowser launches the authorization URL; defaults to the system
	// browser. Tests substitute this to simulate the redirect.
	OpenBrowser func(url string) error
}

// Manager orchestrates the token lifecycle: it prefers the persisted access
// token, falls back to a refresh grant, and only then drives the interactive
// browser flow. It is the only type other subsystems call for credentials.
//
// A Manager is safe for concurrent use within one process, but two processes
// sharing one credential file can still race; the tool assumes one run at a
// time.
type Manager struct {
	mu        sync.Mutex
	store     CredentialStore
	exchanger Exchanger
	cfg       ManagerConfig
}

// NewManager creates a Manager over the given store and token exchanger.
func NewManager(store CredentialStore, exchanger Exchanger, cfg ManagerConfig) *Manager {
	if cfg.CallbackPort == 0 {
		cfg.CallbackPort = DefaultCallbackPort
	}
	if cfg.CallbackPath == "" {
		cfg.CallbackPath = DefaultCallbackPath
	}
	if cfg.CallbackTimeout <= 0 {
		cfg.CallbackTimeout = DefaultCallbackTimeout
	}
	if cfg.Scopes == "" {
		cfg.Scopes = config.DefaultScopes
	}
	if cfg.OpenBrowser == nil {
		cfg.OpenBrowser = OpenBrowser
	}

	return &Manager{
		store:     store,
		exchanger: exchanger,
		cfg:       cfg,
	}
}

// Token returns a usable session, acquiring or refreshing credentials as
// needed. Calling it again while the stored access token is still valid
// performs no I/O beyond the config read.
func (m *Manager) Token(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	creds, err := m.store.LoadCredentials()
	if err != nil {
		return nil, err
	}

	// Optimistic path: a stored token that is not known-expired is used
	// as-is. Validity without an expiry hint is discovered lazily by the
	// API returning 401.
	if creds.HasUsableAccessToken() {
		slog.Debug("Using stored access token", "instance_url", creds.InstanceURL)
		return &Session{AccessToken: creds.AccessToken, InstanceURL: creds.InstanceURL}, nil
	}

	if creds.RefreshToken != "" {
		session, err := m.refresh(ctx, creds)
		if err == nil {
			return session, nil
		}
		if !ReauthRequired(err) {
			return nil, err
		}
		// Self-healing: a revoked refresh token falls through to the
		// interactive flow instead of stopping the run.
		slog.Info("Refresh token rejected, starting interactive authorization", "error", err.Error())
	}

	return m.interactiveFlow(ctx, creds)
}

// refresh runs the refresh-token grant and persists the merged record.
func (m *Manager) refresh(ctx context.Context, creds *config.Credentials) (*Session, error) {
	slog.Debug("Refreshing access token")

	set, err := m.exchanger.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		return nil, err
	}

	applyTokenSet(creds, set)
	if err := m.store.SaveCredentials(creds); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed credentials: %w", err)
	}

	slog.Info("Access token refreshed", "instance_url", creds.InstanceURL)
	return &Session{AccessToken: creds.AccessToken, InstanceURL: creds.InstanceURL}, nil
}

// interactiveFlow runs the full browser-based authorization-code exchange.
func (m *Manager) interactiveFlow(ctx context.Context, creds *config.Credentials) (*Session, error) {
	attempt, err := NewAttempt()
	if err != nil {
		return nil, err
	}

	callback := NewCallbackServer(m.cfg.CallbackPort, m.cfg.CallbackPath)

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	redirectURI, err := callback.Start(serveCtx)
	if err != nil {
		return nil, err
	}
	defer callback.Stop()

	authURL, err := m.buildAuthorizationURL(creds.ClientID, redirectURI, attempt)
	if err != nil {
		return nil, err
	}

	slog.Info("Opening browser for authorization", "redirect_uri", redirectURI)
	if err := m.cfg.OpenBrowser(authURL); err != nil {
		// Fire-and-forget: the flow still completes if the user opens
		// the URL by hand.
		slog.Warn("Could not open browser, open the URL manually", "url", authURL, "error", err.Error())
	}

	waitCtx, cancelWait := context.WithTimeout(ctx, m.cfg.CallbackTimeout)
	defer cancelWait()

	result, err := callback.WaitForCallback(waitCtx)
	if err != nil {
		return nil, err
	}

	if result.IsError() {
		return nil, &AuthorizationDeniedError{Code: result.Error, Description: result.ErrorDescription}
	}

	// Anti-forgery check: a code from a callback whose state does not
	// match this attempt is never exchanged.
	if result.State != attempt.State {
		slog.Warn("OAuth state mismatch on callback",
			"expected_state_len", len(attempt.State),
			"received_state_len", len(result.State),
		)
		return nil, ErrStateMismatch
	}

	set, err := m.exchanger.ExchangeCode(ctx, result.Code, attempt.CodeVerifier, redirectURI)
	if err != nil {
		// The code is single-use and already consumed; no retry.
		return nil, err
	}

	applyTokenSet(creds, set)
	if err := m.store.SaveCredentials(creds); err != nil {
		return nil, fmt.Errorf("failed to persist credentials: %w", err)
	}

	slog.Info("Authorization complete", "instance_url", creds.InstanceURL)
	return &Session{AccessToken: creds.AccessToken, InstanceURL: creds.InstanceURL}, nil
}

// buildAuthorizationURL constructs the browser navigation target.
func (m *Manager) buildAuthorizationURL(clientID, redirectURI string, attempt *Attempt) (string, error) {
	authURL, err := url.Parse(m.cfg.AuthorizeURL)
	if err != nil {
		return "", fmt.Errorf("invalid authorization endpoint %q: %w", m.cfg.AuthorizeURL, err)
	}

	params := url.Values{
		"response_type":         {"code"},
		"client_id":             {clientID},
		"redirect_uri":          {redirectURI},
		"scope":                 {m.cfg.Scopes},
		"state":                 {attempt.State},
		"code_challenge":        {attempt.CodeChallenge},
		"code_challenge_method": {attempt.CodeChallengeMethod},
	}

	authURL.RawQuery = params.Encode()
	return authURL.String(), nil
}

// applyTokenSet merges an exchange result into the credential record. The
// refresh token is replaced only when the provider returned a new one.
func applyTokenSet(creds *config.Credentials, set *TokenSet) {
	creds.AccessToken = set.AccessToken
	creds.InstanceURL = set.InstanceURL
	creds.ExpiresIn = set.ExpiresIn

	creds.IssuedAt = time.Now().Unix()
	if ms, err := strconv.ParseInt(set.IssuedAt, 10, 64); err == nil && ms > 0 {
		creds.IssuedAt = time.UnixMilli(ms).Unix()
	}

	if set.RefreshToken != "" {
		creds.RefreshToken = set.RefreshToken
	}
}
