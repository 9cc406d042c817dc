package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultHTTPTimeout bounds every token endpoint call. Calls are never
// retried here; transient failures surface to the caller.
const DefaultHTTPTimeout = 30 * time.Second

// TokenSet is the result of a successful token endpoint call.
type TokenSet struct {
	// AccessToken is the short-lived bearer credential.
	AccessToken string `json:"access_token"`

	// RefreshToken is the long-lived credential. Salesforce may omit it on
	// a refresh grant, meaning the existing one remains valid.
	RefreshToken string `json:"refresh_token,omitempty"`

	// InstanceURL is the tenant-specific API base returned with the token.
	InstanceURL string `json:"instance_url"`

	// IssuedAt is the issue timestamp, epoch milliseconds as a string.
	IssuedAt string `json:"issued_at,omitempty"`

	// ExpiresIn is the token lifetime in seconds. Salesforce usually omits
	// it; validity is then discovered lazily via a 401 from the API.
	ExpiresIn int `json:"expires_in,omitempty"`
}

// Expiry returns the absolute expiry time, or the zero time when the
// provider gave no lifetime hint.
func (t *TokenSet) Expiry() time.Time {
	if t.ExpiresIn <= 0 {
		return time.Time{}
	}
	issued := time.Now()
	if ms, err := strconv.ParseInt(t.IssuedAt, 10, 64); err == nil && ms > 0 {
		issued = time.UnixMilli(ms)
	}
	return issued.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// OAuth2Token converts the set to an *oauth2.Token for callers that speak
// the golang.org/x/oauth2 types.
func (t *TokenSet) OAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: t.RefreshToken,
		Expiry:       t.Expiry(),
	}
}

// Exchanger performs the two token-endpoint calls the flow needs.
// It is an interface so the Manager can be tested without network access.
type Exchanger interface {
	// ExchangeCode exchanges an authorization code (and the PKCE verifier
	// that produced its challenge) for a token set.
	ExchangeCode(ctx context.Context, code, codeVerifier, redirectURI string) (*TokenSet, error)

	// Refresh exchanges a refresh token for a new access token. The
	// returned set may or may not carry a rotated refresh token.
	Refresh(ctx context.Context, refreshToken string) (*TokenSet, error)
}

// Client is the real token endpoint client.
type Client struct {
	// TokenURL is the provider token endpoint, e.g.
	// https://login.salesforce.com/services/oauth2/token.
	TokenURL string

	// ClientID and ClientSecret identify the connected app.
	ClientID     string
	ClientSecret string

	httpClient *http.Client
}

// NewClient creates a token endpoint client with a bounded-timeout HTTP
// client. Pass a nil httpClient to use the default.
func NewClient(tokenURL, clientID, clientSecret string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{
		TokenURL:     tokenURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		httpClient:   httpClient,
	}
}

// ExchangeCode implements Exchanger.
func (c *Client) ExchangeCode(ctx context.Context, code, codeVerifier, redirectURI string) (*TokenSet, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"code_verifier": {codeVerifier},
		"client_id":     {c.ClientID},
		"client_secret": {c.ClientSecret},
		"redirect_uri":  {redirectURI},
	}

	return c.post(ctx, form, ReasonInvalidCode)
}

// Refresh implements Exchanger.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenSet, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {c.ClientID},
		"client_secret": {c.ClientSecret},
	}

	return c.post(ctx, form, ReasonInvalidGrant)
}

// post sends one form-encoded token request and decodes the response.
// invalidGrantReason is what an "invalid_grant" error maps to: for a code
// exchange it means the single-use code is dead, for a refresh grant it
// means the refresh token is revoked and re-authentication is required.
func (c *Client) post(ctx context.Context, form url.Values, invalidGrantReason ExchangeReason) (*TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &TokenExchangeError{Reason: ReasonNetwork, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TokenExchangeError{Reason: ReasonNetwork, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TokenExchangeError{Reason: ReasonNetwork, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyExchangeError(resp.StatusCode, body, invalidGrantReason)
	}

	var set TokenSet
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, &TokenExchangeError{
			Reason: ReasonServer,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("malformed token response: %w", err),
		}
	}

	if set.AccessToken == "" || set.InstanceURL == "" {
		return nil, &TokenExchangeError{
			Reason: ReasonServer,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("token response missing access_token or instance_url"),
		}
	}

	return &set, nil
}

// classifyExchangeError maps the provider's OAuth error payload to a typed
// TokenExchangeError.
func classifyExchangeError(status int, body []byte, invalidGrantReason ExchangeReason) *TokenExchangeError {
	var payload struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	// A non-JSON body still produces a usable error; the raw text goes
	// into the description.
	if err := json.Unmarshal(body, &payload); err != nil {
		payload.ErrorDescription = strings.TrimSpace(string(body))
	}

	reason := ReasonServer
	switch payload.Error {
	case "redirect_uri_mismatch":
		reason = ReasonRedirectMismatch
	case "invalid_client", "invalid_client_id", "invalid_client_credentials":
		reason = ReasonInvalidClient
	case "invalid_grant":
		reason = invalidGrantReason
	}

	return &TokenExchangeError{
		Reason:      reason,
		Status:      status,
		Code:        payload.Error,
		Description: payload.ErrorDescription,
	}
}
