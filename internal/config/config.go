// Package config owns the on-disk configuration document (config.json) and
// the delegated credential record stored inside it. All reads and writes of
// the file go through Store; nothing else in the tool touches it.
package config

import (
	"errors"
	"time"

	"golang.org/x/oauth2"
)

// AuthMethodOAuth is the only auth_method this tool implements. The
// discriminator exists so a config written for password-based auth is
// rejected with a clear message instead of half-working.
const AuthMethodOAuth = "oauth"

// ErrNotConfigured indicates the configuration file is missing the oauth
// section or the connected app client credentials. The user must edit the
// config before anything can run; there is no retry.
var ErrNotConfigured = errors.New("oauth is not configured: set client_id and client_secret in the oauth section of the config file")

// Credentials is the persisted credential record for the connected app.
// ClientID/ClientSecret are immutable once configured; the token fields are
// filled in by the auth flow and replaced on refresh.
type Credentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`

	// AccessToken and InstanceURL are issued together: either both are
	// present and consistent, or both are absent.
	AccessToken string `json:"access_token,omitempty"`
	InstanceURL string `json:"instance_url,omitempty"`

	// RefreshToken, once obtained, is only ever replaced, never removed
	// by a successful refresh.
	RefreshToken string `json:"refresh_token,omitempty"`

	// IssuedAt (epoch seconds) and ExpiresIn (seconds) are the expiry
	// hint. When ExpiresIn is zero the token lifetime is unknown and
	// expiry is discovered lazily via a 401 from the API.
	IssuedAt  int64 `json:"issued_at,omitempty"`
	ExpiresIn int   `json:"expires_in,omitempty"`
}

// Token converts the record to an *oauth2.Token. The Expiry is zero when no
// lifetime hint was stored, which oauth2 treats as "never known-expired".
func (c *Credentials) Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: c.RefreshToken,
	}
	if c.ExpiresIn > 0 && c.IssuedAt > 0 {
		tok.Expiry = time.Unix(c.IssuedAt, 0).Add(time.Duration(c.ExpiresIn) * time.Second)
	}
	return tok
}

// HasUsableAccessToken reports whether the stored access token can be used
// as-is: present, paired with an instance URL, and not known-expired.
func (c *Credentials) HasUsableAccessToken() bool {
	return c.InstanceURL != "" && c.Token().Valid()
}

// Settings are the non-credential knobs the tool reads from the document.
// They are read-only here; Save never rewrites them.
type Settings struct {
	// Domain selects the login host: "login", "test", or a My Domain name.
	Domain string `json:"domain"`

	// APIVersion is the Salesforce REST/Bulk API version, e.g. "59.0".
	APIVersion string `json:"api_version"`

	// Scopes is the space-separated OAuth scope string for the
	// authorization request.
	Scopes string `json:"scopes,omitempty"`

	// CallbackPort and CallbackPath form the local redirect URI. Both must
	// match the redirect URI registered on the connected app.
	CallbackPort int    `json:"callback_port,omitempty"`
	CallbackPath string `json:"callback_path,omitempty"`

	// CallbackTimeoutSeconds bounds the wait for the browser redirect.
	CallbackTimeoutSeconds int `json:"callback_timeout,omitempty"`
}

// DefaultScopes is the scope set the original connected app was registered
// with: API access plus a refresh token for non-interactive reruns.
const DefaultScopes = "api refresh_token offline_access"

// BulkSettings configure the Bulk API 2.0 job polling loop.
type BulkSettings struct {
	PollingIntervalSeconds int `json:"polling_interval"`
	TimeoutSeconds         int `json:"timeout"`
}

// CertiniaSettings map logical section names to Certinia object API names.
type CertiniaSettings struct {
	Objects map[string]string `json:"objects"`
}

// File is a loaded configuration document.
type File struct {
	AuthMethod  string
	Credentials *Credentials
	Settings    Settings
	Bulk        BulkSettings
	Certinia    CertiniaSettings
}

// LoginHost returns the base URL of the authorization/token host derived
// from the configured domain.
func (f *File) LoginHost() string {
	switch f.Settings.Domain {
	case "", "login":
		return "https://login.salesforce.com"
	case "test":
		return "https://test.salesforce.com"
	default:
		return "https://" + f.Settings.Domain + ".my.salesforce.com"
	}
}

// CallbackTimeout returns the configured browser wait as a duration, or
// zero when unset (the caller applies its default).
func (f *File) CallbackTimeout() time.Duration {
	if f.Settings.CallbackTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(f.Settings.CallbackTimeoutSeconds) * time.Second
}
