package oauth

import (
	"errors"
	"fmt"
)

// ErrStateMismatch indicates the callback carried a state parameter that does
// not match the pending attempt. The authorization code is never accepted in
// this case; the callback may be forged or stale.
var ErrStateMismatch = errors.New("oauth state mismatch: callback does not belong to this authorization attempt")

// ErrCallbackTimeout indicates no redirect arrived on the local listener
// within the configured wait. Safe to retry with a fresh `auth login`.
var ErrCallbackTimeout = errors.New("timed out waiting for the browser authorization callback")

// PortUnavailableError indicates the local callback port could not be bound,
// usually because another process (or a previous hung run) holds it.
type PortUnavailableError struct {
	Port int
	Err  error
}

func (e *PortUnavailableError) Error() string {
	return fmt.Sprintf("callback port %d is unavailable (free the port or change callback_port in the config): %v", e.Port, e.Err)
}

func (e *PortUnavailableError) Unwrap() error {
	return e.Err
}

// AuthorizationDeniedError indicates the user or the identity provider
// declined the authorization request.
type AuthorizationDeniedError struct {
	// Code is the OAuth error code from the redirect, e.g. "access_denied".
	Code string

	// Description is the human-readable error_description, if any.
	Description string
}

func (e *AuthorizationDeniedError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authorization denied: %s - %s", e.Code, e.Description)
	}
	return fmt.Sprintf("authorization denied: %s", e.Code)
}

// ExchangeReason classifies token endpoint failures so callers can act on
// them: an invalid refresh token means "re-authenticate", an invalid client
// means "fix the connected app credentials", and so on.
type ExchangeReason string

const (
	// ReasonRedirectMismatch means the redirect_uri sent to the token
	// endpoint does not match the one registered on the connected app.
	ReasonRedirectMismatch ExchangeReason = "redirect_uri_mismatch"

	// ReasonInvalidClient means the client_id/client_secret pair was
	// rejected by the provider.
	ReasonInvalidClient ExchangeReason = "invalid_client"

	// ReasonInvalidCode means the authorization code was invalid, expired,
	// or already used. Codes are single-use; the whole flow must restart.
	ReasonInvalidCode ExchangeReason = "invalid_code"

	// ReasonInvalidGrant means the refresh token was revoked or invalid.
	// The caller should fall back to interactive re-authentication.
	ReasonInvalidGrant ExchangeReason = "invalid_grant"

	// ReasonNetwork means the token endpoint could not be reached or the
	// response could not be read.
	ReasonNetwork ExchangeReason = "network"

	// ReasonServer covers any other non-2xx token endpoint response.
	ReasonServer ExchangeReason = "server_error"
)

// TokenExchangeError is returned when a token endpoint call fails.
type TokenExchangeError struct {
	Reason ExchangeReason

	// Status is the HTTP status code, 0 for transport failures.
	Status int

	// Code and Description carry the provider's OAuth error payload.
	Code        string
	Description string

	Err error
}

func (e *TokenExchangeError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("token exchange failed (%s): %v", e.Reason, e.Err)
	case e.Description != "":
		return fmt.Sprintf("token exchange failed (%s): %s - %s", e.Reason, e.Code, e.Description)
	case e.Code != "":
		return fmt.Sprintf("token exchange failed (%s): %s", e.Reason, e.Code)
	default:
		return fmt.Sprintf("token exchange failed (%s): status %d", e.Reason, e.Status)
	}
}

func (e *TokenExchangeError) Unwrap() error {
	return e.Err
}

// ReauthRequired reports whether the error means the stored refresh token is
// dead and a new interactive authorization is needed.
func ReauthRequired(err error) bool {
	var exchErr *TokenExchangeError
	return errors.As(err, &exchErr) && exchErr.Reason == ReasonInvalidGrant
}
