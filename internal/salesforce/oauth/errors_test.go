package oauth

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestReauthRequired(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"revoked refresh token", &TokenExchangeError{Reason: ReasonInvalidGrant}, true},
		{"wrapped revoked refresh token", fmt.Errorf("refresh: %w", &TokenExchangeError{Reason: ReasonInvalidGrant}), true},
		{"dead authorization code", &TokenExchangeError{Reason: ReasonInvalidCode}, false},
		{"network failure", &TokenExchangeError{Reason: ReasonNetwork}, false},
		{"unrelated error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReauthRequired(tt.err); got != tt.want {
				t.Errorf("ReauthRequired(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestTokenExchangeError_Message(t *testing.T) {
	withCause := &TokenExchangeError{Reason: ReasonNetwork, Err: errors.New("connection refused")}
	if !strings.Contains(withCause.Error(), "connection refused") {
		t.Errorf("Error() = %q, want the cause included", withCause.Error())
	}
	if !errors.Is(withCause, withCause.Err) {
		t.Error("Unwrap must expose the cause")
	}

	withPayload := &TokenExchangeError{
		Reason:      ReasonInvalidClient,
		Status:      401,
		Code:        "invalid_client",
		Description: "invalid client credentials",
	}
	msg := withPayload.Error()
	if !strings.Contains(msg, "invalid_client") || !strings.Contains(msg, "invalid client credentials") {
		t.Errorf("Error() = %q, want code and description included", msg)
	}

	bare := &TokenExchangeError{Reason: ReasonServer, Status: 503}
	if !strings.Contains(bare.Error(), "503") {
		t.Errorf("Error() = %q, want the status included", bare.Error())
	}
}

func TestAuthorizationDeniedError_Message(t *testing.T) {
	err := &AuthorizationDeniedError{Code: "access_denied", Description: "user said no"}
	if !strings.Contains(err.Error(), "access_denied") || !strings.Contains(err.Error(), "user said no") {
		t.Errorf("Error() = %q", err.Error())
	}

	short := &AuthorizationDeniedError{Code: "access_denied"}
	if !strings.Contains(short.Error(), "access_denied") {
		t.Errorf("Error() = %q", short.Error())
	}
}

func TestPortUnavailableError_Message(t *testing.T) {
	err := &PortUnavailableError{Port: 8080, Err: errors.New("address already in use")}
	if !strings.Contains(err.Error(), "8080") {
		t.Errorf("Error() = %q, want the port included", err.Error())
	}
	if !strings.Contains(err.Error(), "callback_port") {
		t.Errorf("Error() = %q, want a pointer to the config knob", err.Error())
	}
	if !errors.Is(err, err.Err) {
		t.Error("Unwrap must expose the bind error")
	}
}
