package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_ExchangeCode(t *testing.T) {
	var gotForm map[string]string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm failed: %v", err)
		}
		gotForm = map[string]string{}
		for k := range r.PostForm {
			gotForm[k] = r.PostForm.Get(k)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token": "00Dxx!access",
			"refresh_token": "5Aep_refresh",
			"instance_url": "https://acme.my.salesforce.com",
			"issued_at": "1756300000000"
		}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "client-id", "client-secret", nil)

	set, err := client.ExchangeCode(context.Background(), "AUTH123", "verifier-xyz", "http://localhost:8080/callback")
	if err != nil {
		t.Fatalf("ExchangeCode failed: %v", err)
	}

	want := map[string]string{
		"grant_type":    "authorization_code",
		"code":          "AUTH123",
		"code_verifier": "verifier-xyz",
		"client_id":     "client-id",
		"client_secret": "client-secret",
		"redirect_uri":  "http://localhost:8080/callback",
	}
	for k, v := range want {
		if gotForm[k] != v {
			t.Errorf("form[%s] = %q, want %q", k, gotForm[k], v)
		}
	}
	if _, ok := gotForm["code_challenge"]; ok {
		t.Error("token request must carry the verifier, never the challenge")
	}

	if set.AccessToken != "00Dxx!access" {
		t.Errorf("AccessToken = %q", set.AccessToken)
	}
	if set.RefreshToken != "5Aep_refresh" {
		t.Errorf("RefreshToken = %q", set.RefreshToken)
	}
	if set.InstanceURL != "https://acme.my.salesforce.com" {
		t.Errorf("InstanceURL = %q", set.InstanceURL)
	}
}

func TestClient_Refresh(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if got := r.PostForm.Get("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q, want refresh_token", got)
		}
		if got := r.PostForm.Get("refresh_token"); got != "5Aep_old" {
			t.Errorf("refresh_token = %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		// No refresh_token in the response: the existing one stays valid.
		w.Write([]byte(`{"access_token": "new-access", "instance_url": "https://acme.my.salesforce.com"}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "client-id", "client-secret", nil)

	set, err := client.Refresh(context.Background(), "5Aep_old")
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if set.AccessToken != "new-access" {
		t.Errorf("AccessToken = %q", set.AccessToken)
	}
	if set.RefreshToken != "" {
		t.Errorf("RefreshToken = %q, want empty (provider did not rotate)", set.RefreshToken)
	}
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		refresh    bool
		wantReason ExchangeReason
		wantReauth bool
	}{
		{
			name:       "revoked refresh token requires reauthentication",
			status:     http.StatusBadRequest,
			body:       `{"error":"invalid_grant","error_description":"expired access/refresh token"}`,
			refresh:    true,
			wantReason: ReasonInvalidGrant,
			wantReauth: true,
		},
		{
			name:       "dead authorization code is terminal",
			status:     http.StatusBadRequest,
			body:       `{"error":"invalid_grant","error_description":"invalid authorization code"}`,
			wantReason: ReasonInvalidCode,
		},
		{
			name:       "invalid client credentials",
			status:     http.StatusUnauthorized,
			body:       `{"error":"invalid_client","error_description":"invalid client credentials"}`,
			wantReason: ReasonInvalidClient,
		},
		{
			name:       "redirect uri mismatch",
			status:     http.StatusBadRequest,
			body:       `{"error":"redirect_uri_mismatch","error_description":"redirect_uri must match configuration"}`,
			wantReason: ReasonRedirectMismatch,
		},
		{
			name:       "non-JSON body still yields a usable error",
			status:     http.StatusBadGateway,
			body:       `upstream timed out`,
			wantReason: ReasonServer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			client := NewClient(ts.URL, "id", "secret", nil)

			var err error
			if tt.refresh {
				_, err = client.Refresh(context.Background(), "5Aep_old")
			} else {
				_, err = client.ExchangeCode(context.Background(), "code", "verifier", "http://localhost:8080/callback")
			}
			if err == nil {
				t.Fatal("expected an error")
			}

			var exchErr *TokenExchangeError
			if !errors.As(err, &exchErr) {
				t.Fatalf("error = %v, want *TokenExchangeError", err)
			}
			if exchErr.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", exchErr.Reason, tt.wantReason)
			}
			if exchErr.Status != tt.status {
				t.Errorf("Status = %d, want %d", exchErr.Status, tt.status)
			}
			if got := ReauthRequired(err); got != tt.wantReauth {
				t.Errorf("ReauthRequired = %v, want %v", got, tt.wantReauth)
			}
		})
	}
}

func TestClient_NetworkFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // port is dead

	client := NewClient(ts.URL, "id", "secret", nil)

	_, err := client.Refresh(context.Background(), "token")
	var exchErr *TokenExchangeError
	if !errors.As(err, &exchErr) {
		t.Fatalf("error = %v, want *TokenExchangeError", err)
	}
	if exchErr.Reason != ReasonNetwork {
		t.Errorf("Reason = %q, want %q", exchErr.Reason, ReasonNetwork)
	}
}

func TestClient_IncompleteTokenResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token": "x"}`)) // no instance_url
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "id", "secret", nil)

	_, err := client.ExchangeCode(context.Background(), "code", "verifier", "uri")
	var exchErr *TokenExchangeError
	if !errors.As(err, &exchErr) {
		t.Fatalf("error = %v, want *TokenExchangeError", err)
	}
	if exchErr.Reason != ReasonServer {
		t.Errorf("Reason = %q, want %q", exchErr.Reason, ReasonServer)
	}
}

func TestTokenSet_Expiry(t *testing.T) {
	var zero TokenSet
	if !zero.Expiry().IsZero() {
		t.Error("Expiry() should be zero without an expires_in hint")
	}

	set := TokenSet{ExpiresIn: 3600}
	exp := set.Expiry()
	if exp.IsZero() {
		t.Fatal("Expiry() is zero despite expires_in")
	}
	if d := time.Until(exp); d < 59*time.Minute || d > 61*time.Minute {
		t.Errorf("Expiry() %v from now, want ~1h", d)
	}

	tok := set.OAuth2Token()
	if tok.TokenType != "Bearer" {
		t.Errorf("TokenType = %q, want Bearer", tok.TokenType)
	}
}
