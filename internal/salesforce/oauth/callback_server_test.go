package oauth

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"
)

// Each test gets its own port: the listener binds a fixed port by design,
// so parallel tests must not share one.

func startTestServer(t *testing.T, port int, path string) (*CallbackServer, string) {
	t.Helper()

	server := NewCallbackServer(port, path)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	redirectURI, err := server.Start(ctx)
	if err != nil {
		t.Fatalf("Failed to start callback server: %v", err)
	}
	t.Cleanup(server.Stop)

	return server, redirectURI
}

func TestCallbackServer_RedirectURI(t *testing.T) {
	server := NewCallbackServer(0, "")
	if got := server.RedirectURI(); got != "http://localhost:8080/callback" {
		t.Errorf("RedirectURI() = %q, want default port and path", got)
	}

	server = NewCallbackServer(18431, "/oauth/callback")
	if got := server.RedirectURI(); got != "http://localhost:18431/oauth/callback" {
		t.Errorf("RedirectURI() = %q", got)
	}
}

func TestCallbackServer_Success(t *testing.T) {
	server, redirectURI := startTestServer(t, 18432, "/callback")

	resp, err := http.Get(redirectURI + "?code=AUTH123&state=expected-state")
	if err != nil {
		t.Fatalf("callback request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("callback response status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(body), "Authentication complete") {
		t.Error("confirmation page does not tell the user authentication completed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := server.WaitForCallback(ctx)
	if err != nil {
		t.Fatalf("WaitForCallback failed: %v", err)
	}
	if result.Code != "AUTH123" {
		t.Errorf("Code = %q, want AUTH123", result.Code)
	}
	if result.State != "expected-state" {
		t.Errorf("State = %q, want expected-state", result.State)
	}
	if result.IsError() {
		t.Error("IsError() = true for a success callback")
	}
}

func TestCallbackServer_Denied(t *testing.T) {
	server, redirectURI := startTestServer(t, 18433, "/callback")

	q := url.Values{
		"error":             {"access_denied"},
		"error_description": {"end-user denied the request"},
	}
	resp, err := http.Get(redirectURI + "?" + q.Encode())
	if err != nil {
		t.Fatalf("callback request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if !strings.Contains(string(body), "access_denied") {
		t.Error("error page does not show the OAuth error code")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := server.WaitForCallback(ctx)
	if err != nil {
		t.Fatalf("WaitForCallback failed: %v", err)
	}
	if !result.IsError() {
		t.Fatal("IsError() = false for a denial callback")
	}
	if result.Error != "access_denied" {
		t.Errorf("Error = %q, want access_denied", result.Error)
	}
	if result.ErrorDescription != "end-user denied the request" {
		t.Errorf("ErrorDescription = %q", result.ErrorDescription)
	}
}

func TestCallbackServer_SecondCallbackRejected(t *testing.T) {
	_, redirectURI := startTestServer(t, 18434, "/callback")

	resp, err := http.Get(redirectURI + "?code=first&state=s")
	if err != nil {
		t.Fatalf("first callback failed: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(redirectURI + "?code=second&state=s")
	if err != nil {
		// The server may already be shutting down; that also counts as
		// not accepting the second code.
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("second callback status = %d, want 400", resp.StatusCode)
	}
}

func TestCallbackServer_PortUnavailable(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:18435")
	if err != nil {
		t.Skipf("could not occupy test port: %v", err)
	}
	defer listener.Close()

	server := NewCallbackServer(18435, "/callback")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err = server.Start(ctx)
	if err == nil {
		server.Stop()
		t.Fatal("Start() succeeded on an occupied port")
	}

	var portErr *PortUnavailableError
	if !errors.As(err, &portErr) {
		t.Fatalf("error = %v, want *PortUnavailableError", err)
	}
	if portErr.Port != 18435 {
		t.Errorf("PortUnavailableError.Port = %d, want 18435", portErr.Port)
	}
	if !strings.Contains(err.Error(), "callback_port") {
		t.Errorf("error message should point the user at the config knob: %v", err)
	}
}

func TestCallbackServer_Timeout_ReleasesPort(t *testing.T) {
	server := NewCallbackServer(18436, "/callback")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := server.Start(ctx); err != nil {
		t.Fatalf("Failed to start callback server: %v", err)
	}

	waitCtx, waitCancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer waitCancel()

	_, err := server.WaitForCallback(waitCtx)
	if !errors.Is(err, ErrCallbackTimeout) {
		t.Fatalf("WaitForCallback error = %v, want ErrCallbackTimeout", err)
	}

	// The port must be rebindable immediately so a retry can run.
	deadline := time.Now().Add(2 * time.Second)
	for {
		listener, err := net.Listen("tcp", "127.0.0.1:18436")
		if err == nil {
			listener.Close()
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("port not released after timeout: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
