package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const (
	// verifierBytes is the number of random bytes for the PKCE code verifier.
	// 32 bytes provides 256 bits of entropy, which is recommended for security.
	verifierBytes = 32

	// stateBytes is the number of random bytes for the OAuth state parameter.
	// 32 bytes encodes to 43 base64url characters, satisfying servers that
	// require a minimum of 32 characters.
	stateBytes = 32
)

// Attempt holds the single-use secrets for one authorization flow.
// It lives only in process memory and is discarded after the matching
// token exchange; nothing here is ever persisted.
type Attempt struct {
	// State is the anti-forgery token round-tripped through the redirect.
	// The callback must echo it back exactly or the code is rejected.
	State string

	// CodeVerifier is the cryptographically random secret. It is sent only
	// to the token endpoint, never embedded in the authorization URL.
	CodeVerifier string

	// CodeChallenge is the SHA256 hash of the verifier (base64url-encoded),
	// sent in the authorization request.
	CodeChallenge string

	// CodeChallengeMethod is always "S256"; plain is not supported.
	CodeChallengeMethod string
}

// NewAttempt generates the state, code verifier, and derived S256 code
// challenge for one authorization attempt.
func NewAttempt() (*Attempt, error) {
	verifier, challenge, err := generatePKCE()
	if err != nil {
		return nil, err
	}

	state, err := GenerateState()
	if err != nil {
		return nil, err
	}

	return &Attempt{
		State:               state,
		CodeVerifier:        verifier,
		CodeChallenge:       challenge,
		CodeChallengeMethod: "S256",
	}, nil
}

// generatePKCE generates a PKCE code verifier and its S256 challenge.
func generatePKCE() (verifier, challenge string, err error) {
	buf := make([]byte, verifierBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes for PKCE: %w", err)
	}

	// Base64url-encode the verifier (no padding, URL-safe)
	verifier = base64.RawURLEncoding.EncodeToString(buf)

	// S256 challenge: SHA256(verifier), base64url-encoded
	hash := sha256.Sum256([]byte(verifier))
	challenge = base64.RawURLEncoding.EncodeToString(hash[:])

	return verifier, challenge, nil
}

// GenerateState generates a random state parameter for OAuth. The state
// links the authorization response back to the request that initiated it
// and prevents CSRF.
func GenerateState() (string, error) {
	buf := make([]byte, stateBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
