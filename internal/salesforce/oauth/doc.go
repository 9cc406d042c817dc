// Package oauth implements the OAuth 2.0 authorization-code-with-PKCE client
// used to obtain delegated Salesforce credentials for the reporting tool.
//
// Plain username/password logins are often unavailable on orgs behind SSO
// (SAML, Google, Microsoft), so the tool authenticates the way a connected
// app does: it opens the user's browser at the Salesforce authorization
// endpoint, receives the redirect on a short-lived local callback listener,
// and exchanges the authorization code for an access/refresh token pair.
//
// # Components
//
//   - NewAttempt generates the per-flow PKCE verifier/challenge and state.
//   - CallbackServer is the transient loopback HTTP listener that receives
//     exactly one redirect from the identity provider.
//   - OpenBrowser launches the system browser at the authorization URL.
//   - Client performs the two token-endpoint exchanges (authorization code
//     and refresh token).
//   - Manager orchestrates the pieces into a single Token() call that either
//     returns a usable {access token, instance URL} pair or a typed error.
//
// # Token lifecycle
//
// Manager.Token prefers the persisted access token, falls back to a refresh
// grant, and only then drives the interactive browser flow. A revoked or
// expired refresh token is self-healing: it triggers re-authentication
// instead of failing the run. New or rotated tokens are written back to the
// credential store before Token returns.
package oauth
