// Package auth signs users in through an OAuth2/OIDC identity provider.
//
// The flow has three steps:
//   - Backend.LoginURL signs a state bound to the session CSRF token, starts an
//     auth-code flow on the Client and keeps the flow in session.
//   - Backend.Callback verifies the state, consumes the flow, redeems the code
//     and resolves the local user through the Mapper.
//   - Backend.SignOut drops the cached token and returns the provider logout URL.
//
// OIDCClient implements Client with go-oidc discovery and x/oauth2 (nonce and
// PKCE S256). LocalProvider is the argon2id username/password fallback.
package auth
