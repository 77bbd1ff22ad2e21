// Package oidc registers the identity provider login routes.
//
//	GET /auth/login    - redirect to the provider, optional ?next=/local/path
//	GET /auth/callback - provider redirect target (path is configurable)
//	GET /auth/logoff   - end the local session and the provider session
//
// Failures are returned to the fiber error handler: an invalid state renders
// 400, a token error 401. A callback whose token maps to no usable user
// redirects to the login page instead.
package oidc
