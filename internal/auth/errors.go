package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrStateInvalid is returned when the state sent back by the provider can not be trusted.
	// It always wraps one of the more specific state errors below.
	ErrStateInvalid = errors.New("invalid login state")

	// ErrStateMissing is returned when the callback carries no state or no pending flow exists.
	ErrStateMissing = errors.New("state missing")

	// ErrStateTampered is returned when the state signature or its claims do not check out.
	ErrStateTampered = errors.New("state signature mismatch")

	// ErrStateExpired is returned when the state is older than the allowed max age.
	ErrStateExpired = errors.New("state signature expired")

	// ErrCSRFMismatch is returned when the state was issued for another browser session.
	ErrCSRFMismatch = errors.New("state csrf token does not match session")

	// ErrTokenError matches every *TokenError with errors.Is.
	ErrTokenError = errors.New("token error")

	// ErrUserNotResolved is returned when no local user could be derived from the token.
	// Handlers redirect to the login page instead of showing an error.
	ErrUserNotResolved = errors.New("user not resolved")

	// ErrMissingSubject is returned when the token has no subject identifier claim.
	ErrMissingSubject = errors.New("token has no subject identifier")

	// ErrNoIDToken is returned when ID token verification is on and the provider sent none.
	ErrNoIDToken = errors.New("token response has no id_token")

	// ErrMalformedToken is returned when a token payload can not be decoded.
	ErrMalformedToken = errors.New("malformed token")

	// ErrUserAccountDisabled is returned for inactive users.
	ErrUserAccountDisabled = errors.New("user account is disabled")

	// ErrInvalidCredentials is returned when a local username/password pair does not match.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrLocalAuthDisabled is returned when local login is switched off.
	ErrLocalAuthDisabled = errors.New("local authentication is disabled")
)

// TokenError carries the error code and description returned by the provider
// when no token could be obtained.
type TokenError struct {
	Code        string
	Description string
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("%s : %s", e.Code, e.Description)
}

// Is makes errors.Is(err, ErrTokenError) true for any *TokenError.
func (e *TokenError) Is(target error) bool {
	return target == ErrTokenError
}

func stateError(reason error) error {
	return fmt.Errorf("%w: %w", ErrStateInvalid, reason)
}
