package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	stateIssuer   = "idp-login"
	stateAudience = "idp-login/login-state"
)

// StateClaims is the payload of the signed state sent through the provider.
type StateClaims struct {
	// CSRF binds the state to the browser session that started the login.
	CSRF string `json:"csrf"`
	// Next is the local path to return to after login.
	Next string `json:"next,omitempty"`
	jwt.RegisteredClaims
}

// StateSigner issues and validates HS256 signed state values.
type StateSigner struct {
	key    []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewStateSigner returns a signer using secret as HMAC key. States older than
// maxAge are rejected.
func NewStateSigner(secret string, maxAge time.Duration) *StateSigner {
	return &StateSigner{
		key:    []byte(secret),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Sign returns a state value binding csrf and the optional next target.
func (s *StateSigner) Sign(csrf, next string) (string, error) {
	now := s.now()

	claims := StateClaims{
		CSRF: csrf,
		Next: next,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    stateIssuer,
			Audience:  jwt.ClaimStrings{stateAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.maxAge)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key) //nolint:wrapcheck
}

// Verify checks signature, age and CSRF binding of raw. Every failure wraps
// ErrStateInvalid.
func (s *StateSigner) Verify(raw, csrf string) (*StateClaims, error) {
	if raw == "" {
		return nil, stateError(ErrStateMissing)
	}

	claims := &StateClaims{}

	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return s.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithAudience(stateAudience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, stateError(ErrStateExpired)
	case err != nil:
		return nil, stateError(errors.Join(ErrStateTampered, err))
	}

	// the signer's own max age wins over the exp claim when it was lowered
	if claims.IssuedAt == nil || s.now().Sub(claims.IssuedAt.Time) > s.maxAge {
		return nil, stateError(ErrStateExpired)
	}

	if csrf == "" || subtle.ConstantTimeCompare([]byte(claims.CSRF), []byte(csrf)) != 1 {
		return nil, stateError(ErrCSRFMismatch)
	}

	return claims, nil
}
