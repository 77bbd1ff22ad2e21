package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claim names read from identity tokens.
const (
	ClaimObjectID          = "oid"
	ClaimSubject           = "sub"
	ClaimEmail             = "email"
	ClaimUPN               = "upn"
	ClaimPreferredUsername = "preferred_username"
	ClaimGivenName         = "given_name"
	ClaimFamilyName        = "family_name"
)

// Claims is a decoded token payload.
type Claims map[string]any

// String returns the claim as string, empty when absent or not a string.
func (c Claims) String(name string) string {
	s, _ := c[name].(string)
	return s
}

// Has reports whether the claim is present as non-empty string.
func (c Claims) Has(name string) bool {
	return c.String(name) != ""
}

// FirstString returns the first non-empty string claim of names.
func (c Claims) FirstString(names ...string) string {
	for _, n := range names {
		if s := c.String(n); s != "" {
			return s
		}
	}

	return ""
}

// DecodeUnverified decodes the payload segment of a JWT without checking its
// signature. Only use it on tokens received directly from the provider's token
// endpoint over TLS.
func DecodeUnverified(token string) (Claims, error) {
	mc := jwt.MapClaims{}

	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}

	return Claims(mc), nil
}
