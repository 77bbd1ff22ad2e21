package auth

import (
	"context"
	"encoding/json"
	"net/url"
	"time"
)

// AuthFlow is the per-login flow state kept in session between the redirect
// to the provider and the callback.
type AuthFlow struct {
	State        string   `json:"state"`
	Scopes       []string `json:"scopes"`
	RedirectURI  string   `json:"redirect_uri"`
	Nonce        string   `json:"nonce"`
	CodeVerifier string   `json:"code_verifier"`
	AuthURI      string   `json:"auth_uri"`
}

// TokenResult is what the provider returned for an authorization code.
type TokenResult struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
	// IDTokenClaims is set when the ID token was verified.
	IDTokenClaims Claims
}

// TokenCache is the token data kept in session after login.
type TokenCache struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	IDToken      string    `json:"id_token,omitempty"`
	Expiry       time.Time `json:"expiry"`
}

// Client is the identity provider SDK the login flow is built on.
type Client interface {
	// InitiateAuthCodeFlow prepares a flow and its authorization URL.
	InitiateAuthCodeFlow(scopes []string, state, redirectURI string) (*AuthFlow, error)
	// AcquireTokenByAuthCodeFlow redeems the callback response of flow.
	// Failures are returned as *TokenError.
	AcquireTokenByAuthCodeFlow(ctx context.Context, flow *AuthFlow, response url.Values) (*TokenResult, error)
	// LogoutURL returns the provider end-session URL.
	LogoutURL(postLogoutRedirectURI string) string
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err //nolint:wrapcheck
	}

	return string(b), nil
}
