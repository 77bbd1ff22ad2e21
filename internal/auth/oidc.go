package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/idp-login/idp-login/internal/uniuri"
)

const (
	// DefaultAuthorityHost is the Microsoft identity platform login host.
	DefaultAuthorityHost = "https://login.microsoftonline.com"

	defaultTenant = "common"
	nonceLen      = 32
)

// Token error codes raised by the client itself.
const (
	CodeStateMismatch      = "state_mismatch"
	CodeMissingCode        = "invalid_request"
	CodeTokenRequestFailed = "token_request_failed"
	CodeNoAccessToken      = "no_access_token"
	CodeNoIDToken          = "no_id_token"
	CodeInvalidIDToken     = "invalid_id_token"
	CodeNonceMismatch      = "nonce_mismatch"
)

// OIDCConfig holds the identity provider client settings.
type OIDCConfig struct {
	// TenantID selects the tenant of the Microsoft authority, "common" when empty.
	TenantID string
	// Authority overrides the issuer URL used for discovery.
	Authority    string
	ClientID     string
	ClientSecret string
	// LogoutURL is used when discovery has no end_session_endpoint.
	LogoutURL string
	// VerifyIDToken verifies the ID token and exposes its claims on TokenResult.
	VerifyIDToken bool
	// HTTPClient is used for discovery, keys and token requests when set.
	HTTPClient *http.Client
}

// OIDCClient implements Client on go-oidc discovery and x/oauth2.
// It is safe for concurrent use.
type OIDCClient struct {
	oauth2        oauth2.Config
	verifier      *oidc.IDTokenVerifier
	verifyIDToken bool
	endSession    string
	httpClient    *http.Client
}

// AuthorityURL returns the issuer URL for tenant, or authority when set.
func AuthorityURL(tenant, authority string) string {
	if authority != "" {
		return strings.TrimRight(authority, "/")
	}

	if tenant == "" {
		tenant = defaultTenant
	}

	return DefaultAuthorityHost + "/" + tenant + "/v2.0"
}

// isMultiTenant reports whether the Microsoft tenant alias issues tokens with
// per-tenant issuers that never equal the discovery URL.
func isMultiTenant(tenant string) bool {
	switch strings.ToLower(tenant) {
	case "", defaultTenant, "organizations", "consumers":
		return true
	default:
		return false
	}
}

// NewOIDCClient discovers the provider and builds the client. Call it once at startup.
func NewOIDCClient(ctx context.Context, cfg OIDCConfig) (*OIDCClient, error) {
	issuer := AuthorityURL(cfg.TenantID, cfg.Authority)
	skipIssuerCheck := cfg.Authority == "" && isMultiTenant(cfg.TenantID)

	if cfg.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, cfg.HTTPClient)
	}

	if skipIssuerCheck {
		ctx = oidc.InsecureIssuerURLContext(ctx, issuer)
	}

	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	var meta struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}

	if err = provider.Claims(&meta); err != nil {
		return nil, fmt.Errorf("failed to read provider metadata: %w", err)
	}

	endSession := meta.EndSessionEndpoint
	if endSession == "" {
		endSession = cfg.LogoutURL
	}

	return &OIDCClient{
		oauth2: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
		},
		verifier: provider.Verifier(&oidc.Config{
			ClientID:        cfg.ClientID,
			SkipIssuerCheck: skipIssuerCheck,
		}),
		verifyIDToken: cfg.VerifyIDToken,
		endSession:    endSession,
		httpClient:    cfg.HTTPClient,
	}, nil
}

func (c *OIDCClient) config(scopes []string, redirectURI string) oauth2.Config {
	conf := c.oauth2
	conf.RedirectURL = redirectURI
	conf.Scopes = scopes

	return conf
}

// InitiateAuthCodeFlow implements Client. The flow carries a nonce and a
// PKCE S256 verifier; "openid" is always requested.
func (c *OIDCClient) InitiateAuthCodeFlow(scopes []string, state, redirectURI string) (*AuthFlow, error) {
	if !slices.Contains(scopes, oidc.ScopeOpenID) {
		scopes = append([]string{oidc.ScopeOpenID}, scopes...)
	}

	flow := &AuthFlow{
		State:        state,
		Scopes:       scopes,
		RedirectURI:  redirectURI,
		Nonce:        uniuri.NewLen(nonceLen),
		CodeVerifier: oauth2.GenerateVerifier(),
	}

	conf := c.config(flow.Scopes, flow.RedirectURI)
	flow.AuthURI = conf.AuthCodeURL(state, oidc.Nonce(flow.Nonce), oauth2.S256ChallengeOption(flow.CodeVerifier))

	return flow, nil
}

// AcquireTokenByAuthCodeFlow implements Client.
func (c *OIDCClient) AcquireTokenByAuthCodeFlow(
	ctx context.Context,
	flow *AuthFlow,
	response url.Values,
) (*TokenResult, error) {
	if response.Get("state") != flow.State {
		return nil, &TokenError{Code: CodeStateMismatch, Description: "state returned by the provider does not match the flow"}
	}

	if code := response.Get("error"); code != "" {
		return nil, &TokenError{Code: code, Description: response.Get("error_description")}
	}

	code := response.Get("code")
	if code == "" {
		return nil, &TokenError{Code: CodeMissingCode, Description: "authorization code missing"}
	}

	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}

	conf := c.config(flow.Scopes, flow.RedirectURI)

	tok, err := conf.Exchange(ctx, code, oauth2.VerifierOption(flow.CodeVerifier))
	if err != nil {
		return nil, exchangeError(err)
	}

	if tok.AccessToken == "" {
		return nil, &TokenError{Code: CodeNoAccessToken, Description: "token response has no access_token"}
	}

	result := &TokenResult{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.Type(),
		Expiry:       tok.Expiry,
	}
	result.IDToken, _ = tok.Extra("id_token").(string)

	if !c.verifyIDToken {
		return result, nil
	}

	if result.IDToken == "" {
		return nil, &TokenError{Code: CodeNoIDToken, Description: ErrNoIDToken.Error()}
	}

	claims, err := c.verifyID(ctx, result.IDToken, flow.Nonce)
	if err != nil {
		return nil, err
	}

	result.IDTokenClaims = claims

	return result, nil
}

func (c *OIDCClient) verifyID(ctx context.Context, rawIDToken, nonce string) (Claims, error) {
	if c.httpClient != nil {
		ctx = oidc.ClientContext(ctx, c.httpClient)
	}

	idToken, err := c.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, &TokenError{Code: CodeInvalidIDToken, Description: err.Error()}
	}

	if idToken.Nonce != nonce {
		return nil, &TokenError{Code: CodeNonceMismatch, Description: "id_token nonce does not match the flow"}
	}

	claims := Claims{}
	if err = idToken.Claims(&claims); err != nil {
		return nil, &TokenError{Code: CodeInvalidIDToken, Description: err.Error()}
	}

	return claims, nil
}

func exchangeError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.ErrorCode != "" {
		return &TokenError{Code: re.ErrorCode, Description: re.ErrorDescription}
	}

	return &TokenError{Code: CodeTokenRequestFailed, Description: err.Error()}
}

// LogoutURL implements Client.
func (c *OIDCClient) LogoutURL(postLogoutRedirectURI string) string {
	return logoutURL(c.endSession, postLogoutRedirectURI)
}

func logoutURL(endSession, postLogoutRedirectURI string) string {
	if postLogoutRedirectURI == "" {
		return endSession
	}

	u, err := url.Parse(endSession)
	if err != nil {
		return endSession
	}

	q := u.Query()
	q.Set("post_logout_redirect_uri", postLogoutRedirectURI)
	u.RawQuery = q.Encode()

	return u.String()
}
