package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/idp-login/idp-login/internal/db/models"
	"github.com/idp-login/idp-login/internal/uniuri"
)

// Session keys used by the login flow.
const (
	KeyAuthFlow   = "auth_flow"
	KeyNextURL    = "next_url"
	KeyTokenCache = "token_cache"
	KeyCSRFToken  = "csrf_token"

	csrfTokenLen = 32
)

// Session is the part of a web session the login flow reads and writes.
// *session.Session of fiber satisfies it.
type Session interface {
	Get(key string) interface{}
	Set(key string, val interface{})
	Delete(key string)
}

// BackendConfig configures the login flow.
type BackendConfig struct {
	Scopes []string
	// SiteDomain is the host[:port] the callback URL is built on.
	SiteDomain   string
	CallbackPath string
	// PostLogoutRedirectURL is passed to the provider end-session endpoint when set.
	PostLogoutRedirectURL string
	// VerifyIDToken maps users from verified ID token claims instead of the access token.
	VerifyIDToken bool
}

// CallbackResult is the outcome of a successful callback.
type CallbackResult struct {
	User  *models.User
	Next  string
	Token *TokenCache
}

// Backend runs the login, callback and sign-out steps against a provider client.
type Backend struct {
	client Client
	signer *StateSigner
	mapper *Mapper
	cfg    BackendConfig
}

// NewBackend returns a Backend. All collaborators are required.
func NewBackend(client Client, signer *StateSigner, mapper *Mapper, cfg BackendConfig) *Backend {
	return &Backend{
		client: client,
		signer: signer,
		mapper: mapper,
		cfg:    cfg,
	}
}

// CSRFToken returns the CSRF token of sess, creating one when missing.
func CSRFToken(sess Session) string {
	if token, ok := sess.Get(KeyCSRFToken).(string); ok && token != "" {
		return token
	}

	token := uniuri.NewLen(csrfTokenLen)
	sess.Set(KeyCSRFToken, token)

	return token
}

// CallbackURL returns the absolute redirect URI registered with the provider.
func (b *Backend) CallbackURL(scheme string) string {
	return scheme + "://" + b.cfg.SiteDomain + b.cfg.CallbackPath
}

// LoginURL starts a new flow and returns the provider authorization URL.
// next is kept only when it is a local path.
func (b *Backend) LoginURL(sess Session, scheme, next string) (string, error) {
	if !IsLocalPath(next) {
		next = ""
	}

	state, err := b.signer.Sign(CSRFToken(sess), next)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}

	flow, err := b.client.InitiateAuthCodeFlow(b.cfg.Scopes, state, b.CallbackURL(scheme))
	if err != nil {
		return "", fmt.Errorf("failed to initiate auth code flow: %w", err)
	}

	encoded, err := encodeJSON(flow)
	if err != nil {
		return "", fmt.Errorf("failed to encode auth flow: %w", err)
	}

	sess.Set(KeyAuthFlow, encoded)

	if next != "" {
		sess.Set(KeyNextURL, next)
	} else {
		sess.Delete(KeyNextURL)
	}

	return flow.AuthURI, nil
}

// Callback validates the provider response in query, redeems the code and
// resolves the local user. The pending flow is consumed even on failure.
func (b *Backend) Callback(ctx context.Context, sess Session, query url.Values) (*CallbackResult, error) {
	state, err := b.signer.Verify(query.Get("state"), sessionString(sess, KeyCSRFToken))
	if err != nil {
		loginOutcome.WithLabelValues(outcomeStateInvalid).Inc()
		return nil, err
	}

	flow, err := popFlow(sess)
	if err != nil {
		loginOutcome.WithLabelValues(outcomeStateInvalid).Inc()
		return nil, err
	}

	next := popNext(sess)
	if state.Next != "" {
		next = state.Next
	}

	token, err := b.client.AcquireTokenByAuthCodeFlow(ctx, flow, query)
	if err != nil {
		loginOutcome.WithLabelValues(outcomeTokenError).Inc()
		return nil, fmt.Errorf("failed to acquire token: %w", err)
	}

	claims, err := b.claims(token)
	if err != nil {
		loginOutcome.WithLabelValues(outcomeUserNotResolved).Inc()
		return nil, fmt.Errorf("%w: %w", ErrUserNotResolved, err)
	}

	user, err := b.mapper.Resolve(ctx, claims)
	if err != nil {
		loginOutcome.WithLabelValues(outcomeUserNotResolved).Inc()
		return nil, fmt.Errorf("%w: %w", ErrUserNotResolved, err)
	}

	cache := &TokenCache{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		IDToken:      token.IDToken,
		Expiry:       token.Expiry,
	}

	encoded, err := encodeJSON(cache)
	if err != nil {
		return nil, fmt.Errorf("failed to encode token cache: %w", err)
	}

	sess.Set(KeyTokenCache, encoded)
	loginOutcome.WithLabelValues(outcomeSuccess).Inc()

	return &CallbackResult{
		User:  user,
		Next:  SafeRedirect(next),
		Token: cache,
	}, nil
}

func (b *Backend) claims(token *TokenResult) (Claims, error) {
	if b.cfg.VerifyIDToken {
		if token.IDTokenClaims == nil {
			return nil, ErrNoIDToken
		}

		return token.IDTokenClaims, nil
	}

	return DecodeUnverified(token.AccessToken)
}

// SignOut drops the cached token from sess and returns the provider logout URL.
// Destroying the session itself is up to the caller.
func (b *Backend) SignOut(sess Session) string {
	sess.Delete(KeyTokenCache)
	logoutTotal.Inc()

	return b.client.LogoutURL(b.cfg.PostLogoutRedirectURL)
}

// CachedToken returns the token cached in sess at login, nil when absent.
func CachedToken(sess Session) *TokenCache {
	raw := sessionString(sess, KeyTokenCache)
	if raw == "" {
		return nil
	}

	cache := &TokenCache{}
	if err := json.Unmarshal([]byte(raw), cache); err != nil {
		log.Warn().Err(err).Msg("dropping unreadable token cache")
		return nil
	}

	return cache
}

func popFlow(sess Session) (*AuthFlow, error) {
	raw := sessionString(sess, KeyAuthFlow)
	sess.Delete(KeyAuthFlow)

	if raw == "" {
		return nil, stateError(ErrStateMissing)
	}

	flow := &AuthFlow{}
	if err := json.Unmarshal([]byte(raw), flow); err != nil {
		return nil, stateError(errors.Join(ErrStateTampered, err))
	}

	return flow, nil
}

func popNext(sess Session) string {
	next := sessionString(sess, KeyNextURL)
	sess.Delete(KeyNextURL)

	return next
}

func sessionString(sess Session, key string) string {
	s, _ := sess.Get(key).(string)
	return s
}
