package auth

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T) (*Backend, *fakeClient, *memUsers) {
	t.Helper()

	client := &fakeClient{result: &TokenResult{
		AccessToken: testToken(t, jwt.MapClaims{
			ClaimObjectID:   "oid-1",
			ClaimEmail:      "jane@example.com",
			ClaimGivenName:  "Jane",
			ClaimFamilyName: "Doe",
		}),
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(time.Hour),
	}}
	users := newMemUsers()

	b := NewBackend(client, NewStateSigner(testSecret, 5*time.Minute), NewMapper(users, ""), BackendConfig{
		Scopes:                []string{"User.Read"},
		SiteDomain:            "login.example",
		CallbackPath:          "/auth/callback",
		PostLogoutRedirectURL: "https://login.example/",
	})

	return b, client, users
}

// startLogin runs the login step and returns the state handed to the provider.
func startLogin(t *testing.T, b *Backend, sess memSession, next string) string {
	t.Helper()

	authURL, err := b.LoginURL(sess, "https", next)
	require.NoError(t, err)

	u, err := url.Parse(authURL)
	require.NoError(t, err)

	return u.Query().Get("state")
}

func TestLoginURL(t *testing.T) {
	b, _, _ := newTestBackend(t)
	sess := memSession{}

	state := startLogin(t, b, sess, "/reports")
	require.NotEmpty(t, state)

	csrf, ok := sess[KeyCSRFToken].(string)
	require.True(t, ok)
	assert.Len(t, csrf, csrfTokenLen)
	assert.Equal(t, "/reports", sess[KeyNextURL])
	assert.Contains(t, sess[KeyAuthFlow], `"redirect_uri":"https://login.example/auth/callback"`)

	// the CSRF token is reused across attempts
	startLogin(t, b, sess, "")
	assert.Equal(t, csrf, sess[KeyCSRFToken])
	assert.NotContains(t, sess, KeyNextURL)
}

func TestLoginURLDropsForeignNext(t *testing.T) {
	b, _, _ := newTestBackend(t)
	sess := memSession{}

	startLogin(t, b, sess, "https://evil.example/")
	assert.NotContains(t, sess, KeyNextURL)
}

func TestCallback(t *testing.T) {
	b, client, users := newTestBackend(t)
	sess := memSession{}

	state := startLogin(t, b, sess, "/reports")

	res, err := b.Callback(context.Background(), sess, url.Values{"state": {state}, "code": {"abc"}})
	require.NoError(t, err)

	assert.Equal(t, 1, client.exchanges)
	assert.Equal(t, "/reports", res.Next)
	assert.Equal(t, "oid-1", res.User.Username)
	assert.Equal(t, "Jane", res.User.FirstName)
	assert.Len(t, users.byExternalID, 1)

	assert.NotContains(t, sess, KeyAuthFlow)
	assert.NotContains(t, sess, KeyNextURL)

	cache := CachedToken(sess)
	require.NotNil(t, cache)
	assert.Equal(t, client.result.AccessToken, cache.AccessToken)
	assert.Equal(t, "refresh", cache.RefreshToken)
}

func TestCallbackDefaultNext(t *testing.T) {
	b, _, _ := newTestBackend(t)
	sess := memSession{}

	state := startLogin(t, b, sess, "")

	res, err := b.Callback(context.Background(), sess, url.Values{"state": {state}, "code": {"abc"}})
	require.NoError(t, err)
	assert.Equal(t, DefaultRedirect, res.Next)
}

func TestCallbackInvalidStateSkipsExchange(t *testing.T) {
	tests := []struct {
		name  string
		query func(state string) url.Values
	}{
		{"missing", func(string) url.Values { return url.Values{"code": {"abc"}} }},
		{"tampered", func(state string) url.Values { return url.Values{"state": {state + "x"}, "code": {"abc"}} }},
		{"forged", func(string) url.Values {
			forged, _ := NewStateSigner(testSecret, time.Minute).Sign("other-session", "")
			return url.Values{"state": {forged}, "code": {"abc"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, client, _ := newTestBackend(t)
			sess := memSession{}
			state := startLogin(t, b, sess, "")

			_, err := b.Callback(context.Background(), sess, tt.query(state))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrStateInvalid)
			assert.Zero(t, client.exchanges)
		})
	}
}

func TestCallbackReplay(t *testing.T) {
	b, client, _ := newTestBackend(t)
	sess := memSession{}

	state := startLogin(t, b, sess, "")
	query := url.Values{"state": {state}, "code": {"abc"}}

	_, err := b.Callback(context.Background(), sess, query)
	require.NoError(t, err)

	_, err = b.Callback(context.Background(), sess, query)
	assert.ErrorIs(t, err, ErrStateInvalid)
	assert.ErrorIs(t, err, ErrStateMissing)
	assert.Equal(t, 1, client.exchanges)
}

func TestCallbackTokenError(t *testing.T) {
	b, client, users := newTestBackend(t)
	client.err = &TokenError{Code: "invalid_grant", Description: "code expired"}
	sess := memSession{}

	state := startLogin(t, b, sess, "")

	_, err := b.Callback(context.Background(), sess, url.Values{"state": {state}, "code": {"abc"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenError)

	var te *TokenError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "invalid_grant : code expired", te.Error())
	assert.Empty(t, users.byExternalID)
	assert.NotContains(t, sess, KeyTokenCache)
}

func TestCallbackUserNotResolved(t *testing.T) {
	b, client, _ := newTestBackend(t)
	client.result = &TokenResult{AccessToken: testToken(t, jwt.MapClaims{ClaimEmail: "x@example.com"})}
	sess := memSession{}

	state := startLogin(t, b, sess, "")

	_, err := b.Callback(context.Background(), sess, url.Values{"state": {state}, "code": {"abc"}})
	assert.ErrorIs(t, err, ErrUserNotResolved)
	assert.ErrorIs(t, err, ErrMissingSubject)
}

func TestCallbackVerifiedClaims(t *testing.T) {
	b, client, _ := newTestBackend(t)
	b.cfg.VerifyIDToken = true
	sess := memSession{}

	state := startLogin(t, b, sess, "")
	query := url.Values{"state": {state}, "code": {"abc"}}

	_, err := b.Callback(context.Background(), sess, query)
	assert.ErrorIs(t, err, ErrUserNotResolved)
	assert.ErrorIs(t, err, ErrNoIDToken)

	client.result.IDTokenClaims = Claims{ClaimObjectID: "oid-9"}
	state = startLogin(t, b, sess, "")

	res, err := b.Callback(context.Background(), sess, url.Values{"state": {state}, "code": {"abc"}})
	require.NoError(t, err)
	assert.Equal(t, "oid-9", res.User.Username)
}

func TestSignOut(t *testing.T) {
	b, _, _ := newTestBackend(t)

	sess := memSession{KeyTokenCache: "{}"}
	assert.Equal(t,
		"https://idp.example/logout?post_logout_redirect_uri=https%3A%2F%2Flogin.example%2F",
		b.SignOut(sess))
	assert.NotContains(t, sess, KeyTokenCache)

	// no token cached
	assert.NotPanics(t, func() { b.SignOut(memSession{}) })
}
