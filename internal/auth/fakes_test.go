package auth

import (
	"context"
	"net/url"

	"github.com/idp-login/idp-login/internal/db/models"
)

// memSession is an in-memory Session.
type memSession map[string]interface{}

func (s memSession) Get(key string) interface{}      { return s[key] }
func (s memSession) Set(key string, val interface{}) { s[key] = val }
func (s memSession) Delete(key string)               { delete(s, key) }

// memUsers is an in-memory UserRepository.
type memUsers struct {
	byExternalID map[string]*models.User
	saves        int
	nextID       uint64
}

func newMemUsers() *memUsers {
	return &memUsers{byExternalID: map[string]*models.User{}}
}

func (r *memUsers) GetOrNew(_ context.Context, externalID string) (*models.User, bool, error) {
	if u, ok := r.byExternalID[externalID]; ok {
		cp := *u
		return &cp, false, nil
	}

	return &models.User{ExternalID: externalID, AuthSource: models.AuthSourceOIDC, Active: true}, true, nil
}

func (r *memUsers) Save(_ context.Context, u *models.User) error {
	if u.ID == 0 {
		r.nextID++
		u.ID = r.nextID
	}

	cp := *u
	r.byExternalID[u.ExternalID] = &cp
	r.saves++

	return nil
}

// fakeClient is a Client that records exchanges and answers with a canned result.
type fakeClient struct {
	exchanges int
	result    *TokenResult
	err       error
	lastFlow  *AuthFlow
}

func (c *fakeClient) InitiateAuthCodeFlow(scopes []string, state, redirectURI string) (*AuthFlow, error) {
	return &AuthFlow{
		State:       state,
		Scopes:      scopes,
		RedirectURI: redirectURI,
		Nonce:       "nonce",
		AuthURI:     "https://idp.example/authorize?state=" + url.QueryEscape(state),
	}, nil
}

func (c *fakeClient) AcquireTokenByAuthCodeFlow(_ context.Context, flow *AuthFlow, response url.Values) (*TokenResult, error) {
	c.exchanges++
	c.lastFlow = flow

	if response.Get("state") != flow.State {
		return nil, &TokenError{Code: CodeStateMismatch, Description: "state mismatch"}
	}

	if c.err != nil {
		return nil, c.err
	}

	return c.result, nil
}

func (c *fakeClient) LogoutURL(postLogoutRedirectURI string) string {
	return logoutURL("https://idp.example/logout", postLogoutRedirectURI)
}
