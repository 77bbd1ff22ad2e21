package web_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/idp-login/idp-login/internal/auth"
	"github.com/idp-login/idp-login/internal/config"
	"github.com/idp-login/idp-login/internal/db/controller/user"
	"github.com/idp-login/idp-login/internal/db/models"
	"github.com/idp-login/idp-login/internal/web"
	"github.com/idp-login/idp-login/internal/web/handler"
	"github.com/idp-login/idp-login/internal/web/session"
)

const (
	cookieName    = "session"
	providerLogin = "https://idp.example/authorize"
	providerOut   = "https://idp.example/logout"
)

// stubClient is an identity provider client answering with a canned token.
type stubClient struct {
	exchanges int
	claims    jwt.MapClaims
	err       error
}

func (c *stubClient) InitiateAuthCodeFlow(scopes []string, state, redirectURI string) (*auth.AuthFlow, error) {
	return &auth.AuthFlow{
		State:       state,
		Scopes:      scopes,
		RedirectURI: redirectURI,
		AuthURI:     providerLogin + "?state=" + url.QueryEscape(state),
	}, nil
}

func (c *stubClient) AcquireTokenByAuthCodeFlow(
	_ context.Context,
	flow *auth.AuthFlow,
	response url.Values,
) (*auth.TokenResult, error) {
	c.exchanges++

	if response.Get("state") != flow.State {
		return nil, &auth.TokenError{Code: auth.CodeStateMismatch}
	}

	if c.err != nil {
		return nil, c.err
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c.claims).SignedString([]byte("idp-key"))
	if err != nil {
		return nil, err
	}

	return &auth.TokenResult{AccessToken: raw, Expiry: time.Now().Add(time.Hour)}, nil
}

func (c *stubClient) LogoutURL(postLogoutRedirectURI string) string {
	return providerOut + "?post_logout_redirect_uri=" + url.QueryEscape(postLogoutRedirectURI)
}

type testEnv struct {
	app    *fiber.App
	client *stubClient
	users  *user.Repository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	cfg := &config.Config{
		Title: "idp-login",
		Webserver: config.Webserver{
			URL:     "http://login.example",
			Port:    8080,
			Session: config.Session{ExpiryTime: time.Hour, CookieName: cookieName},
		},
		Auth: config.Auth{
			LoginRedirectURL: "/login",
			SecretKey:        "0123456789abcdef0123456789abcdef",
			StateMaxAge:      5 * time.Minute,
			Provider: config.Provider{
				SiteDomain:            "login.example",
				CallbackPath:          "/auth/callback",
				PostLogoutRedirectURL: "http://login.example/login",
				Scopes:                []string{"User.Read"},
			},
		},
	}

	client := &stubClient{claims: jwt.MapClaims{
		auth.ClaimObjectID:   "oid-1",
		auth.ClaimUPN:        "jane@corp.example",
		auth.ClaimGivenName:  "Jane",
		auth.ClaimFamilyName: "Doe",
	}}
	users := user.New(db)

	backend := auth.NewBackend(
		client,
		auth.NewStateSigner(cfg.Auth.SecretKey, cfg.Auth.StateMaxAge),
		auth.NewMapper(users, auth.ClaimObjectID),
		auth.BackendConfig{
			Scopes:                cfg.Auth.Provider.Scopes,
			SiteDomain:            cfg.Auth.Provider.SiteDomain,
			CallbackPath:          cfg.Auth.Provider.CallbackPath,
			PostLogoutRedirectURL: cfg.Auth.Provider.PostLogoutRedirectURL,
		},
	)

	svc, err := web.New(cfg, &handler.Deps{
		Sessions: session.New(nil, cfg.Webserver.Session, true),
		Backend:  backend,
		Local:    auth.NewLocalProvider(users, true),
		Users:    users,
	})
	require.NoError(t, err)

	return &testEnv{app: svc.App, client: client, users: users}
}

func (e *testEnv) do(t *testing.T, method, target string, cookie *http.Cookie, form url.Values) *http.Response {
	t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	}

	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	return resp
}

func cookieOf(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == cookieName {
			return c
		}
	}

	return nil
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()

	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return string(b)
}

// login starts the provider login and returns the session cookie and the state.
func (e *testEnv) login(t *testing.T, next string) (*http.Cookie, string) {
	t.Helper()

	target := "/auth/login"
	if next != "" {
		target += "?next=" + url.QueryEscape(next)
	}

	resp := e.do(t, fiber.MethodGet, target, nil, nil)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get(fiber.HeaderLocation))
	require.NoError(t, err)
	assert.Equal(t, providerLogin, location.Scheme+"://"+location.Host+location.Path)

	cookie := cookieOf(resp)
	require.NotNil(t, cookie)

	return cookie, location.Query().Get("state")
}

func TestCheckAlive(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, fiber.MethodGet, web.CheckAlivePath, nil, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", readBody(t, resp))
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, fiber.MethodGet, web.MetricsPath, nil, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "go_goroutines")
}

func TestHomeRequiresLogin(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, fiber.MethodGet, "/", nil, nil)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get(fiber.HeaderLocation))
}

func TestProviderLogin(t *testing.T) {
	env := newTestEnv(t)

	cookie, state := env.login(t, "/?tab=profile")

	resp := env.do(t, fiber.MethodGet, "/auth/callback?code=abc&state="+url.QueryEscape(state), cookie, nil)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/?tab=profile", resp.Header.Get(fiber.HeaderLocation))

	signedIn := cookieOf(resp)
	require.NotNil(t, signedIn)
	assert.NotEqual(t, cookie.Value, signedIn.Value)

	resp = env.do(t, fiber.MethodGet, "/", signedIn, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	page := readBody(t, resp)
	assert.Contains(t, page, "Welcome, Jane Doe")
	assert.Contains(t, page, "jane@corp.example")

	u, err := env.users.GetByUsername(context.Background(), "oid-1")
	require.NoError(t, err)
	assert.Equal(t, models.AuthSourceOIDC, u.AuthSource)

	// the anonymous session id no longer works
	resp = env.do(t, fiber.MethodGet, "/", cookie, nil)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
}

func TestCallbackRejected(t *testing.T) {
	t.Run("invalid state", func(t *testing.T) {
		env := newTestEnv(t)
		cookie, _ := env.login(t, "")

		resp := env.do(t, fiber.MethodGet, "/auth/callback?code=abc&state=forged", cookie, nil)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Zero(t, env.client.exchanges)
	})

	t.Run("no session", func(t *testing.T) {
		env := newTestEnv(t)
		_, state := env.login(t, "")

		resp := env.do(t, fiber.MethodGet, "/auth/callback?code=abc&state="+url.QueryEscape(state), nil, nil)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Zero(t, env.client.exchanges)
	})

	t.Run("replayed", func(t *testing.T) {
		env := newTestEnv(t)
		cookie, state := env.login(t, "")
		target := "/auth/callback?code=abc&state=" + url.QueryEscape(state)

		env.client.err = &auth.TokenError{Code: "invalid_grant", Description: "code expired"}
		resp := env.do(t, fiber.MethodGet, target, cookie, nil)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "invalid_grant : code expired")

		resp = env.do(t, fiber.MethodGet, target, cookie, nil)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, 1, env.client.exchanges)
	})

	t.Run("user not resolved", func(t *testing.T) {
		env := newTestEnv(t)
		env.client.claims = jwt.MapClaims{auth.ClaimEmail: "nobody@example.com"}
		cookie, state := env.login(t, "")

		resp := env.do(t, fiber.MethodGet, "/auth/callback?code=abc&state="+url.QueryEscape(state), cookie, nil)
		assert.Equal(t, fiber.StatusFound, resp.StatusCode)
		assert.Equal(t, "/login", resp.Header.Get(fiber.HeaderLocation))
	})
}

func TestLoginPage(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, fiber.MethodGet, "/login", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	page := readBody(t, resp)
	assert.Contains(t, page, providerLogin+"?state=")
	assert.Contains(t, page, `name="password"`)
}

func TestLocalLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hash, err := models.HashPassword("s3cret")
	require.NoError(t, err)
	require.NoError(t, env.users.Save(ctx, &models.User{
		Username: "admin", Password: hash, AuthSource: models.AuthSourceLocal, Active: true,
	}))

	resp := env.do(t, fiber.MethodPost, "/login", nil, url.Values{"username": {"admin"}, "password": {"wrong"}})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), auth.ErrInvalidCredentials.Error())

	resp = env.do(t, fiber.MethodPost, "/login", nil, url.Values{
		"username": {"admin"},
		"password": {"s3cret"},
		"next":     {"//evil.example"},
	})
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get(fiber.HeaderLocation))

	cookie := cookieOf(resp)
	require.NotNil(t, cookie)

	resp = env.do(t, fiber.MethodGet, "/", cookie, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)

	cookie, state := env.login(t, "")
	resp := env.do(t, fiber.MethodGet, "/auth/callback?code=abc&state="+url.QueryEscape(state), cookie, nil)
	signedIn := cookieOf(resp)
	require.NotNil(t, signedIn)

	resp = env.do(t, fiber.MethodPost, "/logout", signedIn, nil)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t,
		providerOut+"?post_logout_redirect_uri="+url.QueryEscape("http://login.example/login"),
		resp.Header.Get(fiber.HeaderLocation))

	resp = env.do(t, fiber.MethodGet, "/", signedIn, nil)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)

	// logoff without a session is fine
	resp = env.do(t, fiber.MethodGet, "/auth/logoff", nil, nil)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
}
