package oidc

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/idp-login/idp-login/internal/auth"
	"github.com/idp-login/idp-login/internal/web/handler"
	"github.com/idp-login/idp-login/internal/web/session"
)

const (
	// LoginPath is the path to initiate the provider login.
	LoginPath = handler.RootPath + "auth/login"

	// LogoffPath is the path to sign out of the provider.
	LogoffPath = handler.RootPath + "auth/logoff"

	// NextParam is the query parameter naming the post-login target.
	NextParam = "next"
)

// Service is the provider login handler service.
type Service struct {
	handler.Service
	deps *handler.Deps
}

// Init registers the login, callback and logoff routes.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil || deps.Cfg == nil || deps.Sessions == nil || deps.Backend == nil {
		return handler.ErrMissingDependency
	}

	s.deps = deps

	app.Get(LoginPath, s.Login)
	app.Get(deps.Cfg.Auth.Provider.CallbackPath, s.Callback)
	app.Get(LogoffPath, s.Logoff)

	return nil
}

// Login redirects to the provider authorization URL.
func (s *Service) Login(c *fiber.Ctx) error {
	sess, err := s.deps.Sessions.Get(c)
	if err != nil {
		return err //nolint:wrapcheck
	}

	authURL, err := s.deps.Backend.LoginURL(sess, handler.Scheme(c), c.Query(NextParam))
	if err != nil {
		return err //nolint:wrapcheck
	}

	if err = sess.Save(); err != nil {
		return err //nolint:wrapcheck
	}

	return c.Redirect(authURL)
}

// Callback finishes the login started by Login.
func (s *Service) Callback(c *fiber.Ctx) error {
	sess, err := s.deps.Sessions.Get(c)
	if err != nil {
		return err //nolint:wrapcheck
	}

	query, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed query")
	}

	res, err := s.deps.Backend.Callback(c.UserContext(), sess, query)
	if err != nil {
		// keep the consumed flow out of the session
		if saveErr := sess.Save(); saveErr != nil {
			log.Error().Err(saveErr).Msg("failed to save session after rejected callback")
		}

		if errors.Is(err, auth.ErrUserNotResolved) {
			log.Warn().Err(err).Msg("login callback did not resolve a user")
			return c.Redirect(s.deps.Cfg.Auth.LoginRedirectURL)
		}

		return err //nolint:wrapcheck
	}

	if err = session.Login(sess, res.User.ID); err != nil {
		return err //nolint:wrapcheck
	}

	log.Info().
		Uint64("user_id", res.User.ID).
		Str("username", res.User.Username).
		Msg("user signed in through identity provider")

	return c.Redirect(res.Next)
}

// Logoff signs out locally and redirects to the provider end-session endpoint.
func (s *Service) Logoff(c *fiber.Ctx) error {
	return SignOut(c, s.deps)
}

// SignOut clears the token cache, destroys the session and redirects to the
// provider logout URL. Also used by the /logout route.
func SignOut(c *fiber.Ctx, deps *handler.Deps) error {
	sess, err := deps.Sessions.Get(c)
	if err != nil {
		return err //nolint:wrapcheck
	}

	userID := session.CurrentUserID(sess)
	logoutURL := deps.Backend.SignOut(sess)

	if err = session.Logout(sess); err != nil {
		return err //nolint:wrapcheck
	}

	log.Info().Uint64("user_id", userID).Msg("user signed out")

	return c.Redirect(logoutURL)
}
