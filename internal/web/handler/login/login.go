// Package login serves the login page: a link to the identity provider and,
// when enabled, the local username/password form.
package login

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/idp-login/idp-login/internal/auth"
	"github.com/idp-login/idp-login/internal/web/handler"
	"github.com/idp-login/idp-login/internal/web/handler/auth/oidc"
	"github.com/idp-login/idp-login/internal/web/navigation"
	"github.com/idp-login/idp-login/internal/web/session"
)

const (
	// Path is the path to the login page.
	Path = "/login"

	// TemplateName is the name of the login template.
	TemplateName = "login"
)

// Form is the local login form.
type Form struct {
	Username string `form:"username" validate:"required,max=150"`
	Password string `form:"password" validate:"required"`
	Next     string `form:"next"`
}

// Service is the login handler service.
type Service struct {
	handler.Service
	deps     *handler.Deps
	validate *validator.Validate
}

// Init registers GET and POST /login.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil || deps.Sessions == nil || deps.Backend == nil {
		return handler.ErrMissingDependency
	}

	s.deps = deps
	s.validate = validator.New()

	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RootPath, s.Get)
		router.Post(handler.RootPath, s.Post)
	})

	return nil
}

// Get renders the login page.
func (s *Service) Get(c *fiber.Ctx) error {
	if handler.CurrentUser(c) != nil {
		return c.Redirect(auth.SafeRedirect(c.Query(oidc.NextParam)))
	}

	return s.render(c, fiber.StatusOK, c.Query(oidc.NextParam), nil)
}

// Post handles the local login form.
func (s *Service) Post(c *fiber.Ctx) error {
	form := new(Form)
	if err := c.BodyParser(form); err != nil {
		return s.render(c, fiber.StatusBadRequest, "", ErrInvalidFormData)
	}

	if !s.deps.Local.Enabled() {
		return s.render(c, fiber.StatusForbidden, form.Next, auth.ErrLocalAuthDisabled)
	}

	if err := s.validate.Struct(form); err != nil {
		return s.render(c, fiber.StatusBadRequest, form.Next, ErrInvalidFormData)
	}

	u, err := s.deps.Local.Authenticate(c.UserContext(), form.Username, form.Password)

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrUserAccountDisabled):
		log.Warn().Str("username", form.Username).Err(err).Msg("local login rejected")
		return s.render(c, fiber.StatusUnauthorized, form.Next, auth.ErrInvalidCredentials)
	case err != nil:
		log.Error().Err(err).Msg("local login failed")
		return s.render(c, fiber.StatusInternalServerError, form.Next, ErrInternalServerError)
	}

	sess, err := s.deps.Sessions.Get(c)
	if err != nil {
		return err //nolint:wrapcheck
	}

	if err = session.Login(sess, u.ID); err != nil {
		return err //nolint:wrapcheck
	}

	log.Info().Uint64("user_id", u.ID).Str("username", u.Username).Msg("user signed in with local password")

	return c.Redirect(auth.SafeRedirect(form.Next))
}

// render shows the login page with a fresh provider login URL.
func (s *Service) render(c *fiber.Ctx, status int, next string, loginErr error) error {
	sess, err := s.deps.Sessions.Get(c)
	if err != nil {
		return err //nolint:wrapcheck
	}

	authURL, err := s.deps.Backend.LoginURL(sess, handler.Scheme(c), next)
	if err != nil {
		return err //nolint:wrapcheck
	}

	if err = sess.Save(); err != nil {
		return err //nolint:wrapcheck
	}

	data := fiber.Map{
		"Title":        s.deps.Cfg.Title,
		"Nav":          navigation.NewPage("Sign in", navigation.SectionLogin, false),
		"AuthURL":      authURL,
		"LocalEnabled": s.deps.Local.Enabled(),
		"Next":         auth.SafeRedirect(next),
	}

	if loginErr != nil {
		data["Error"] = loginErr.Error()
	}

	return c.Status(status).Render(TemplateName, data, handler.BaseLayout)
}
