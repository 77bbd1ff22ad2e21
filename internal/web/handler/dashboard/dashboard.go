// Package dashboard provides the home page shown after login.
package dashboard

import (
	"github.com/gofiber/fiber/v2"

	"github.com/idp-login/idp-login/internal/auth"
	"github.com/idp-login/idp-login/internal/web/handler"
	"github.com/idp-login/idp-login/internal/web/handler/login"
	authmiddleware "github.com/idp-login/idp-login/internal/web/middleware/auth"
	"github.com/idp-login/idp-login/internal/web/navigation"
)

const (
	// Path is the path to the home page.
	Path = handler.RootPath

	// TemplateName is the name of the home template.
	TemplateName = "dashboard/dashboard"
)

// Service is the home page handler service.
type Service struct {
	handler.Service
	deps *handler.Deps
}

// Init registers the home page route behind the login check.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil || deps.Sessions == nil {
		return handler.ErrMissingDependency
	}

	s.deps = deps

	app.Get(Path, authmiddleware.RequireUser(login.Path), s.Get)

	return nil
}

// Get renders the signed in user.
func (s *Service) Get(c *fiber.Ctx) error {
	sess, err := s.deps.Sessions.Get(c)
	if err != nil {
		return err //nolint:wrapcheck
	}

	data := fiber.Map{
		"Title": s.deps.Cfg.Title,
		"Nav":   navigation.NewPage("Home", navigation.SectionHome, true),
		"User":  handler.CurrentUser(c),
	}

	if token := auth.CachedToken(sess); token != nil {
		data["TokenExpiry"] = token.Expiry
	}

	return c.Render(TemplateName, data, handler.BaseLayout)
}
