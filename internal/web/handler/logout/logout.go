// Package logout registers the /logout route.
package logout

import (
	"github.com/gofiber/fiber/v2"

	"github.com/idp-login/idp-login/internal/web/handler"
	"github.com/idp-login/idp-login/internal/web/handler/auth/oidc"
)

// Path is the path of the logout route.
const Path = handler.RootPath + "logout"

// Service is the logout handler service.
type Service struct {
	handler.Service
	deps *handler.Deps
}

// Init registers GET and POST /logout.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil || deps.Sessions == nil || deps.Backend == nil {
		return handler.ErrMissingDependency
	}

	s.deps = deps

	app.Get(Path, s.Logout)
	app.Post(Path, s.Logout)

	return nil
}

// Logout ends the local and the provider session.
func (s *Service) Logout(c *fiber.Ctx) error {
	return oidc.SignOut(c, s.deps)
}
