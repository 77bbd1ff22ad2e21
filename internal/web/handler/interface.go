package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/idp-login/idp-login/internal/auth"
	"github.com/idp-login/idp-login/internal/config"
	"github.com/idp-login/idp-login/internal/db/models"
	"github.com/idp-login/idp-login/internal/web/session"
)

// ErrMissingDependency is returned by Init when a required dependency is nil.
var ErrMissingDependency = errors.New("handler dependency is nil")

// UserReader loads users by id.
type UserReader interface {
	GetByID(ctx context.Context, id uint64) (*models.User, error)
}

// Deps are the collaborators shared by all handlers.
type Deps struct {
	Cfg      *config.Config
	Sessions *session.Store
	Backend  *auth.Backend
	Local    *auth.LocalProvider
	Users    UserReader
}

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, deps *Deps) error
}

// Scheme returns the request scheme, honoring X-Forwarded-Proto.
func Scheme(c *fiber.Ctx) string {
	return c.Protocol()
}

// CurrentUser returns the user the session middleware put in locals.
func CurrentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(LocalsUser).(*models.User)
	return u
}
