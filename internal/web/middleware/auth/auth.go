package auth

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/idp-login/idp-login/internal/db/controller/user"
	accesslog "github.com/idp-login/idp-login/internal/logger/adapter/fiber"
	"github.com/idp-login/idp-login/internal/web/handler"
	"github.com/idp-login/idp-login/internal/web/session"
)

// skipPrefixes are paths served without looking at the session.
var skipPrefixes = []string{"/static", "/checkalive", "/metrics"} //nolint:gochecknoglobals

// New returns the session middleware. Sessions pointing to a deleted or
// inactive user are destroyed.
func New(deps *handler.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := strings.ToLower(c.Path())
		for _, p := range skipPrefixes {
			if strings.HasPrefix(path, p) {
				return c.Next()
			}
		}

		sess, err := deps.Sessions.Get(c)
		if err != nil {
			return err //nolint:wrapcheck
		}

		userID := session.CurrentUserID(sess)
		if userID == 0 {
			return c.Next()
		}

		u, err := deps.Users.GetByID(c.UserContext(), userID)

		switch {
		case errors.Is(err, user.ErrUserNotFound) || (err == nil && !u.Active):
			log.Info().Uint64("user_id", userID).Msg("dropping session of missing or inactive user")

			if err = session.Logout(sess); err != nil {
				return err //nolint:wrapcheck
			}
		case err != nil:
			return err //nolint:wrapcheck
		default:
			c.Locals(handler.LocalsUser, u)
			c.Locals(accesslog.LocalsUserID, u.ID)
		}

		return c.Next()
	}
}

// RequireUser redirects anonymous requests to loginPath.
func RequireUser(loginPath string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if handler.CurrentUser(c) != nil {
			return c.Next()
		}

		target := loginPath
		if next := c.OriginalURL(); next != handler.RootPath {
			target += "?next=" + url.QueryEscape(next)
		}

		return c.Redirect(target)
	}
}
