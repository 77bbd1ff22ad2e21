package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/idp-login/idp-login/internal/auth"
	"github.com/idp-login/idp-login/internal/web/navigation"
)

// ErrorTemplate is the name of the error page template.
const ErrorTemplate = "error"

// StatusFor maps an error returned by a handler to the HTTP status sent to the client.
func StatusFor(err error) int {
	var fe *fiber.Error

	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, auth.ErrStateInvalid):
		return fiber.StatusBadRequest
	case errors.Is(err, auth.ErrTokenError):
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

// NewErrorHandler returns the fiber error handler. Unresolved users are sent
// to loginURL; other errors render the error page with their status.
func NewErrorHandler(loginURL string) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if errors.Is(err, auth.ErrUserNotResolved) {
			return c.Redirect(loginURL)
		}

		status := StatusFor(err)

		event := log.Warn()
		if status >= fiber.StatusInternalServerError {
			event = log.Error()
		}

		event.Err(err).Int("status", status).Str("path", c.Path()).Msg("request failed")

		message := fiber.ErrInternalServerError.Message
		if status < fiber.StatusInternalServerError {
			message = err.Error()
		}

		renderErr := c.Status(status).Render(ErrorTemplate, fiber.Map{
			"Nav":     navigation.NewPage("Error", "", false),
			"Status":  status,
			"Message": message,
		}, "layouts/base")
		if renderErr != nil {
			return c.Status(status).SendString(message)
		}

		return nil
	}
}
