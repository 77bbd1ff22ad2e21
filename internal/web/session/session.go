// Package session wraps the fiber session store used for logins.
package session

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/idp-login/idp-login/internal/auth"
	"github.com/idp-login/idp-login/internal/config"
)

// KeyUserID is the session key holding the signed in user id.
const KeyUserID = "user_id"

// Store is the session store of the web service.
type Store struct {
	*session.Store
}

// New returns a store keeping sessions in storage, in process memory when
// storage is nil. Cookies are marked secure unless devMode is set.
func New(storage fiber.Storage, cfg config.Session, devMode bool) *Store {
	return &Store{
		Store: session.New(session.Config{
			Storage:        storage,
			Expiration:     cfg.ExpiryTime,
			KeyLookup:      "cookie:" + cfg.CookieName,
			CookieSecure:   !devMode,
			CookieHTTPOnly: true,
			CookieSameSite: fiber.CookieSameSiteLaxMode,
		}),
	}
}

// Login binds userID to sess under a fresh session id and saves it. The CSRF
// token of the anonymous session is dropped; the next login page issues a new one.
func Login(sess *session.Session, userID uint64) error {
	if err := sess.Regenerate(); err != nil {
		return fmt.Errorf("failed to regenerate session: %w", err)
	}

	sess.Delete(auth.KeyCSRFToken)
	sess.Set(KeyUserID, userID)

	if err := sess.Save(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// Logout removes sess from storage and expires its cookie.
func Logout(sess *session.Session) error {
	if err := sess.Destroy(); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}

	return nil
}

// CurrentUserID returns the signed in user id of sess, 0 when anonymous.
func CurrentUserID(sess *session.Session) uint64 {
	id, _ := sess.Get(KeyUserID).(uint64)
	return id
}
