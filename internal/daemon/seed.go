package daemon

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/idp-login/idp-login/internal/config"
	"github.com/idp-login/idp-login/internal/db/models"
)

const adminUsername = "admin"

type seedStore interface {
	Count(ctx context.Context) (int64, error)
	Save(ctx context.Context, u *models.User) error
}

// seed creates the local admin user on an empty user table when local login
// is enabled and an admin password is configured.
func seed(ctx context.Context, cfg *config.Config, users seedStore) error {
	if !cfg.Auth.Local.Enabled || cfg.Auth.Local.AdminPassword == "" {
		return nil
	}

	count, err := users.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}

	if count > 0 {
		return nil
	}

	hash, err := models.HashPassword(cfg.Auth.Local.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	if err = users.Save(ctx, &models.User{
		Username:   adminUsername,
		Password:   hash,
		FirstName:  "Local",
		LastName:   "Administrator",
		AuthSource: models.AuthSourceLocal,
		Active:     true,
	}); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	log.Warn().Str("username", adminUsername).Msg("seeded local admin user, change its password")

	return nil
}
