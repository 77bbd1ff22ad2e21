package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/idp-login/idp-login/internal/db/controller/user"
	"github.com/idp-login/idp-login/internal/db/models"
)

// LocalUserStore is the user store used by local login.
type LocalUserStore interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	TouchLastLogin(ctx context.Context, u *models.User, at time.Time) error
}

// LocalProvider authenticates users with a local argon2id password. It is the
// fallback when the identity provider is unreachable.
type LocalProvider struct {
	store   LocalUserStore
	enabled bool
}

// NewLocalProvider returns a local provider; a disabled one rejects every login.
func NewLocalProvider(store LocalUserStore, enabled bool) *LocalProvider {
	return &LocalProvider{store: store, enabled: enabled}
}

// Enabled reports whether local login is switched on.
func (p *LocalProvider) Enabled() bool {
	return p != nil && p.enabled
}

// Authenticate checks username and password of a local user.
func (p *LocalProvider) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	if !p.Enabled() {
		return nil, ErrLocalAuthDisabled
	}

	u, err := p.store.GetByUsername(ctx, username)
	if errors.Is(err, user.ErrUserNotFound) || errors.Is(err, user.ErrUsernameEmpty) {
		return nil, ErrInvalidCredentials
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if u.AuthSource != models.AuthSourceLocal || !u.VerifyPassword(password) {
		return nil, ErrInvalidCredentials
	}

	if !u.Active {
		return nil, ErrUserAccountDisabled
	}

	if err = p.store.TouchLastLogin(ctx, u, time.Now()); err != nil {
		log.Warn().Err(err).Uint64("user_id", u.ID).Msg("failed to update last login")
	}

	return u, nil
}
