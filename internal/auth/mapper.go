package auth

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/idp-login/idp-login/internal/db/models"
)

// UserRepository is the user store used to provision provider users.
type UserRepository interface {
	// GetOrNew returns the user with the subject id, or an unsaved one with created set.
	GetOrNew(ctx context.Context, externalID string) (user *models.User, created bool, err error)
	Save(ctx context.Context, user *models.User) error
}

// Mapper creates or updates local users from token claims.
type Mapper struct {
	repo         UserRepository
	subjectClaim string
}

// NewMapper returns a mapper keyed on subjectClaim, falling back to "sub".
func NewMapper(repo UserRepository, subjectClaim string) *Mapper {
	if subjectClaim == "" {
		subjectClaim = ClaimObjectID
	}

	return &Mapper{repo: repo, subjectClaim: subjectClaim}
}

// Resolve returns the local user for claims. New users get the subject id as
// username and "Unknown" names until the token carries given/family name.
func (m *Mapper) Resolve(ctx context.Context, claims Claims) (*models.User, error) {
	subject := claims.FirstString(m.subjectClaim, ClaimSubject)
	if subject == "" {
		return nil, ErrMissingSubject
	}

	user, created, err := m.repo.GetOrNew(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user %s: %w", subject, err)
	}

	if !user.Active && !created {
		return nil, ErrUserAccountDisabled
	}

	email := claims.FirstString(ClaimEmail, ClaimUPN, ClaimPreferredUsername)
	changed := created

	if created {
		user.Username = subject
		user.Email = email
		user.FirstName = models.UnknownFirstName
		user.LastName = models.UnknownLastName
	}

	changed = setIfPresent(&user.FirstName, claims.String(ClaimGivenName)) || changed
	changed = setIfPresent(&user.LastName, claims.String(ClaimFamilyName)) || changed
	changed = setIfPresent(&user.Email, email) || changed

	if !changed {
		return user, nil
	}

	if err = m.repo.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user %s: %w", subject, err)
	}

	log.Debug().
		Uint64("user_id", user.ID).
		Str("subject", subject).
		Bool("created", created).
		Msg("user provisioned from token claims")

	return user, nil
}

func setIfPresent(field *string, value string) bool {
	if value == "" || *field == value {
		return false
	}

	*field = value

	return true
}
