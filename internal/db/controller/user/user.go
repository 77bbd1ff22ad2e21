// Package user provides the gorm backed user repository.
package user

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/idp-login/idp-login/internal/db/models"
)

const (
	externalIDQueryPattern = "external_id = ? AND auth_source = ?"
	usernameQueryPattern   = "username = ?"
	idQueryPattern         = "id = ?"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrExternalIDEmpty is returned when looking up a provider user without subject id.
	ErrExternalIDEmpty = errors.New("external id cannot be empty")
	// ErrUsernameEmpty is returned when saving a user without username.
	ErrUsernameEmpty = errors.New("username cannot be empty")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Repository reads and writes users.
type Repository struct {
	db *gorm.DB
}

// New returns a repository on db.
func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetOrNew looks up the provider user with the given subject id. When none
// exists it returns an unsaved active user with created set to true.
func (r *Repository) GetOrNew(ctx context.Context, externalID string) (*models.User, bool, error) {
	if r.db == nil {
		return nil, false, ErrDBNil
	}

	if externalID == "" {
		return nil, false, ErrExternalIDEmpty
	}

	var u models.User

	// Find instead of First: a miss is expected here and must not be logged as an error.
	res := r.db.WithContext(ctx).Where(externalIDQueryPattern, externalID, models.AuthSourceOIDC).Limit(1).Find(&u)
	if res.Error != nil {
		return nil, false, res.Error
	}

	if res.RowsAffected == 0 {
		return &models.User{
			Active:     true,
			ExternalID: externalID,
			AuthSource: models.AuthSourceOIDC,
		}, true, nil
	}

	return &u, false, nil
}

// Save inserts a new user or updates an existing one.
func (r *Repository) Save(ctx context.Context, u *models.User) error {
	if r.db == nil {
		return ErrDBNil
	}

	if u.Username == "" {
		return ErrUsernameEmpty
	}

	return r.db.WithContext(ctx).Save(u).Error
}

// GetByID returns the user with the given primary key.
func (r *Repository) GetByID(ctx context.Context, id uint64) (*models.User, error) {
	if r.db == nil {
		return nil, ErrDBNil
	}

	var u models.User

	return r.findOne(ctx, &u, idQueryPattern, id)
}

// GetByUsername returns the user with the given username.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if r.db == nil {
		return nil, ErrDBNil
	}

	var u models.User

	return r.findOne(ctx, &u, usernameQueryPattern, username)
}

// findOne loads the first user matching query into u, ErrUserNotFound when none.
func (r *Repository) findOne(ctx context.Context, u *models.User, query string, args ...any) (*models.User, error) {
	res := r.db.WithContext(ctx).Where(query, args...).Limit(1).Find(u)
	if res.Error != nil {
		return nil, res.Error
	}

	if res.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}

	return u, nil
}

// Count returns the number of users.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNil
	}

	var count int64

	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error

	return count, err
}

// TouchLastLogin records a successful sign-in.
func (r *Repository) TouchLastLogin(ctx context.Context, u *models.User, at time.Time) error {
	if r.db == nil {
		return ErrDBNil
	}

	u.LastLogin = &at

	return r.db.WithContext(ctx).Model(u).Update("last_login", at).Error
}
