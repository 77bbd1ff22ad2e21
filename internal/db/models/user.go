// Package models contains database model definitions.
package models

import (
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
)

// AuthSource tells how a user signs in.
type AuthSource string

const (
	// AuthSourceLocal marks users signing in with a local argon2id password.
	AuthSourceLocal AuthSource = "local"
	// AuthSourceOIDC marks users provisioned from identity provider claims.
	AuthSourceOIDC AuthSource = "oidc"
)

// Default name values for provider users whose token carries no names.
const (
	UnknownFirstName = "Unknown"
	UnknownLastName  = "Unknown"
)

// User is a local account. Provider users are keyed by ExternalID, the
// subject identifier of the identity provider, which is also their Username.
type User struct {
	ID         uint64     `gorm:"primaryKey"`
	Active     bool       `gorm:"not null"`
	Username   string     `gorm:"unique;size:150;not null"`
	Email      string     `gorm:"size:255"`
	Password   string     `gorm:"size:255" json:"-"`
	FirstName  string     `gorm:"size:150"`
	LastName   string     `gorm:"size:150"`
	AuthSource AuthSource `gorm:"type:varchar(20);not null;default:'local'"`
	ExternalID string     `gorm:"size:255;index"`
	LastLogin  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DisplayName returns "First Last", falling back to the username.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}

// HashPassword hashes a plaintext password with the default argon2id parameters.
func HashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, argon2id.DefaultParams) //nolint:wrapcheck
}

// VerifyPassword compares password against the stored argon2id hash.
// Users without a password never match.
func (u *User) VerifyPassword(password string) bool {
	if u.Password == "" {
		return false
	}

	match, err := argon2id.ComparePasswordAndHash(password, u.Password)
	if err != nil {
		log.Error().Err(err).Str("username", u.Username).Msg("failed to verify password")
		return false
	}

	return match
}
