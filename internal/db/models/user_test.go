package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cr3t")
	require.NoError(t, err)

	u := User{Username: "admin", Password: hash}

	assert.True(t, u.VerifyPassword("s3cr3t"))
	assert.False(t, u.VerifyPassword("wrong"))
	assert.False(t, (&User{Username: "oidc-user"}).VerifyPassword(""))
	assert.False(t, (&User{Username: "broken", Password: "not-a-hash"}).VerifyPassword("x"))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", (&User{Username: "x", FirstName: "Ada", LastName: "Lovelace"}).DisplayName())
	assert.Equal(t, "Ada", (&User{Username: "x", FirstName: "Ada"}).DisplayName())
	assert.Equal(t, "x", (&User{Username: "x"}).DisplayName())
}
