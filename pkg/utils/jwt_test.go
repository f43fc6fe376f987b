package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	t.Run("round trip", func(t *testing.T) {
		token, err := issuer.CreateToken("user-1", "parent@example.com", RoleParent, "tenant-1")
		require.NoError(t, err)

		claims, err := issuer.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "parent@example.com", claims.Email)
		assert.Equal(t, RoleParent, claims.Role)
		assert.Equal(t, "tenant-1", claims.TenantID)
	})

	t.Run("rejects another secret", func(t *testing.T) {
		token, err := NewTokenIssuer("other", time.Hour).CreateToken("u", "e", RoleStaff, "t")
		require.NoError(t, err)

		_, err = issuer.ValidateToken(token)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		old := NewTokenIssuer("test-secret", time.Hour)
		old.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := old.CreateToken("u", "e", RoleStaff, "t")
		require.NoError(t, err)

		_, err = issuer.ValidateToken(token)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("empty secret cannot sign", func(t *testing.T) {
		_, err := NewTokenIssuer("", time.Hour).CreateToken("u", "e", RoleStaff, "t")
		assert.Error(t, err)
	})
}

func TestSessionCookieName(t *testing.T) {
	assert.Equal(t, "parent_session", SessionCookieName(RoleParent))
	assert.Equal(t, "staff_session", SessionCookieName(RoleStaff))
}
