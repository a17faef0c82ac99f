package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleCapabilities(t *testing.T) {
	t.Run("AdminManagesButDoesNotBorrow", func(t *testing.T) {
		assert.True(t, RoleAdmin.Can(CapManageUsers))
		assert.True(t, RoleAdmin.Can(CapDecideLoans))
		assert.True(t, RoleAdmin.Can(CapViewAllLoans))
		assert.False(t, RoleAdmin.Can(CapApplyForLoan))
	})

	t.Run("UserBorrowsButDoesNotManage", func(t *testing.T) {
		assert.True(t, RoleUser.Can(CapApplyForLoan))
		assert.False(t, RoleUser.Can(CapManageUsers))
		assert.False(t, RoleUser.Can(CapDecideLoans))
		assert.False(t, RoleUser.Can(CapViewAllLoans))
	})

	t.Run("UnknownRoleCanDoNothing", func(t *testing.T) {
		assert.False(t, Role("SUPERUSER").Can(CapManageUsers))
		assert.False(t, Role("SUPERUSER").Valid())
	})
}

func TestNewUser(t *testing.T) {
	profile := Profile{
		PhoneNumber:  "9876543210",
		AddressLine1: "12 Hill Road",
		City:         "Mumbai",
		State:        "MH",
		PinCode:      "400050",
	}

	t.Run("CreatesInactivePendingBorrower", func(t *testing.T) {
		u, err := NewUser("asha", "asha@example.com", "s3cret-enough", profile)

		require.NoError(t, err)
		assert.Equal(t, RoleUser, u.Role)
		assert.False(t, u.Active)
		assert.Equal(t, ProfilePending, u.Profile.Status)
		assert.NotEqual(t, "s3cret-enough", u.PasswordHash, "password must never be stored in the clear")
	})

	t.Run("PasswordRoundTrips", func(t *testing.T) {
		u, err := NewUser("asha", "asha@example.com", "s3cret-enough", profile)
		require.NoError(t, err)

		assert.True(t, u.CheckPassword("s3cret-enough"))
		assert.False(t, u.CheckPassword("wrong-password"))
	})

	t.Run("RejectsShortPassword", func(t *testing.T) {
		_, err := NewUser("asha", "asha@example.com", "short", profile)
		assert.Error(t, err)
	})

	t.Run("RejectsEmptyUsername", func(t *testing.T) {
		_, err := NewUser("", "asha@example.com", "s3cret-enough", profile)
		assert.Error(t, err)
	})
}
