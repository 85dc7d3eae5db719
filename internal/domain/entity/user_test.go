package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUser_BeforeSave_HashesPlainPassword(t *testing.T) {
	// Arrange: администратор с открытым паролем
	user := &User{Username: "admin", Password: "mySecretPassword123"}

	// Act
	require.NoError(t, user.BeforeSave(nil))

	// Assert: пароль должен стать bcrypt-хешем
	assert.NotEqual(t, "mySecretPassword123", user.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("mySecretPassword123")))
}

func TestUser_BeforeSave_KeepsExistingHashAndEmpty(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("alreadyHashed"), bcrypt.MinCost)
	require.NoError(t, err)

	hashed := &User{Username: "admin", Password: string(hash)}
	require.NoError(t, hashed.BeforeSave(nil))
	assert.Equal(t, string(hash), hashed.Password, "уже хешированный пароль не должен изменяться")

	empty := &User{Username: "admin"}
	require.NoError(t, empty.BeforeSave(nil))
	assert.Empty(t, empty.Password)
}

func TestUser_CheckPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correctPassword123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &User{Username: "admin", Password: string(hash)}

	assert.True(t, user.CheckPassword("correctPassword123"))
	assert.False(t, user.CheckPassword("wrongPassword456"))
	assert.False(t, user.CheckPassword(""))
}

func TestUser_CanAccessAdmin(t *testing.T) {
	tests := []struct {
		name     string
		active   bool
		staff    bool
		expected bool
	}{
		{"active staff", true, true, true},
		{"inactive staff", false, true, false},
		{"active non-staff", true, false, false},
		{"inactive non-staff", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{IsActive: tt.active, IsStaff: tt.staff}
			assert.Equal(t, tt.expected, u.CanAccessAdmin())
		})
	}
}
