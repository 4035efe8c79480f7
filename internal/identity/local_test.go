package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/foodshare/internal/model"
)

func newTestLocalProvider() (*LocalProvider, *memoryStore) {
	store := newMemoryStore()
	p := NewLocalProvider(store)
	p.cost = bcrypt.MinCost
	return p, store
}

func TestLocalProvider_CreateAndSignIn(t *testing.T) {
	p, store := newTestLocalProvider()
	ctx := context.Background()

	u, err := p.CreateUser(ctx, "ngo@example.com", "secret123", model.UserData{
		FullName:         "Food Bank",
		Role:             "ngo",
		OrganizationName: "City Food Bank",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, model.RoleNGO, u.Role)

	stored, err := store.GetUserByEmail(ctx, "ngo@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, []byte("secret123"), stored.PasswordHash)

	signedIn, err := p.SignIn(ctx, "ngo@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, signedIn.ID)
}

func TestLocalProvider_Duplicate(t *testing.T) {
	p, _ := newTestLocalProvider()
	ctx := context.Background()

	_, err := p.CreateUser(ctx, "dup@example.com", "secret123", model.UserData{Role: "donor"})
	require.NoError(t, err)

	_, err = p.CreateUser(ctx, "dup@example.com", "secret123", model.UserData{Role: "donor"})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestLocalProvider_WrongPassword(t *testing.T) {
	p, _ := newTestLocalProvider()
	ctx := context.Background()

	_, err := p.CreateUser(ctx, "user@example.com", "secret123", model.UserData{Role: "donor"})
	require.NoError(t, err)

	_, err = p.SignIn(ctx, "user@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = p.SignIn(ctx, "missing@example.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLocalProvider_UnknownRoleFallsBackToDonor(t *testing.T) {
	p, _ := newTestLocalProvider()

	u, err := p.CreateUser(context.Background(), "x@example.com", "secret123", model.UserData{Role: "superuser"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleDonor, u.Role)
}
