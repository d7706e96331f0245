package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/townhall/internal/models"
	"golang.org/x/crypto/bcrypt"
)

func TestMemoryProvider_SignUp(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider(WithBcryptCost(bcrypt.MinCost))

	dept := "Parks"
	user, err := p.SignUp(ctx, SignUpRequest{
		Email:    "Ann@Springfield.gov",
		Password: "correcthorse1",
		Metadata: models.UserMetadata{
			FullName:     "Ann Lee",
			Organization: "Springfield",
			Department:   &dept,
		},
	})
	require.NoError(t, err)
	require.NotNil(t, user)
	require.NotEqual(t, uuid.Nil, user.ID)
	require.Equal(t, "Ann@Springfield.gov", user.Email)
	require.Equal(t, "Ann Lee", user.Metadata.FullName)
	require.False(t, user.IsConfirmed())

	// returned metadata is a copy
	*user.Metadata.Department = "Roads"

	stored := p.users[user.ID]
	require.Equal(t, "Parks", *stored.user.Metadata.Department)
	require.NoError(t, bcrypt.CompareHashAndPassword(stored.passwordHash, []byte("correcthorse1")))
	require.Error(t, bcrypt.CompareHashAndPassword(stored.passwordHash, []byte("wrong-password")))
}

func TestMemoryProvider_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider(WithBcryptCost(bcrypt.MinCost))

	_, err := p.SignUp(ctx, SignUpRequest{Email: "a@b.gov", Password: "correcthorse1"})
	require.NoError(t, err)

	_, err = p.SignUp(ctx, SignUpRequest{Email: "A@B.GOV", Password: "correcthorse1"})
	require.ErrorIs(t, err, ErrUserAlreadyRegistered)
	require.EqualError(t, err, "User already registered")
	require.Equal(t, 1, p.Len())
}

func TestMemoryProvider_DeleteUser(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider(WithBcryptCost(bcrypt.MinCost))

	user, err := p.SignUp(ctx, SignUpRequest{Email: "a@b.gov", Password: "correcthorse1"})
	require.NoError(t, err)

	require.NoError(t, p.DeleteUser(ctx, user.ID))
	require.Equal(t, 0, p.Len())
	require.ErrorIs(t, p.DeleteUser(ctx, user.ID), ErrUserNotFound)

	// the email can be registered again once deleted
	_, err = p.SignUp(ctx, SignUpRequest{Email: "a@b.gov", Password: "correcthorse1"})
	require.NoError(t, err)
}
