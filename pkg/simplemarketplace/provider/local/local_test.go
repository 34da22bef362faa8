package local_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-marketplace/pkg/simplemarketplace"
	"github.com/tendant/simple-marketplace/pkg/simplemarketplace/provider/local"
)

func TestSignUpAndSignIn(t *testing.T) {
	ctx := context.Background()
	provider := local.New(nil)

	identity, err := provider.SignUp(ctx, "alice@example.com", "s3cret!!")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, identity.UserID)
	assert.Equal(t, "alice@example.com", identity.Email)

	signedIn, err := provider.SignIn(ctx, "alice@example.com", "s3cret!!")
	require.NoError(t, err)
	assert.Equal(t, identity.UserID, signedIn.UserID)
}

func TestSignUpTakenEmail(t *testing.T) {
	ctx := context.Background()
	provider := local.New(nil)

	_, err := provider.SignUp(ctx, "alice@example.com", "x")
	require.NoError(t, err)

	_, err = provider.SignUp(ctx, "alice@example.com", "y")
	assert.ErrorIs(t, err, local.ErrEmailTaken)
}

func TestSignInInvalidCredentials(t *testing.T) {
	ctx := context.Background()
	provider := local.New(nil)

	_, err := provider.SignUp(ctx, "alice@example.com", "s3cret!!")
	require.NoError(t, err)

	_, err = provider.SignIn(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, local.ErrInvalidCredentials)

	_, err = provider.SignIn(ctx, "nobody@example.com", "s3cret!!")
	assert.ErrorIs(t, err, local.ErrInvalidCredentials)
}

func TestUpdateIdentity(t *testing.T) {
	ctx := context.Background()
	provider := local.New(nil)

	identity, err := provider.SignUp(ctx, "alice@example.com", "s3cret!!")
	require.NoError(t, err)

	displayName := "alice"
	updated, err := provider.UpdateIdentity(ctx, identity.UserID, simplemarketplace.IdentityPatch{
		DisplayName: &displayName,
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", updated.DisplayName)

	password := "newpass!!"
	_, err = provider.UpdateIdentity(ctx, identity.UserID, simplemarketplace.IdentityPatch{
		Password: &password,
	})
	require.NoError(t, err)

	_, err = provider.SignIn(ctx, "alice@example.com", "s3cret!!")
	assert.ErrorIs(t, err, local.ErrInvalidCredentials)
	_, err = provider.SignIn(ctx, "alice@example.com", "newpass!!")
	assert.NoError(t, err)
}

func TestUpdateIdentityEmailConflict(t *testing.T) {
	ctx := context.Background()
	provider := local.New(nil)

	_, err := provider.SignUp(ctx, "alice@example.com", "x")
	require.NoError(t, err)
	bob, err := provider.SignUp(ctx, "bob@example.com", "y")
	require.NoError(t, err)

	taken := "alice@example.com"
	_, err = provider.UpdateIdentity(ctx, bob.UserID, simplemarketplace.IdentityPatch{Email: &taken})
	assert.ErrorIs(t, err, local.ErrEmailTaken)
}

func TestUnknownAccount(t *testing.T) {
	ctx := context.Background()
	provider := local.New(nil)

	_, err := provider.UpdateIdentity(ctx, uuid.New(), simplemarketplace.IdentityPatch{})
	assert.ErrorIs(t, err, local.ErrAccountNotFound)
	assert.ErrorIs(t, provider.SendVerificationEmail(ctx, uuid.New()), local.ErrAccountNotFound)
	assert.ErrorIs(t, provider.SendPasswordReset(ctx, "nobody@example.com"), local.ErrAccountNotFound)
	assert.ErrorIs(t, provider.SignOut(ctx, uuid.New()), local.ErrAccountNotFound)
}
