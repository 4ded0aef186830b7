package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"tasktrack.org/internal/auth"
	"tasktrack.org/internal/tracker"
)

func TestRunSeedsEmptyStore(t *testing.T) {
	ctx := context.Background()
	store := tracker.NewInMemory()
	creds := Credentials{AdminPassword: "admin123", OwnerPassword: "owner123"}

	seeded, err := Run(ctx, store, creds)
	require.NoError(t, err)
	require.True(t, seeded)

	orgs, err := store.ListOrganizations(ctx)
	require.NoError(t, err)
	require.Len(t, orgs, 3)
	require.Equal(t, "Organization A", orgs[0].Name)
	require.Nil(t, orgs[0].ParentID)
	require.Len(t, orgs[0].Children, 2)
	for _, child := range orgs[1:] {
		require.Equal(t, orgs[0].ID, *child.ParentID)
	}

	admin, err := store.FindUserByUsername(ctx, "admin")
	require.NoError(t, err)
	require.Equal(t, auth.RoleAdmin, admin.Role)
	require.Equal(t, orgs[0].ID, *admin.OrganizationID)
	require.True(t, auth.PasswordMatches(admin.PasswordHash, "admin123"))

	owner, err := store.FindUserByUsername(ctx, "owner")
	require.NoError(t, err)
	require.Equal(t, auth.RoleOwner, owner.Role)

	again, err := Run(ctx, store, creds)
	require.NoError(t, err)
	require.False(t, again)
	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
}

func TestRunRejectsShortPassword(t *testing.T) {
	_, err := Run(context.Background(), tracker.NewInMemory(), Credentials{AdminPassword: "x", OwnerPassword: "owner123"})
	require.Error(t, err)
}
