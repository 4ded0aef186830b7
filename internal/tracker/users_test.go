package tracker

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"tasktrack.org/internal/auth"
	"tasktrack.org/internal/obs"
)

func TestRegisterAnonymousIsViewer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.svc.Register(ctx, nil, Registration{Username: " dave ", Password: "secret1", Role: "owner", OrganizationID: &f.orgB})
	require.NoError(t, err)
	require.Equal(t, "dave", got.Username)
	require.Equal(t, auth.RoleViewer, got.Role)

	stored, err := f.store.FindUser(ctx, got.ID)
	require.NoError(t, err)
	require.NotEqual(t, "secret1", stored.PasswordHash)
	require.Equal(t, f.orgB, *stored.OrganizationID)
}

func TestRegisterRoleIsCappedAtCaller(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.svc.Register(ctx, &f.admin, Registration{Username: "erin", Password: "secret1", Role: "owner"})
	require.NoError(t, err)
	require.Equal(t, auth.RoleAdmin, got.Role)

	got, err = f.svc.Register(ctx, &f.owner, Registration{Username: "frank", Password: "secret1", Role: "Owner"})
	require.NoError(t, err)
	require.Equal(t, auth.RoleOwner, got.Role)

	got, err = f.svc.Register(ctx, &f.alice, Registration{Username: "gina", Password: "secret1", Role: "admin"})
	require.NoError(t, err)
	require.Equal(t, auth.RoleViewer, got.Role)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	missing := int64(77)

	_, err := f.svc.Register(ctx, nil, Registration{Username: "", Password: "secret1"})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.Register(ctx, nil, Registration{Username: "short", Password: "12345"})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.Register(ctx, nil, Registration{Username: "lost", Password: "secret1", OrganizationID: &missing})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.Register(ctx, nil, Registration{Username: "alice", Password: "secret1"})
	require.ErrorIs(t, err, ErrConflict)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, nil, Registration{Username: "henry", Password: "hunter22"})
	require.NoError(t, err)

	user, err := f.svc.Login(ctx, "henry", "hunter22")
	require.NoError(t, err)
	require.Equal(t, "henry", user.Username)

	_, err = f.svc.Login(ctx, "henry", "wrong-password")
	require.ErrorIs(t, err, ErrUnauthenticated)
	_, err = f.svc.Login(ctx, "nobody", "hunter22")
	require.ErrorIs(t, err, ErrUnauthenticated)
	// Seeded fixture users have no password hash.
	_, err = f.svc.Login(ctx, "alice", "")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestListUsersAndResolveActor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	users, err := f.svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 6)
	require.Equal(t, UserView{ID: f.admin.ID, Username: "admin", Role: auth.RoleAdmin}, users[0])

	actor, err := f.svc.ResolveActor(ctx, f.bob.ID)
	require.NoError(t, err)
	require.Equal(t, f.bob, actor)

	_, err = f.svc.ResolveActor(ctx, 12345)
	require.ErrorIs(t, err, auth.ErrUnknownSubject)
}

func TestUnrecognizedRoleIsLoggedAndFallsBackToViewer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var buf bytes.Buffer
	restore := obs.SetOutput(&buf)
	defer restore()

	got, err := f.svc.Promote(ctx, f.admin, f.bob.ID, " Owner ")
	require.NoError(t, err)
	require.Equal(t, auth.RoleOwner, got.Role)
	require.Empty(t, buf.String())

	got, err = f.svc.Promote(ctx, f.admin, f.bob.ID, "superuser")
	require.NoError(t, err)
	require.Equal(t, auth.RoleViewer, got.Role)
	require.Contains(t, buf.String(), `"requested_role":"superuser"`)
	require.Contains(t, buf.String(), `"operation":"user.promote"`)

	buf.Reset()
	reg, err := f.svc.Register(ctx, &f.owner, Registration{Username: "erin", Password: "secret1", Role: "boss"})
	require.NoError(t, err)
	require.Equal(t, auth.RoleViewer, reg.Role)
	require.Contains(t, buf.String(), `"operation":"user.register"`)
}
