package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"tasktrack.org/internal/auth"
	"tasktrack.org/internal/httpapi"
	"tasktrack.org/internal/seed"
	"tasktrack.org/internal/tracker"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := tracker.NewInMemory()
	_, err := seed.Run(context.Background(), store, seed.Credentials{AdminPassword: "admin123", OwnerPassword: "owner123"})
	require.NoError(t, err)
	svc, err := tracker.NewService(store)
	require.NoError(t, err)
	authn, err := auth.NewAuthenticator("client-test-secret", svc)
	require.NoError(t, err)
	api, err := httpapi.New(httpapi.Options{Service: svc, Auth: authn, Version: "test", RateLimitRPS: 1000, RateLimitBurst: 1000})
	require.NoError(t, err)
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestNewRejectsBadScheme(t *testing.T) {
	_, err := New("ftp://example.org")
	require.Error(t, err)
}

func TestLoginAndProfile(t *testing.T) {
	srv := newServer(t)
	c := newClient(t, srv)
	ctx := context.Background()

	tok, err := c.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	require.NotEmpty(t, tok.AccessToken)
	require.Equal(t, tok.AccessToken, c.Token())

	actor, err := c.Profile(ctx)
	require.NoError(t, err)
	require.Equal(t, "admin", actor.Username)
	require.Equal(t, auth.RoleAdmin, actor.Role)
}

func TestLoginFailureUnwrapsToUnauthenticated(t *testing.T) {
	srv := newServer(t)
	c := newClient(t, srv)

	_, err := c.Login(context.Background(), "admin", "wrong-password")
	require.Error(t, err)
	require.True(t, errors.Is(err, tracker.ErrUnauthenticated))
	require.True(t, IsStatus(err, http.StatusUnauthorized))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.NotEmpty(t, apiErr.RequestID)
}

func TestTaskLifecycle(t *testing.T) {
	srv := newServer(t)
	c := newClient(t, srv)
	ctx := context.Background()

	_, err := c.Login(ctx, "admin", "admin123")
	require.NoError(t, err)

	task, err := c.CreateTask(ctx, TaskInput{Title: "Write client"})
	require.NoError(t, err)
	require.Equal(t, tracker.StatusTodo, task.Status)
	require.Equal(t, tracker.PriorityMedium, task.Priority)

	done := "done"
	updated, err := c.UpdateTask(ctx, task.ID, TaskChanges{Status: &done})
	require.NoError(t, err)
	require.Equal(t, tracker.StatusDone, updated.Status)
	require.Equal(t, "Write client", updated.Title)

	tasks, err := c.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	res, err := c.DeleteTask(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, task.ID, res.ID)

	_, err = c.DeleteTask(ctx, task.ID)
	require.True(t, errors.Is(err, tracker.ErrNotFound))
}

func TestViewerCannotManageOrganizations(t *testing.T) {
	srv := newServer(t)
	admin := newClient(t, srv)
	ctx := context.Background()

	_, err := admin.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	orgs, err := admin.ListOrganizations(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, orgs)

	orgID := orgs[0].ID
	anon := newClient(t, srv)
	user, err := anon.Register(ctx, Registration{Username: "vera", Password: "secret1", OrganizationID: &orgID})
	require.NoError(t, err)
	require.Equal(t, auth.RoleViewer, user.Role)

	viewer := newClient(t, srv)
	_, err = viewer.Login(ctx, "vera", "secret1")
	require.NoError(t, err)

	_, err = viewer.CreateOrganization(ctx, "Shadow", nil)
	require.True(t, errors.Is(err, tracker.ErrForbidden))

	err = viewer.DeleteOrganization(ctx, orgID)
	require.True(t, errors.Is(err, tracker.ErrForbidden))

	view, err := admin.Promote(ctx, user.ID, auth.RoleOwner)
	require.NoError(t, err)
	require.Equal(t, auth.RoleOwner, view.Role)

	users, err := admin.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
}

func TestUnauthenticatedRequest(t *testing.T) {
	srv := newServer(t)
	c := newClient(t, srv)

	_, err := c.ListTasks(context.Background())
	require.True(t, errors.Is(err, tracker.ErrUnauthenticated))
}
