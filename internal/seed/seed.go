// Package seed bootstraps an empty store with a starter organization tree
// and two privileged accounts.
package seed

import (
	"context"
	"fmt"

	"tasktrack.org/internal/auth"
	"tasktrack.org/internal/obs"
	"tasktrack.org/internal/tracker"
)

// Credentials are the bootstrap passwords for the seeded accounts.
type Credentials struct {
	AdminPassword string
	OwnerPassword string
}

// Run seeds store when it holds no users and no organizations. It reports
// whether anything was written.
func Run(ctx context.Context, store tracker.Store, creds Credentials) (bool, error) {
	users, err := store.ListUsers(ctx)
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	orgs, err := store.ListOrganizations(ctx)
	if err != nil {
		return false, fmt.Errorf("count organizations: %w", err)
	}
	if len(users) > 0 || len(orgs) > 0 {
		obs.Logger().Info().Int("users", len(users)).Int("organizations", len(orgs)).Msg("store already seeded, skipping")
		return false, nil
	}

	root := tracker.Organization{Name: "Organization A"}
	if err := store.CreateOrganization(ctx, &root); err != nil {
		return false, fmt.Errorf("create %s: %w", root.Name, err)
	}
	for _, name := range []string{"Organization B", "Organization C"} {
		child := tracker.Organization{Name: name, ParentID: &root.ID}
		if err := store.CreateOrganization(ctx, &child); err != nil {
			return false, fmt.Errorf("create %s: %w", name, err)
		}
	}

	accounts := []struct {
		username string
		password string
		role     auth.Role
	}{
		{"admin", creds.AdminPassword, auth.RoleAdmin},
		{"owner", creds.OwnerPassword, auth.RoleOwner},
	}
	for _, a := range accounts {
		hash, err := auth.HashPassword(a.password)
		if err != nil {
			return false, fmt.Errorf("hash %s password: %w", a.username, err)
		}
		orgID := root.ID
		user := tracker.User{Username: a.username, PasswordHash: hash, Role: a.role, OrganizationID: &orgID}
		if err := store.CreateUser(ctx, &user); err != nil {
			return false, fmt.Errorf("create user %s: %w", a.username, err)
		}
	}

	obs.Logger().Info().Msg("seeded organizations A/B/C with admin and owner accounts")
	return true, nil
}
