package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tasktrack.org/internal/auth"
	"tasktrack.org/internal/obs"
)

const (
	opPromote  = "user.promote"
	opRegister = "user.register"
)

var _ auth.ActorResolver = (*Service)(nil)

// Promote sets the role of targetID. Only privileged actors may promote, and
// the permission is global rather than organization scoped. Unrecognized role
// names become viewer.
func (s *Service) Promote(ctx context.Context, actor auth.Actor, targetID int64, requested string) (UserView, error) {
	if err := authorize(opPromote, actor.Privileged(), "only admins or owners can promote users"); err != nil {
		return UserView{}, err
	}
	user, err := s.store.FindUser(ctx, targetID)
	if errors.Is(err, ErrNotFound) {
		return UserView{}, notFound(opPromote, fmt.Sprintf("user %d", targetID))
	}
	if err != nil {
		return UserView{}, s.storeFailure("find user", err)
	}
	user.Role = requestedRole(opPromote, requested)
	if err := s.store.SaveUser(ctx, &user); err != nil {
		return UserView{}, s.storeFailure("save user", err)
	}
	return user.View(), nil
}

// Register provisions an account. caller is nil for anonymous sign-up, which
// always yields a viewer; a privileged caller may grant roles up to its own.
func (s *Service) Register(ctx context.Context, caller *auth.Actor, in Registration) (UserView, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return UserView{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if len(in.Password) < auth.MinPasswordLength {
		return UserView{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, auth.MinPasswordLength)
	}

	role := auth.RoleViewer
	if caller != nil && caller.Privileged() && strings.TrimSpace(in.Role) != "" {
		role = requestedRole(opRegister, in.Role)
		if !auth.AtLeast(caller.Role, role) {
			role = caller.Role
		}
	}

	user := User{Username: username, Role: role}
	if in.OrganizationID != nil {
		ok, err := s.OrganizationExists(ctx, *in.OrganizationID)
		if err != nil {
			return UserView{}, err
		}
		if !ok {
			return UserView{}, fmt.Errorf("%w: organization %d does not exist", ErrInvalidInput, *in.OrganizationID)
		}
		user.OrganizationID = int64Ptr(*in.OrganizationID)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return UserView{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	user.PasswordHash = hash

	if err := s.store.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, ErrConflict) {
			return UserView{}, fmt.Errorf("%w: username %q is taken", ErrConflict, username)
		}
		return UserView{}, s.storeFailure("create user", err)
	}
	return user.View(), nil
}

// Login checks credentials. Every mismatch reports ErrUnauthenticated.
func (s *Service) Login(ctx context.Context, username, password string) (User, error) {
	user, err := s.store.FindUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrNotFound) {
		return User{}, fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	}
	if err != nil {
		return User{}, s.storeFailure("find user", err)
	}
	if !auth.PasswordMatches(user.PasswordHash, password) {
		return User{}, fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	}
	return user, nil
}

// ListUsers returns the public view of every user ordered by id.
func (s *Service) ListUsers(ctx context.Context) ([]UserView, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, s.storeFailure("list users", err)
	}
	out := make([]UserView, 0, len(users))
	for _, u := range users {
		out = append(out, u.View())
	}
	return out, nil
}

// ResolveActor loads a fresh actor for an authenticated subject.
func (s *Service) ResolveActor(ctx context.Context, userID int64) (auth.Actor, error) {
	user, err := s.store.FindUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return auth.Actor{}, auth.ErrUnknownSubject
	}
	if err != nil {
		return auth.Actor{}, s.storeFailure("resolve actor", err)
	}
	return user.Actor(), nil
}

// requestedRole normalizes a caller-supplied role, noting values that fell
// back to viewer.
func requestedRole(operation, raw string) auth.Role {
	if !auth.Role(raw).Valid() {
		obs.Logger().Warn().
			Str("operation", operation).
			Str("requested_role", raw).
			Msg("unrecognized role, using viewer")
	}
	return auth.ParseRole(raw)
}
