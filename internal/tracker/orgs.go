package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tasktrack.org/internal/auth"
)

const (
	opOrgCreate = "organization.create"
	opOrgDelete = "organization.delete"
)

// ListOrganizations returns every organization ordered by id, each with its
// parent resolved and its child ids derived.
func (s *Service) ListOrganizations(ctx context.Context) ([]Organization, error) {
	orgs, err := s.store.ListOrganizations(ctx)
	if err != nil {
		return nil, s.storeFailure("list organizations", err)
	}
	if orgs == nil {
		orgs = []Organization{}
	}
	return orgs, nil
}

// CreateOrganization adds a root organization, or a child of an existing root.
// Hierarchies never grow past two tiers.
func (s *Service) CreateOrganization(ctx context.Context, actor auth.Actor, in NewOrganization) (Organization, error) {
	if err := authorize(opOrgCreate, actor.Privileged(), "organization management requires admin or owner"); err != nil {
		return Organization{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Organization{}, fmt.Errorf("%w: organization name is required", ErrInvalidInput)
	}
	org := Organization{Name: name, Children: []int64{}}
	if in.ParentID != nil {
		parent, err := s.store.FindOrganization(ctx, *in.ParentID)
		if errors.Is(err, ErrNotFound) {
			return Organization{}, fmt.Errorf("%w: parent organization %d", ErrNotFound, *in.ParentID)
		}
		if err != nil {
			return Organization{}, s.storeFailure("find parent organization", err)
		}
		if parent.ParentID != nil {
			return Organization{}, fmt.Errorf("%w: parent organization %d is not a root", ErrInvalidInput, parent.ID)
		}
		org.ParentID = int64Ptr(parent.ID)
		org.Parent = &OrganizationRef{ID: parent.ID, Name: parent.Name}
	}
	if err := s.store.CreateOrganization(ctx, &org); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Organization{}, fmt.Errorf("%w: parent organization %d", ErrNotFound, *in.ParentID)
		}
		return Organization{}, s.storeFailure("create organization", err)
	}
	return org, nil
}

// DeleteOrganization removes an organization and its children. Users and
// tasks keep their organization reference.
func (s *Service) DeleteOrganization(ctx context.Context, actor auth.Actor, id int64) error {
	if err := authorize(opOrgDelete, actor.Privileged(), "organization management requires admin or owner"); err != nil {
		return err
	}
	err := s.store.DeleteOrganization(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return notFound(opOrgDelete, fmt.Sprintf("organization %d", id))
	}
	if err != nil {
		return s.storeFailure("delete organization", err)
	}
	return nil
}

// OrganizationExists reports whether id names a stored organization.
func (s *Service) OrganizationExists(ctx context.Context, id int64) (bool, error) {
	_, err := s.store.FindOrganization(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, s.storeFailure("find organization", err)
	}
}
