package tracker

import (
	"cmp"
	"context"
	"slices"

	"tasktrack.org/internal/auth"
)

// ListVisible returns the tasks actor may see, newest first. Privileged actors
// see every task; others see only their organization's tasks, and nothing at
// all when they have no organization.
func (s *Service) ListVisible(ctx context.Context, actor auth.Actor) ([]Task, error) {
	var (
		tasks []Task
		err   error
	)
	switch {
	case actor.Privileged():
		tasks, err = s.store.ListTasks(ctx)
	case actor.OrganizationID == nil:
		return []Task{}, nil
	default:
		tasks, err = s.store.ListTasksByOrganization(ctx, *actor.OrganizationID)
	}
	if err != nil {
		return nil, s.storeFailure("list tasks", err)
	}

	visible := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if actor.Privileged() || auth.SameOrganization(t.OrganizationID, actor.OrganizationID) {
			visible = append(visible, t)
		}
	}
	slices.SortFunc(visible, func(a, b Task) int { return cmp.Compare(b.ID, a.ID) })
	return visible, nil
}
