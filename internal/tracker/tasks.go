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
	opTaskCreate = "task.create"
	opTaskUpdate = "task.update"
	opTaskDelete = "task.delete"
)

// CreateTask stores a new task owned by actor inside actor's organization.
//
// An explicit assignee is looked up and silently dropped when it does not
// exist. Without one, admins leave the task unassigned while every other role
// assigns it to themselves.
func (s *Service) CreateTask(ctx context.Context, actor auth.Actor, in NewTask) (Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Task{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	status := StatusTodo
	if strings.TrimSpace(in.Status) != "" {
		st, err := ParseStatus(in.Status)
		if err != nil {
			return Task{}, err
		}
		status = st
	}
	priority := PriorityMedium
	if strings.TrimSpace(in.Priority) != "" {
		p, err := ParsePriority(in.Priority)
		if err != nil {
			return Task{}, err
		}
		priority = p
	}

	task := Task{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Status:      status,
		Priority:    priority,
		OwnerID:     actor.ID,
	}
	if actor.OrganizationID != nil {
		task.OrganizationID = int64Ptr(*actor.OrganizationID)
	}

	switch {
	case in.AssignedTo != nil:
		assignee, err := s.resolveAssignee(ctx, actor, *in.AssignedTo)
		if err != nil {
			return Task{}, err
		}
		task.AssignedToID = assignee
	case !actor.Role.Is(auth.RoleAdmin):
		task.AssignedToID = int64Ptr(actor.ID)
	}

	obs.ObserveDecision(opTaskCreate, obs.OutcomeAllowed)
	if err := s.store.SaveTask(ctx, &task); err != nil {
		return Task{}, s.storeFailure("save task", err)
	}
	return task, nil
}

// UpdateTask applies the fields present in patch. Only privileged actors or
// the owner within the task's organization may update; owner and organization
// never change. An empty patch is authorized but writes nothing.
func (s *Service) UpdateTask(ctx context.Context, actor auth.Actor, id int64, patch TaskPatch) (Task, error) {
	if err := patch.validate(); err != nil {
		return Task{}, err
	}
	task, err := s.loadTask(ctx, opTaskUpdate, id)
	if err != nil {
		return Task{}, err
	}
	if err := authorize(opTaskUpdate, canMutateTask(actor, task), "not authorized to update this task"); err != nil {
		return Task{}, err
	}
	if patch.Empty() {
		return task, nil
	}

	if patch.Title != nil {
		task.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		task.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Status != nil {
		task.Status, _ = ParseStatus(*patch.Status)
	}
	if patch.Priority != nil {
		task.Priority, _ = ParsePriority(*patch.Priority)
	}
	if patch.AssignedTo != nil {
		assignee, err := s.resolveAssignee(ctx, actor, *patch.AssignedTo)
		if err != nil {
			return Task{}, err
		}
		task.AssignedToID = assignee
	}

	if err := s.store.SaveTask(ctx, &task); err != nil {
		return Task{}, s.storeFailure("update task", err)
	}
	return task, nil
}

// DeleteTask permanently removes a task under the same rule as UpdateTask.
func (s *Service) DeleteTask(ctx context.Context, actor auth.Actor, id int64) (Deletion, error) {
	task, err := s.loadTask(ctx, opTaskDelete, id)
	if err != nil {
		return Deletion{}, err
	}
	if err := authorize(opTaskDelete, canMutateTask(actor, task), "not authorized to delete this task"); err != nil {
		return Deletion{}, err
	}
	if err := s.store.DeleteTask(ctx, task.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Deletion{}, fmt.Errorf("%w: task %d", ErrNotFound, id)
		}
		return Deletion{}, s.storeFailure("delete task", err)
	}
	return Deletion{Message: "Task deleted successfully", ID: task.ID}, nil
}

func (s *Service) loadTask(ctx context.Context, operation string, id int64) (Task, error) {
	if id <= 0 {
		return Task{}, notFound(operation, fmt.Sprintf("task %d", id))
	}
	task, err := s.store.FindTask(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Task{}, notFound(operation, fmt.Sprintf("task %d", id))
	}
	if err != nil {
		return Task{}, s.storeFailure("find task", err)
	}
	return task, nil
}

// resolveAssignee maps a requested assignee id onto an existing user. Missing
// users resolve to no assignee rather than an error.
func (s *Service) resolveAssignee(ctx context.Context, actor auth.Actor, userID int64) (*int64, error) {
	if userID <= 0 {
		return nil, nil
	}
	if s.assignment == AssignPrivilegedOnly && !actor.Privileged() && userID != actor.ID {
		return nil, nil
	}
	user, err := s.store.FindUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.storeFailure("find assignee", err)
	}
	return int64Ptr(user.ID), nil
}

func (p TaskPatch) validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
	}
	if p.Status != nil {
		if _, err := ParseStatus(*p.Status); err != nil {
			return err
		}
	}
	if p.Priority != nil {
		if _, err := ParsePriority(*p.Priority); err != nil {
			return err
		}
	}
	return nil
}
