package tracker

import "context"

// Store describes the persistence operations the tracker depends on. Lookups
// return ErrNotFound for missing rows and ErrConflict for uniqueness violations;
// any other error is a store failure.
type Store interface {
	FindTask(ctx context.Context, id int64) (Task, error)
	// ListTasks returns every task ordered by id descending.
	ListTasks(ctx context.Context) ([]Task, error)
	// ListTasksByOrganization returns tasks of one organization ordered by id descending.
	ListTasksByOrganization(ctx context.Context, orgID int64) ([]Task, error)
	// SaveTask inserts the task when its ID is zero and overwrites it otherwise.
	// On insert the assigned ID and timestamps are written back into task.
	SaveTask(ctx context.Context, task *Task) error
	DeleteTask(ctx context.Context, id int64) error

	FindUser(ctx context.Context, id int64) (User, error)
	FindUserByUsername(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	CreateUser(ctx context.Context, user *User) error
	SaveUser(ctx context.Context, user *User) error

	FindOrganization(ctx context.Context, id int64) (Organization, error)
	// ListOrganizations returns organizations ordered by id ascending.
	ListOrganizations(ctx context.Context) ([]Organization, error)
	CreateOrganization(ctx context.Context, org *Organization) error
	// DeleteOrganization removes the organization and its children in one operation.
	DeleteOrganization(ctx context.Context, id int64) error
}
