package tracker

import (
	"fmt"
	"strings"
	"time"

	"tasktrack.org/internal/auth"
)

// Status is the workflow state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
	StatusBlocked    Status = "blocked"
)

// ParseStatus validates raw input. Empty input is rejected; callers decide on defaults.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusTodo, StatusInProgress, StatusDone, StatusBlocked:
		return s, nil
	default:
		return "", fmt.Errorf("%w: unsupported status %q", ErrInvalidInput, raw)
	}
}

// Priority orders tasks for humans; it has no effect on access control.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func ParsePriority(raw string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(raw))); p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unsupported priority %q", ErrInvalidInput, raw)
	}
}

// Organization groups users and tasks. Hierarchies are two tiers deep: a root
// has no parent, a child's parent is a root.
type Organization struct {
	ID        int64            `json:"id"`
	Name      string           `json:"name"`
	ParentID  *int64           `json:"parent_id,omitempty"`
	Parent    *OrganizationRef `json:"parent,omitempty"`
	Children  []int64          `json:"children"`
	CreatedAt time.Time        `json:"created_at"`
}

// OrganizationRef is the resolved parent of an organization.
type OrganizationRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// User is a persisted identity.
type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	PasswordHash   string    `json:"-"`
	Role           auth.Role `json:"role"`
	OrganizationID *int64    `json:"organization_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Actor projects the user into a request identity.
func (u User) Actor() auth.Actor {
	return auth.Actor{
		ID:             u.ID,
		Username:       u.Username,
		Role:           auth.ParseRole(string(u.Role)),
		OrganizationID: u.OrganizationID,
	}
}

// View returns the minimal projection exposed to clients.
func (u User) View() UserView {
	return UserView{ID: u.ID, Username: u.Username, Role: auth.ParseRole(string(u.Role))}
}

// UserView is the public shape of a user: no password data, no organization.
type UserView struct {
	ID       int64     `json:"id"`
	Username string    `json:"username"`
	Role     auth.Role `json:"role"`
}

// Task is a unit of work owned by its creator.
type Task struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Status         Status    `json:"status"`
	Priority       Priority  `json:"priority"`
	OwnerID        int64     `json:"owner_id"`
	AssignedToID   *int64    `json:"assigned_to_id"`
	OrganizationID *int64    `json:"organization_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewTask is the creation payload.
type NewTask struct {
	Title       string
	Description string
	Status      string
	Priority    string
	AssignedTo  *int64
}

// TaskPatch carries the fields present in an update request. Nil fields are left untouched.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	// AssignedTo, when set, is resolved to a user; unknown or non-positive ids clear the assignee.
	AssignedTo *int64
}

// Empty reports whether the patch carries no fields.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Priority == nil && p.AssignedTo == nil
}

// Deletion confirms a removed task.
type Deletion struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

// NewOrganization is the creation payload for an organization.
type NewOrganization struct {
	Name     string
	ParentID *int64
}

// Registration is the account-provisioning payload.
type Registration struct {
	Username       string
	Password       string
	Role           string
	OrganizationID *int64
}

func int64Ptr(v int64) *int64 { return &v }
