package tracker

import (
	"errors"
	"fmt"
	"strings"

	"tasktrack.org/internal/auth"
	"tasktrack.org/internal/obs"
)

// AssignmentPolicy decides whether a non-privileged actor may name another
// user as a task's assignee.
type AssignmentPolicy string

const (
	// AssignAnyone lets any actor assign any existing user.
	AssignAnyone AssignmentPolicy = "anyone"
	// AssignPrivilegedOnly leaves the task unassigned when a non-privileged
	// actor names somebody other than themselves.
	AssignPrivilegedOnly AssignmentPolicy = "privileged"
)

// ParseAssignmentPolicy resolves a configured policy name. Empty selects AssignAnyone.
func ParseAssignmentPolicy(raw string) (AssignmentPolicy, error) {
	switch p := AssignmentPolicy(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return AssignAnyone, nil
	case AssignAnyone, AssignPrivilegedOnly:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown assignment policy %q", ErrInvalidInput, raw)
	}
}

// Service is the access-control and visibility engine. It keeps no state
// between calls; every decision re-reads the target from the store.
type Service struct {
	store      Store
	assignment AssignmentPolicy
}

// Option configures Service behavior.
type Option func(*Service)

// WithAssignmentPolicy selects how explicit assignees are treated.
func WithAssignmentPolicy(p AssignmentPolicy) Option {
	return func(s *Service) {
		if p != "" {
			s.assignment = p
		}
	}
}

// NewService constructs a Service over store.
func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("tracker store is required")
	}
	s := &Service{store: store, assignment: AssignAnyone}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AssignmentPolicy reports the active assignment policy.
func (s *Service) AssignmentPolicy() AssignmentPolicy { return s.assignment }

// storeFailure logs the underlying error and returns an opaque one.
func (s *Service) storeFailure(operation string, err error) error {
	obs.Logger().Error().Err(err).Str("operation", operation).Msg("store operation failed")
	return fmt.Errorf("%w: %s", ErrPersistence, operation)
}

// authorize records the decision and converts a denial into ErrForbidden.
func authorize(operation string, allowed bool, reason string) error {
	if !allowed {
		obs.ObserveDecision(operation, obs.OutcomeDenied)
		return fmt.Errorf("%w: %s", ErrForbidden, reason)
	}
	obs.ObserveDecision(operation, obs.OutcomeAllowed)
	return nil
}

func notFound(operation, what string) error {
	obs.ObserveDecision(operation, obs.OutcomeNotFound)
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

// canMutateTask: privileged actors may touch any task; everybody else must
// own it and still share its organization.
func canMutateTask(actor auth.Actor, task Task) bool {
	if actor.Privileged() {
		return true
	}
	return actor.ID == task.OwnerID && actor.InOrganization(task.OrganizationID)
}
