package tracker

import (
	"context"
	"sort"
	"sync"
	"time"
)

var _ Store = (*InMemory)(nil)

// InMemory implements Store with in-process concurrency safety. It backs
// tests and database-less development runs.
type InMemory struct {
	mu    sync.RWMutex
	now   func() time.Time
	tasks map[int64]Task
	users map[int64]User
	orgs  map[int64]Organization

	taskSeq, userSeq, orgSeq int64
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		now:   time.Now,
		tasks: make(map[int64]Task),
		users: make(map[int64]User),
		orgs:  make(map[int64]Organization),
	}
}

func (s *InMemory) FindTask(ctx context.Context, id int64) (Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	return copyTask(t), nil
}

func (s *InMemory) ListTasks(ctx context.Context) ([]Task, error) {
	return s.filterTasks(func(Task) bool { return true }), nil
}

func (s *InMemory) ListTasksByOrganization(ctx context.Context, orgID int64) ([]Task, error) {
	return s.filterTasks(func(t Task) bool {
		return t.OrganizationID != nil && *t.OrganizationID == orgID
	}), nil
}

func (s *InMemory) filterTasks(keep func(Task) bool) []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if keep(t) {
			out = append(out, copyTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s *InMemory) SaveTask(ctx context.Context, task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	if task.ID == 0 {
		s.taskSeq++
		task.ID = s.taskSeq
		task.CreatedAt = now
	} else if _, ok := s.tasks[task.ID]; !ok {
		return ErrNotFound
	}
	task.UpdatedAt = now
	s.tasks[task.ID] = copyTask(*task)
	return nil
}

func (s *InMemory) DeleteTask(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *InMemory) FindUser(ctx context.Context, id int64) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return copyUser(u), nil
}

func (s *InMemory) FindUserByUsername(ctx context.Context, username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	return User{}, ErrNotFound
}

func (s *InMemory) ListUsers(ctx context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) CreateUser(ctx context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == user.Username {
			return ErrConflict
		}
	}
	s.userSeq++
	user.ID = s.userSeq
	user.CreatedAt = s.now().UTC()
	s.users[user.ID] = copyUser(*user)
	return nil
}

func (s *InMemory) SaveUser(ctx context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return ErrNotFound
	}
	s.users[user.ID] = copyUser(*user)
	return nil
}

func (s *InMemory) FindOrganization(ctx context.Context, id int64) (Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orgs[id]
	if !ok {
		return Organization{}, ErrNotFound
	}
	return s.resolveOrg(o), nil
}

func (s *InMemory) ListOrganizations(ctx context.Context) ([]Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Organization, 0, len(s.orgs))
	for _, o := range s.orgs {
		out = append(out, s.resolveOrg(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) CreateOrganization(ctx context.Context, org *Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if org.ParentID != nil {
		if _, ok := s.orgs[*org.ParentID]; !ok {
			return ErrNotFound
		}
	}
	s.orgSeq++
	org.ID = s.orgSeq
	org.CreatedAt = s.now().UTC()
	stored := Organization{ID: org.ID, Name: org.Name, CreatedAt: org.CreatedAt}
	if org.ParentID != nil {
		stored.ParentID = int64Ptr(*org.ParentID)
	}
	s.orgs[org.ID] = stored
	return nil
}

// DeleteOrganization cascades through every descendant. Tasks and users keep
// their now-dangling organization reference.
func (s *InMemory) DeleteOrganization(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[id]; !ok {
		return ErrNotFound
	}
	pending := []int64{id}
	for len(pending) > 0 {
		cur := pending[0]
		pending = pending[1:]
		delete(s.orgs, cur)
		for childID, o := range s.orgs {
			if o.ParentID != nil && *o.ParentID == cur {
				pending = append(pending, childID)
			}
		}
	}
	return nil
}

// resolveOrg fills the derived parent and children fields. Caller holds the lock.
func (s *InMemory) resolveOrg(o Organization) Organization {
	out := Organization{ID: o.ID, Name: o.Name, CreatedAt: o.CreatedAt, Children: []int64{}}
	if o.ParentID != nil {
		out.ParentID = int64Ptr(*o.ParentID)
		if p, ok := s.orgs[*o.ParentID]; ok {
			out.Parent = &OrganizationRef{ID: p.ID, Name: p.Name}
		}
	}
	for _, c := range s.orgs {
		if c.ParentID != nil && *c.ParentID == o.ID {
			out.Children = append(out.Children, c.ID)
		}
	}
	sort.Slice(out.Children, func(i, j int) bool { return out.Children[i] < out.Children[j] })
	return out
}

func copyTask(t Task) Task {
	if t.AssignedToID != nil {
		t.AssignedToID = int64Ptr(*t.AssignedToID)
	}
	if t.OrganizationID != nil {
		t.OrganizationID = int64Ptr(*t.OrganizationID)
	}
	return t
}

func copyUser(u User) User {
	if u.OrganizationID != nil {
		u.OrganizationID = int64Ptr(*u.OrganizationID)
	}
	return u
}
