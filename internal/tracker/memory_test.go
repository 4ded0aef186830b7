package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestInMemoryTaskLifecycle(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	org := int64(7)

	task := Task{Title: "a", OrganizationID: &org}
	if err := s.SaveTask(ctx, &task); err != nil {
		t.Fatalf("save: %v", err)
	}
	if task.ID == 0 || task.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamps written back, got %+v", task)
	}

	org = 8
	stored, err := s.FindTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if *stored.OrganizationID != 7 {
		t.Fatalf("store must not alias caller pointers, got org %d", *stored.OrganizationID)
	}

	ghost := Task{ID: 99, Title: "ghost"}
	if err := s.SaveTask(ctx, &ghost); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for unknown id, got %v", err)
	}
	if err := s.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.FindTask(ctx, task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestInMemoryListTasksOrdering(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	a, b := int64(1), int64(2)
	for _, org := range []*int64{&a, &b, &a, nil} {
		task := Task{Title: "t", OrganizationID: org}
		if err := s.SaveTask(ctx, &task); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	all, _ := s.ListTasks(ctx)
	if len(all) != 4 || all[0].ID != 4 || all[3].ID != 1 {
		t.Fatalf("unexpected order: %+v", all)
	}
	inA, _ := s.ListTasksByOrganization(ctx, a)
	if len(inA) != 2 || inA[0].ID != 3 || inA[1].ID != 1 {
		t.Fatalf("unexpected org listing: %+v", inA)
	}
}

func TestInMemoryDuplicateUsername(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	first := User{Username: "sam"}
	if err := s.CreateUser(ctx, &first); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := User{Username: "sam"}
	if err := s.CreateUser(ctx, &dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := s.FindUserByUsername(ctx, "sam"); err != nil {
		t.Fatalf("find by username: %v", err)
	}
	if _, err := s.FindUserByUsername(ctx, "pat"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestInMemoryConcurrentSaves(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task := Task{Title: "c"}
			if err := s.SaveTask(ctx, &task); err != nil {
				t.Errorf("save: %v", err)
			}
		}()
	}
	wg.Wait()
	all, _ := s.ListTasks(ctx)
	if len(all) != 32 {
		t.Fatalf("expected 32 tasks, got %d", len(all))
	}
}
