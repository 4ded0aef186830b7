package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"tasktrack.org/internal/client"
	"tasktrack.org/internal/ids"
	"tasktrack.org/internal/tracker"
)

func main() {
	log.SetFlags(0)
	flagSet := pflag.NewFlagSet("tasktrack-smoke", pflag.ContinueOnError)
	var (
		addr      = flagSet.String("addr", envOr("TASKTRACK_API_URL", "http://localhost:8080"), "tasktrack-api base URL")
		adminPass = flagSet.String("admin-password", envOr("TASKTRACK_SEED_ADMIN_PASSWORD", "admin123"), "password of the seeded admin")
		timeout   = flagSet.Duration("timeout", 10*time.Second, "overall timeout")
	)
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	admin, err := client.New(*addr)
	if err != nil {
		log.Fatalf("client: %v", err)
	}
	if _, err := admin.Login(ctx, "admin", *adminPass); err != nil {
		log.Fatalf("admin login: %v", err)
	}

	orgs, err := admin.ListOrganizations(ctx)
	if err != nil {
		log.Fatalf("list organizations: %v", err)
	}
	var root, child *tracker.Organization
	for i := range orgs {
		switch {
		case orgs[i].ParentID == nil && root == nil:
			root = &orgs[i]
		case orgs[i].ParentID != nil && child == nil:
			child = &orgs[i]
		}
	}
	if root == nil || child == nil {
		log.Fatalf("expected a root and a child organization, got %d organizations", len(orgs))
	}

	adminTask, err := admin.CreateTask(ctx, client.TaskInput{Title: "smoke: admin task", Priority: "high"})
	if err != nil {
		log.Fatalf("create admin task: %v", err)
	}
	defer func() {
		if _, err := admin.DeleteTask(context.Background(), adminTask.ID); err != nil {
			log.Printf("cleanup admin task %d: %v", adminTask.ID, err)
		}
	}()

	username := "smoke-" + strings.ToLower(ids.New())
	anon, err := client.New(*addr)
	if err != nil {
		log.Fatalf("client: %v", err)
	}
	if _, err := anon.Register(ctx, client.Registration{Username: username, Password: "smoke-pass", OrganizationID: &child.ID}); err != nil {
		log.Fatalf("register viewer: %v", err)
	}
	viewer, err := client.New(*addr)
	if err != nil {
		log.Fatalf("client: %v", err)
	}
	if _, err := viewer.Login(ctx, username, "smoke-pass"); err != nil {
		log.Fatalf("viewer login: %v", err)
	}

	visible, err := viewer.ListTasks(ctx)
	if err != nil {
		log.Fatalf("viewer list tasks: %v", err)
	}
	for _, task := range visible {
		if task.ID == adminTask.ID {
			log.Fatalf("viewer in %q can see task %d from %q", child.Name, adminTask.ID, root.Name)
		}
	}

	if _, err := viewer.DeleteTask(ctx, adminTask.ID); !errors.Is(err, tracker.ErrForbidden) {
		log.Fatalf("viewer delete of admin task: expected forbidden, got %v", err)
	}

	own, err := viewer.CreateTask(ctx, client.TaskInput{Title: "smoke: viewer task"})
	if err != nil {
		log.Fatalf("create viewer task: %v", err)
	}
	if own.AssignedToID == nil {
		log.Fatalf("viewer task %d was not self-assigned", own.ID)
	}
	if _, err := viewer.DeleteTask(ctx, own.ID); err != nil {
		log.Fatalf("delete viewer task: %v", err)
	}

	fmt.Printf("✅ tasktrack smoke test passed: admin_task=%d viewer=%s\n", adminTask.ID, username)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
