package pg

import (
	"context"
	"database/sql"
	"errors"

	"tasktrack.org/internal/tracker"
)

const taskColumns = `id, title, description, status, priority, owner_id, assigned_to_id, organization_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (tracker.Task, error) {
	var (
		t          tracker.Task
		status     string
		priority   string
		assignedTo sql.NullInt64
		orgID      sql.NullInt64
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &status, &priority, &t.OwnerID, &assignedTo, &orgID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return tracker.Task{}, err
	}
	t.Status = tracker.Status(status)
	t.Priority = tracker.Priority(priority)
	t.AssignedToID = int64Ptr(assignedTo)
	t.OrganizationID = int64Ptr(orgID)
	return t, nil
}

func (s *Store) FindTask(ctx context.Context, id int64) (tracker.Task, error) {
	if s.db == nil {
		return tracker.Task{}, errNoDB
	}
	t, err := scanTask(s.db.QueryRowContext(ctx, `select `+taskColumns+` from tasks where id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return tracker.Task{}, tracker.ErrNotFound
	}
	return t, err
}

func (s *Store) ListTasks(ctx context.Context) ([]tracker.Task, error) {
	return s.queryTasks(ctx, `select `+taskColumns+` from tasks order by id desc`)
}

func (s *Store) ListTasksByOrganization(ctx context.Context, orgID int64) ([]tracker.Task, error) {
	return s.queryTasks(ctx, `select `+taskColumns+` from tasks where organization_id = $1 order by id desc`, orgID)
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]tracker.Task, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []tracker.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) SaveTask(ctx context.Context, task *tracker.Task) error {
	if s.db == nil {
		return errNoDB
	}
	if task.ID == 0 {
		err := s.db.QueryRowContext(ctx, `
			insert into tasks (title, description, status, priority, owner_id, assigned_to_id, organization_id)
			values ($1, $2, $3, $4, $5, $6, $7)
			returning id, created_at, updated_at
		`, task.Title, task.Description, string(task.Status), string(task.Priority), task.OwnerID,
			nullInt64(task.AssignedToID), nullInt64(task.OrganizationID)).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
		return mapWriteError(err)
	}
	err := s.db.QueryRowContext(ctx, `
		update tasks
		set title = $1, description = $2, status = $3, priority = $4, assigned_to_id = $5, updated_at = now()
		where id = $6
		returning updated_at
	`, task.Title, task.Description, string(task.Status), string(task.Priority),
		nullInt64(task.AssignedToID), task.ID).Scan(&task.UpdatedAt)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	if s.db == nil {
		return errNoDB
	}
	res, err := s.db.ExecContext(ctx, `delete from tasks where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return tracker.ErrNotFound
	}
	return nil
}
