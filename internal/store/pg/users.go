package pg

import (
	"context"
	"database/sql"
	"errors"

	"tasktrack.org/internal/auth"
	"tasktrack.org/internal/tracker"
)

const userColumns = `id, username, password_hash, role, organization_id, created_at`

func scanUser(row rowScanner) (tracker.User, error) {
	var (
		u     tracker.User
		role  string
		orgID sql.NullInt64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &orgID, &u.CreatedAt); err != nil {
		return tracker.User{}, err
	}
	u.Role = auth.ParseRole(role)
	u.OrganizationID = int64Ptr(orgID)
	return u, nil
}

func (s *Store) FindUser(ctx context.Context, id int64) (tracker.User, error) {
	return s.findUser(ctx, `select `+userColumns+` from users where id = $1`, id)
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (tracker.User, error) {
	return s.findUser(ctx, `select `+userColumns+` from users where username = $1`, username)
}

func (s *Store) findUser(ctx context.Context, query string, arg any) (tracker.User, error) {
	if s.db == nil {
		return tracker.User{}, errNoDB
	}
	u, err := scanUser(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return tracker.User{}, tracker.ErrNotFound
	}
	return u, err
}

func (s *Store) ListUsers(ctx context.Context) ([]tracker.User, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `select `+userColumns+` from users order by id asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []tracker.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) CreateUser(ctx context.Context, user *tracker.User) error {
	if s.db == nil {
		return errNoDB
	}
	err := s.db.QueryRowContext(ctx, `
		insert into users (username, password_hash, role, organization_id)
		values ($1, $2, $3, $4)
		returning id, created_at
	`, user.Username, user.PasswordHash, string(auth.ParseRole(string(user.Role))), nullInt64(user.OrganizationID)).
		Scan(&user.ID, &user.CreatedAt)
	return mapWriteError(err)
}

func (s *Store) SaveUser(ctx context.Context, user *tracker.User) error {
	if s.db == nil {
		return errNoDB
	}
	res, err := s.db.ExecContext(ctx, `
		update users set role = $1, organization_id = $2, password_hash = $3
		where id = $4
	`, string(auth.ParseRole(string(user.Role))), nullInt64(user.OrganizationID), user.PasswordHash, user.ID)
	if err != nil {
		return mapWriteError(err)
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
