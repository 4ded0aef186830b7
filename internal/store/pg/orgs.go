package pg

import (
	"context"
	"database/sql"
	"errors"

	"tasktrack.org/internal/tracker"
)

const orgSelect = `
	select o.id, o.name, o.parent_id, p.name, o.created_at
	from organizations o
	left join organizations p on p.id = o.parent_id`

func scanOrganization(row rowScanner) (tracker.Organization, error) {
	var (
		o          tracker.Organization
		parentID   sql.NullInt64
		parentName sql.NullString
	)
	if err := row.Scan(&o.ID, &o.Name, &parentID, &parentName, &o.CreatedAt); err != nil {
		return tracker.Organization{}, err
	}
	o.ParentID = int64Ptr(parentID)
	if parentID.Valid && parentName.Valid {
		o.Parent = &tracker.OrganizationRef{ID: parentID.Int64, Name: parentName.String}
	}
	o.Children = []int64{}
	return o, nil
}

func (s *Store) FindOrganization(ctx context.Context, id int64) (tracker.Organization, error) {
	if s.db == nil {
		return tracker.Organization{}, errNoDB
	}
	org, err := scanOrganization(s.db.QueryRowContext(ctx, orgSelect+` where o.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return tracker.Organization{}, tracker.ErrNotFound
	}
	if err != nil {
		return tracker.Organization{}, err
	}
	children, err := s.childIndex(ctx, `select id, parent_id from organizations where parent_id = $1 order by id asc`, id)
	if err != nil {
		return tracker.Organization{}, err
	}
	if c := children[org.ID]; c != nil {
		org.Children = c
	}
	return org, nil
}

func (s *Store) ListOrganizations(ctx context.Context) ([]tracker.Organization, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, orgSelect+` order by o.id asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []tracker.Organization{}
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, org)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	children, err := s.childIndex(ctx, `select id, parent_id from organizations where parent_id is not null order by id asc`)
	if err != nil {
		return nil, err
	}
	for i := range result {
		if c := children[result[i].ID]; c != nil {
			result[i].Children = c
		}
	}
	return result, nil
}

// childIndex groups child ids by parent.
func (s *Store) childIndex(ctx context.Context, query string, args ...any) (map[int64][]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int64][]int64{}
	for rows.Next() {
		var id, parent int64
		if err := rows.Scan(&id, &parent); err != nil {
			return nil, err
		}
		out[parent] = append(out[parent], id)
	}
	return out, rows.Err()
}

func (s *Store) CreateOrganization(ctx context.Context, org *tracker.Organization) error {
	if s.db == nil {
		return errNoDB
	}
	err := s.db.QueryRowContext(ctx, `
		insert into organizations (name, parent_id)
		values ($1, $2)
		returning id, created_at
	`, org.Name, nullInt64(org.ParentID)).Scan(&org.ID, &org.CreatedAt)
	return mapWriteError(err)
}

// DeleteOrganization relies on the parent_id cascade to remove children.
func (s *Store) DeleteOrganization(ctx context.Context, id int64) error {
	if s.db == nil {
		return errNoDB
	}
	res, err := s.db.ExecContext(ctx, `delete from organizations where id = $1`, id)
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
