package database

import (
	"context"
	"fmt"

	"github.com/pixelbuilders001/whydesigns-backend-server/internal/models"
)

const roleColumns = `id, name, description, createdat, updatedat`

type RoleRepository struct {
	db      DBPool
	dialect Dialect
}

func NewRoleRepository(db DBPool) *RoleRepository {
	return &RoleRepository{db: db, dialect: DialectOf(db)}
}

func (r *RoleRepository) Create(ctx context.Context, name string, description *string) (*models.Role, error) {
	query := fmt.Sprintf(`INSERT INTO roles (name, description, createdat, updatedat) VALUES ($1, $2, %s, %s) RETURNING id`,
		r.dialect.Now(), r.dialect.Now())

	var id int64
	if err := r.db.QueryRow(ctx, query, name, description).Scan(&id); err != nil {
		return nil, fmt.Errorf("failed to create role: %w", translateError(err))
	}
	return r.GetByID(ctx, id)
}

func (r *RoleRepository) GetByID(ctx context.Context, id int64) (*models.Role, error) {
	role, err := scanRole(r.db.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id))
	if err != nil {
		return nil, translateError(err)
	}
	return role, nil
}

func (r *RoleRepository) GetByName(ctx context.Context, name string) (*models.Role, error) {
	role, err := scanRole(r.db.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE name = $1`, name))
	if err != nil {
		return nil, translateError(err)
	}
	return role, nil
}

func (r *RoleRepository) List(ctx context.Context, page models.Page) ([]models.Role, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM roles`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count roles: %w", err)
	}

	rows, err := r.db.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY id ASC LIMIT $1 OFFSET $2`, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	roles := make([]models.Role, 0, page.Limit)
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, *role)
	}
	return roles, total, rows.Err()
}

func (r *RoleRepository) Update(ctx context.Context, id int64, name, description *string) (*models.Role, error) {
	var set setClause
	if name != nil {
		set.add("name", *name)
	}
	if description != nil {
		set.add("description", *description)
	}
	set.raw("updatedat = " + r.dialect.Now())

	result, err := r.db.Exec(ctx, `UPDATE roles SET `+set.String()+` WHERE id = `+set.next(id), set.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update role: %w", translateError(err))
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *RoleRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", translateError(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRole(row Row) (*models.Role, error) {
	var role models.Role
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return nil, err
	}
	return &role, nil
}
