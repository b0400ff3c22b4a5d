package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/readyluo/lasercalcpro-sub004/internal/model"
)

// ---------------------------------------------------------------------------
// Role CRUD
// ---------------------------------------------------------------------------

// roleRow maps to the roles table. The permission matrix is stored as a
// flat JSON text column.
type roleRow struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Slug        string    `db:"slug"`
	Permissions string    `db:"permissions"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r roleRow) toModel() model.Role {
	return model.Role{
		ID:          r.ID,
		Name:        r.Name,
		Slug:        r.Slug,
		Permissions: model.DecodeMatrix(r.Permissions),
		CreatedAt:   r.CreatedAt,
	}
}

// CreateRole inserts a new role. The ID and CreatedAt fields are populated
// after a successful insert. A duplicate slug returns ErrConflict.
func (s *Store) CreateRole(ctx context.Context, role *model.Role) error {
	role.CreatedAt = s.now()
	if role.Permissions == nil {
		role.Permissions = model.Matrix{}
	}

	row := roleRow{
		Name:        role.Name,
		Slug:        role.Slug,
		Permissions: model.EncodeMatrix(role.Permissions),
		CreatedAt:   role.CreatedAt,
	}

	const q = `INSERT INTO roles (name, slug, permissions, created_at)
		VALUES (:name, :slug, :permissions, :created_at)`

	id, err := s.insert(ctx, q, row)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert role: %w", ErrConflict)
		}
		return fmt.Errorf("insert role: %w", err)
	}
	role.ID = id
	return nil
}

// GetRole returns a role by ID.
func (s *Store) GetRole(ctx context.Context, id int64) (*model.Role, error) {
	return s.getRole(ctx, "id = ?", id)
}

// GetRoleBySlug returns a role by its unique slug.
func (s *Store) GetRoleBySlug(ctx context.Context, slug string) (*model.Role, error) {
	return s.getRole(ctx, "slug = ?", slug)
}

func (s *Store) getRole(ctx context.Context, where string, arg interface{}) (*model.Role, error) {
	var row roleRow
	q := s.db.Rebind("SELECT id, name, slug, permissions, created_at FROM roles WHERE " + where)
	if err := s.db.GetContext(ctx, &row, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get role: %w", err)
	}
	role := row.toModel()
	return &role, nil
}

// ListRoles returns all roles in creation order.
func (s *Store) ListRoles(ctx context.Context) ([]model.Role, error) {
	var rows []roleRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT id, name, slug, permissions, created_at FROM roles ORDER BY id ASC"); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}

	roles := make([]model.Role, len(rows))
	for i, r := range rows {
		roles[i] = r.toModel()
	}
	return roles, nil
}

// UpdateRole applies a partial update. A non-nil matrix replaces the stored
// one wholesale. An empty update succeeds without touching the row.
func (s *Store) UpdateRole(ctx context.Context, id int64, u model.RoleUpdate) error {
	var (
		sets []string
		args []interface{}
	)
	if u.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *u.Name)
	}
	if u.Slug != nil {
		sets = append(sets, "slug = ?")
		args = append(args, *u.Slug)
	}
	if u.Permissions != nil {
		sets = append(sets, "permissions = ?")
		args = append(args, model.EncodeMatrix(u.Permissions))
	}
	if len(sets) == 0 {
		_, err := s.GetRole(ctx, id)
		return err
	}

	args = append(args, id)
	err := s.execAffecting(ctx, "UPDATE roles SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	switch {
	case err == nil, errors.Is(err, ErrNotFound):
		return err
	case isUniqueViolation(err):
		return fmt.Errorf("update role: %w", ErrConflict)
	default:
		return fmt.Errorf("update role: %w", err)
	}
}

// DeleteRole removes a role by ID. Admins tagged with the role's slug are
// left untouched.
func (s *Store) DeleteRole(ctx context.Context, id int64) error {
	err := s.execAffecting(ctx, "DELETE FROM roles WHERE id = ?", id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete role: %w", err)
	}
	return err
}
