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
// Admin CRUD
// ---------------------------------------------------------------------------

// adminRow maps 1:1 to the admins table. last_login is nullable so it scans
// through sql.NullTime.
type adminRow struct {
	ID           int64        `db:"id"`
	Username     string       `db:"username"`
	Email        string       `db:"email"`
	PasswordHash string       `db:"password_hash"`
	DisplayName  string       `db:"display_name"`
	Role         string       `db:"role"`
	IsActive     bool         `db:"is_active"`
	LastLogin    sql.NullTime `db:"last_login"`
	LastLoginIP  string       `db:"last_login_ip"`
	CreatedAt    time.Time    `db:"created_at"`
}

func (r adminRow) toModel() model.Admin {
	a := model.Admin{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		DisplayName:  r.DisplayName,
		Role:         r.Role,
		IsActive:     r.IsActive,
		LastLoginIP:  r.LastLoginIP,
		CreatedAt:    r.CreatedAt,
	}
	if r.LastLogin.Valid {
		t := r.LastLogin.Time
		a.LastLogin = &t
	}
	return a
}

const adminColumns = `id, username, email, password_hash, display_name, role, is_active,
	last_login, last_login_ip, created_at`

// CreateAdmin inserts a new admin account. The ID and CreatedAt fields on
// admin are populated after a successful insert. A duplicate username or
// email returns ErrConflict.
func (s *Store) CreateAdmin(ctx context.Context, admin *model.Admin) error {
	admin.CreatedAt = s.now()
	if admin.Role == "" {
		admin.Role = model.RoleAdmin
	}

	row := adminRow{
		Username:     admin.Username,
		Email:        admin.Email,
		PasswordHash: admin.PasswordHash,
		DisplayName:  admin.DisplayName,
		Role:         admin.Role,
		IsActive:     admin.IsActive,
		CreatedAt:    admin.CreatedAt,
	}

	const q = `INSERT INTO admins
		(username, email, password_hash, display_name, role, is_active, last_login_ip, created_at)
		VALUES
		(:username, :email, :password_hash, :display_name, :role, :is_active, :last_login_ip, :created_at)`

	id, err := s.insert(ctx, q, row)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert admin: %w", ErrConflict)
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	admin.ID = id
	return nil
}

// GetAdmin returns an admin by ID.
func (s *Store) GetAdmin(ctx context.Context, id int64) (*model.Admin, error) {
	return s.getAdmin(ctx, "id = ?", id)
}

// GetAdminByUsername returns an admin by username, active or not.
func (s *Store) GetAdminByUsername(ctx context.Context, username string) (*model.Admin, error) {
	return s.getAdmin(ctx, "username = ?", username)
}

// GetAdminByEmail returns an admin by email address.
func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error) {
	return s.getAdmin(ctx, "email = ?", email)
}

func (s *Store) getAdmin(ctx context.Context, where string, arg interface{}) (*model.Admin, error) {
	var row adminRow
	q := s.db.Rebind("SELECT " + adminColumns + " FROM admins WHERE " + where)
	if err := s.db.GetContext(ctx, &row, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	admin := row.toModel()
	return &admin, nil
}

// ListAdmins returns all admin accounts, newest first.
func (s *Store) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	var rows []adminRow
	q := "SELECT " + adminColumns + " FROM admins ORDER BY created_at DESC, id DESC"
	if err := s.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}

	admins := make([]model.Admin, len(rows))
	for i, r := range rows {
		admins[i] = r.toModel()
	}
	return admins, nil
}

// UpdateAdmin applies a partial update. An empty update is a no-op that
// still reports ErrNotFound for a missing id.
func (s *Store) UpdateAdmin(ctx context.Context, id int64, u model.AdminUpdate) error {
	var (
		sets []string
		args []interface{}
	)
	if u.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *u.Email)
	}
	if u.DisplayName != nil {
		sets = append(sets, "display_name = ?")
		args = append(args, *u.DisplayName)
	}
	if u.Role != nil {
		sets = append(sets, "role = ?")
		args = append(args, *u.Role)
	}
	if u.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *u.IsActive)
	}
	if len(sets) == 0 {
		_, err := s.GetAdmin(ctx, id)
		return err
	}

	args = append(args, id)
	err := s.execAffecting(ctx, "UPDATE admins SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	switch {
	case err == nil, errors.Is(err, ErrNotFound):
		return err
	case isUniqueViolation(err):
		return fmt.Errorf("update admin: %w", ErrConflict)
	default:
		return fmt.Errorf("update admin: %w", err)
	}
}

// SetAdminPassword replaces the stored password hash.
func (s *Store) SetAdminPassword(ctx context.Context, id int64, hash string) error {
	err := s.execAffecting(ctx, "UPDATE admins SET password_hash = ? WHERE id = ?", hash, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("set admin password: %w", err)
	}
	return err
}

// RecordLogin stamps the last login time and client address.
func (s *Store) RecordLogin(ctx context.Context, id int64, ip string) error {
	err := s.execAffecting(ctx, "UPDATE admins SET last_login = ?, last_login_ip = ? WHERE id = ?", s.now(), ip, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("record login: %w", err)
	}
	return err
}

// DeleteAdmin removes an admin account by ID.
func (s *Store) DeleteAdmin(ctx context.Context, id int64) error {
	err := s.execAffecting(ctx, "DELETE FROM admins WHERE id = ?", id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete admin: %w", err)
	}
	return err
}

// HasAnyAdmin reports whether at least one admin account exists.
func (s *Store) HasAnyAdmin(ctx context.Context) (bool, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM admins"); err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	return n > 0, nil
}
