package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/readyluo/lasercalcpro-sub004/internal/model"
)

// column types per dialect, substituted into the DDL below.
var dialectTypes = map[string]*strings.Replacer{
	DialectSQLite: strings.NewReplacer(
		"{{id}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"{{str}}", "TEXT",
		"{{bool}}", "INTEGER",
		"{{ts}}", "DATETIME",
	),
	DialectPostgres: strings.NewReplacer(
		"{{id}}", "BIGSERIAL PRIMARY KEY",
		"{{str}}", "VARCHAR(255)",
		"{{bool}}", "BOOLEAN",
		"{{ts}}", "TIMESTAMPTZ",
	),
	DialectMySQL: strings.NewReplacer(
		"{{id}}", "BIGINT AUTO_INCREMENT PRIMARY KEY",
		"{{str}}", "VARCHAR(255)",
		"{{bool}}", "TINYINT(1)",
		"{{ts}}", "DATETIME(6)",
	),
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS admins (
		id {{id}},
		username {{str}} UNIQUE NOT NULL,
		email {{str}} UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		display_name {{str}} NOT NULL DEFAULT '',
		role {{str}} NOT NULL DEFAULT 'admin',
		is_active {{bool}} NOT NULL DEFAULT TRUE,
		last_login {{ts}} NULL,
		last_login_ip {{str}} NOT NULL DEFAULT '',
		created_at {{ts}} NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS roles (
		id {{id}},
		name {{str}} NOT NULL,
		slug {{str}} UNIQUE NOT NULL,
		permissions TEXT NOT NULL,
		created_at {{ts}} NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS audit_logs (
		id {{id}},
		user_id BIGINT NULL,
		action {{str}} NOT NULL,
		module {{str}} NOT NULL,
		description TEXT NOT NULL,
		payload TEXT NULL,
		ip_address {{str}} NOT NULL DEFAULT '',
		created_at {{ts}} NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_user_id ON audit_logs(user_id)`,

	`CREATE TABLE IF NOT EXISTS settings (
		setting_key {{str}} PRIMARY KEY,
		setting_value TEXT NOT NULL,
		description {{str}} NOT NULL DEFAULT '',
		is_public {{bool}} NOT NULL DEFAULT FALSE,
		updated_at {{ts}} NOT NULL
	)`,
}

func (s *Store) migrate() error {
	types, ok := dialectTypes[s.dialect]
	if !ok {
		return fmt.Errorf("no migrations for dialect %q", s.dialect)
	}

	for _, m := range migrations {
		stmt := types.Replace(m)
		if s.dialect == DialectMySQL {
			// MySQL has no CREATE INDEX IF NOT EXISTS.
			stmt = strings.Replace(stmt, "INDEX IF NOT EXISTS", "INDEX", 1)
		}
		if _, err := s.db.Exec(stmt); err != nil {
			// Re-running index creation on MySQL reports a duplicate key name;
			// treat it as a no-op for idempotent migrations.
			if strings.Contains(err.Error(), "Duplicate key name") {
				continue
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}

// seed installs the built-in roles into an empty roles table and adds any
// missing default settings.
func (s *Store) seed(ctx context.Context) error {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM roles"); err != nil {
		return fmt.Errorf("count roles: %w", err)
	}
	if n == 0 {
		for _, role := range defaultRoles() {
			r := role
			if err := s.CreateRole(ctx, &r); err != nil {
				return fmt.Errorf("seed role %s: %w", r.Slug, err)
			}
		}
	}

	for _, setting := range model.DefaultSettings {
		if _, err := s.GetSetting(ctx, setting.Key); err == nil {
			continue
		} else if err != ErrNotFound {
			return fmt.Errorf("check setting %s: %w", setting.Key, err)
		}
		if err := s.SetSetting(ctx, setting); err != nil {
			return fmt.Errorf("seed setting %s: %w", setting.Key, err)
		}
	}
	return nil
}

func defaultRoles() []model.Role {
	return []model.Role{
		{
			Name:        "Administrator",
			Slug:        model.RoleAdmin,
			Permissions: model.FullMatrix(),
		},
		{
			Name: "Editor",
			Slug: model.RoleEditor,
			Permissions: model.Matrix{
				model.ModuleArticles:     {model.ActionView, model.ActionCreate, model.ActionEdit, model.ActionPublish},
				model.ModuleCaseStudies:  {model.ActionView, model.ActionCreate, model.ActionEdit},
				model.ModuleCalculations: {model.ActionView},
				model.ModuleAnalytics:    {model.ActionView},
				model.ModuleSubscribers:  {model.ActionView},
			},
		},
	}
}
