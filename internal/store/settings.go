package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/readyluo/lasercalcpro-sub004/internal/model"
)

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

const settingColumns = "setting_key, setting_value, description, is_public, updated_at"

// ListSettings returns every setting ordered by key. When publicOnly is set
// only settings flagged public are returned.
func (s *Store) ListSettings(ctx context.Context, publicOnly bool) ([]model.Setting, error) {
	q := "SELECT " + settingColumns + " FROM settings"
	var args []interface{}
	if publicOnly {
		q += " WHERE is_public = ?"
		args = append(args, true)
	}
	q += " ORDER BY setting_key"

	var settings []model.Setting
	if err := s.db.SelectContext(ctx, &settings, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return settings, nil
}

// GetSetting returns a single setting by key.
func (s *Store) GetSetting(ctx context.Context, key string) (*model.Setting, error) {
	var setting model.Setting
	q := s.db.Rebind("SELECT " + settingColumns + " FROM settings WHERE setting_key = ?")
	if err := s.db.GetContext(ctx, &setting, q, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get setting: %w", err)
	}
	return &setting, nil
}

// SetSetting inserts or replaces a setting. UpdatedAt is stamped here.
func (s *Store) SetSetting(ctx context.Context, setting model.Setting) error {
	setting.UpdatedAt = s.now()

	var q string
	switch s.dialect {
	case DialectMySQL:
		q = `INSERT INTO settings (` + settingColumns + `)
			VALUES (:setting_key, :setting_value, :description, :is_public, :updated_at)
			ON DUPLICATE KEY UPDATE setting_value = VALUES(setting_value),
				description = VALUES(description), is_public = VALUES(is_public),
				updated_at = VALUES(updated_at)`
	default:
		q = `INSERT INTO settings (` + settingColumns + `)
			VALUES (:setting_key, :setting_value, :description, :is_public, :updated_at)
			ON CONFLICT (setting_key) DO UPDATE SET setting_value = excluded.setting_value,
				description = excluded.description, is_public = excluded.is_public,
				updated_at = excluded.updated_at`
	}

	if _, err := s.db.NamedExecContext(ctx, q, setting); err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}
