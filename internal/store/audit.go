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
// Audit log
// ---------------------------------------------------------------------------

type auditRow struct {
	ID          int64          `db:"id"`
	UserID      sql.NullInt64  `db:"user_id"`
	Action      string         `db:"action"`
	Module      string         `db:"module"`
	Description string         `db:"description"`
	Payload     sql.NullString `db:"payload"`
	IPAddress   string         `db:"ip_address"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (r auditRow) toModel() model.AuditEntry {
	e := model.AuditEntry{
		ID:          r.ID,
		Action:      r.Action,
		Module:      r.Module,
		Description: r.Description,
		Payload:     r.Payload.String,
		IPAddress:   r.IPAddress,
		CreatedAt:   r.CreatedAt,
	}
	if r.UserID.Valid {
		id := r.UserID.Int64
		e.UserID = &id
	}
	return e
}

const auditColumns = "id, user_id, action, module, description, payload, ip_address, created_at"

// AppendAudit inserts an audit entry. CreatedAt is stamped with server time
// when zero. Entries are never updated or deleted.
func (s *Store) AppendAudit(ctx context.Context, entry *model.AuditEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}

	row := auditRow{
		Action:      entry.Action,
		Module:      entry.Module,
		Description: entry.Description,
		IPAddress:   entry.IPAddress,
		CreatedAt:   entry.CreatedAt,
	}
	if entry.UserID != nil {
		row.UserID = sql.NullInt64{Int64: *entry.UserID, Valid: true}
	}
	if entry.Payload != "" {
		row.Payload = sql.NullString{String: entry.Payload, Valid: true}
	}

	const q = `INSERT INTO audit_logs (user_id, action, module, description, payload, ip_address, created_at)
		VALUES (:user_id, :action, :module, :description, :payload, :ip_address, :created_at)`

	id, err := s.insert(ctx, q, row)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	entry.ID = id
	return nil
}

// GetAudit returns a single audit entry by ID.
func (s *Store) GetAudit(ctx context.Context, id int64) (*model.AuditEntry, error) {
	var row auditRow
	q := s.db.Rebind("SELECT " + auditColumns + " FROM audit_logs WHERE id = ?")
	if err := s.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get audit entry: %w", err)
	}
	e := row.toModel()
	return &e, nil
}

func auditWhere(f model.AuditFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if f.From != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		conds = append(conds, "created_at <= ?")
		args = append(args, f.To.UTC())
	}
	if f.UserID != nil {
		conds = append(conds, "user_id = ?")
		args = append(args, *f.UserID)
	}
	if f.Action != "" {
		conds = append(conds, "action = ?")
		args = append(args, f.Action)
	}
	if f.Module != "" {
		conds = append(conds, "module = ?")
		args = append(args, f.Module)
	}
	if f.Keyword != "" {
		conds = append(conds, "LOWER(description) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.Keyword)+"%")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// CountAudit returns the number of entries matching f.
func (s *Store) CountAudit(ctx context.Context, f model.AuditFilter) (int64, error) {
	where, args := auditWhere(f)
	var total int64
	if err := s.db.GetContext(ctx, &total, s.db.Rebind("SELECT COUNT(*) FROM audit_logs"+where), args...); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return total, nil
}

// QueryAudit returns entries matching f, newest first, with id as a
// tie-breaker so repeated calls return the same order.
func (s *Store) QueryAudit(ctx context.Context, f model.AuditFilter, limit, offset int) ([]model.AuditEntry, error) {
	where, args := auditWhere(f)
	q := "SELECT " + auditColumns + " FROM audit_logs" + where +
		" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []auditRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}

	entries := make([]model.AuditEntry, len(rows))
	for i, r := range rows {
		entries[i] = r.toModel()
	}
	return entries, nil
}
