// Package audit records and queries the back-office audit trail.
//
// Writes are best effort: Record has no error result, and storage failures
// are logged and counted instead of failing the operation being audited.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"

	"github.com/readyluo/lasercalcpro-sub004/internal/metrics"
	"github.com/readyluo/lasercalcpro-sub004/internal/model"
	"github.com/readyluo/lasercalcpro-sub004/internal/store"
)

// Pagination bounds for Query.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Recorder appends and reads audit entries.
type Recorder struct {
	store  *store.Store
	logger *slog.Logger
}

// NewRecorder creates a recorder backed by st.
func NewRecorder(st *store.Store, logger *slog.Logger) *Recorder {
	return &Recorder{store: st, logger: logger}
}

// Record appends e with server time. Call it after the audited mutation has
// succeeded.
func (r *Recorder) Record(ctx context.Context, e model.AuditEntry) {
	e.ID = 0
	e.CreatedAt = e.CreatedAt.UTC()
	if err := r.store.AppendAudit(ctx, &e); err != nil {
		metrics.AuditWritesTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		r.logger.Error("audit write failed",
			"action", e.Action,
			"module", e.Module,
			"description", e.Description,
			"error", err,
		)
		return
	}
	metrics.AuditWritesTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
}

// Payload encodes v as JSON text for AuditEntry.Payload. Values that cannot
// be encoded yield an empty payload.
func Payload(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Get returns a single entry.
func (r *Recorder) Get(ctx context.Context, id int64) (*model.AuditEntry, error) {
	return r.store.GetAudit(ctx, id)
}

// Query returns one page of entries matching f, newest first. page is
// clamped to [1, MaxInt32/limit] and limit to [1, MaxLimit] with DefaultLimit for
// non-positive values.
func (r *Recorder) Query(ctx context.Context, f model.AuditFilter, page, limit int) (*model.AuditPage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if maxPage := math.MaxInt32 / limit; page > maxPage {
		page = maxPage
	}

	total, err := r.store.CountAudit(ctx, f)
	if err != nil {
		return nil, err
	}
	items, err := r.store.QueryAudit(ctx, f, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	return &model.AuditPage{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}
