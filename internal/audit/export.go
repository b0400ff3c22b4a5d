package audit

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/readyluo/lasercalcpro-sub004/internal/metrics"
	"github.com/readyluo/lasercalcpro-sub004/internal/model"
)

// ExportLimit bounds the number of rows in one CSV export.
const ExportLimit = 5000

// CSVHeader is the first row of every export, present even when no rows match.
var CSVHeader = []string{"id", "user_id", "action", "module", "description", "ip_address", "created_at"}

// Export writes up to ExportLimit entries matching f to w as CSV and returns
// the number of data rows written.
func (r *Recorder) Export(ctx context.Context, f model.AuditFilter, w io.Writer) (int, error) {
	items, err := r.store.QueryAudit(ctx, f, ExportLimit, 0)
	if err != nil {
		return 0, err
	}

	if err := WriteCSV(w, items); err != nil {
		return 0, err
	}
	metrics.AuditExportRowsTotal.Add(float64(len(items)))
	return len(items), nil
}

// WriteCSV writes entries as CSV with a header row. Fields containing
// quotes, commas or newlines are quoted with inner quotes doubled.
func WriteCSV(w io.Writer, entries []model.AuditEntry) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(CSVHeader); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}

	for _, e := range entries {
		row := []string{
			strconv.FormatInt(e.ID, 10),
			formatInt64Ptr(e.UserID),
			e.Action,
			e.Module,
			e.Description,
			e.IPAddress,
			e.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	return nil
}

func formatInt64Ptr(val *int64) string {
	if val == nil {
		return ""
	}
	return strconv.FormatInt(*val, 10)
}
