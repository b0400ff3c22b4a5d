package audit

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/readyluo/lasercalcpro-sub004/internal/model"
	"github.com/readyluo/lasercalcpro-sub004/internal/validation"
)

const (
	dateOnly = "2006-01-02"

	// MaxKeywordLen caps the q filter.
	MaxKeywordLen = 200
)

// ParseFilter reads audit filters from query parameters: from, to, userId,
// action, module and q. Dates are RFC 3339 timestamps or YYYY-MM-DD; a
// date-only "to" covers the whole day.
func ParseFilter(q url.Values) (model.AuditFilter, error) {
	var f model.AuditFilter

	if v := q.Get("from"); v != "" {
		t, _, err := parseTime(v)
		if err != nil {
			return f, validation.FieldError("from", "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
		}
		f.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, dateOnlyValue, err := parseTime(v)
		if err != nil {
			return f, validation.FieldError("to", "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
		}
		if dateOnlyValue {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.To = &t
	}
	if v := q.Get("userId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return f, validation.FieldError("userId", "must be a positive integer")
		}
		f.UserID = &id
	}
	if v := q.Get("action"); v != "" {
		if !oneOf(model.AuditActions, v) {
			return f, validation.FieldError("action", "must be one of: "+strings.Join(model.AuditActions, ", "))
		}
		f.Action = v
	}
	if v := q.Get("module"); v != "" {
		if !oneOf(model.AuditModules, v) {
			return f, validation.FieldError("module", "must be one of: "+strings.Join(model.AuditModules, ", "))
		}
		f.Module = v
	}
	kw := strings.TrimSpace(strings.ReplaceAll(q.Get("q"), "\x00", ""))
	if len(kw) > MaxKeywordLen {
		return f, validation.FieldError("q", fmt.Sprintf("must be at most %d characters", MaxKeywordLen))
	}
	f.Keyword = kw
	return f, nil
}

func parseTime(v string) (t time.Time, dateOnlyValue bool, err error) {
	if t, err := time.Parse(dateOnly, v); err == nil {
		return t.UTC(), true, nil
	}
	t, err = time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse time %q: %w", v, err)
	}
	return t.UTC(), false, nil
}

func oneOf(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
