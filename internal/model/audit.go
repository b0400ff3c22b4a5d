package model

import "time"

// Audit actions recorded by the back office.
const (
	AuditCreate         = "create"
	AuditEdit           = "edit"
	AuditDelete         = "delete"
	AuditLogin          = "login"
	AuditLogout         = "logout"
	AuditExport         = "export"
	AuditPublish        = "publish"
	AuditApprove        = "approve"
	AuditSettingsUpdate = "settings_update"
)

// Audit modules. These extend the permission modules with "roles".
const (
	AuditModuleArticles     = "articles"
	AuditModuleUsers        = "users"
	AuditModuleSettings     = "settings"
	AuditModuleSubscribers  = "subscribers"
	AuditModuleCalculations = "calculations"
	AuditModuleAnalytics    = "analytics"
	AuditModuleRoles        = "roles"
	AuditModuleCaseStudies  = "case_studies"
)

// AuditActions is the audit action vocabulary.
var AuditActions = []string{
	AuditCreate, AuditEdit, AuditDelete, AuditLogin, AuditLogout,
	AuditExport, AuditPublish, AuditApprove, AuditSettingsUpdate,
}

// AuditModules is the audit module vocabulary.
var AuditModules = []string{
	AuditModuleArticles, AuditModuleUsers, AuditModuleSettings, AuditModuleSubscribers,
	AuditModuleCalculations, AuditModuleAnalytics, AuditModuleRoles, AuditModuleCaseStudies,
}

// AuditEntry is a single append-only audit record.
type AuditEntry struct {
	ID          int64     `json:"id" db:"id"`
	UserID      *int64    `json:"user_id" db:"user_id"`
	Action      string    `json:"action" db:"action"`
	Module      string    `json:"module" db:"module"`
	Description string    `json:"description" db:"description"`
	Payload     string    `json:"payload,omitempty" db:"payload"`
	IPAddress   string    `json:"ip_address" db:"ip_address"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// AuditFilter narrows an audit query. Zero-valued fields do not filter.
// All set fields are combined conjunctively.
type AuditFilter struct {
	From    *time.Time
	To      *time.Time
	UserID  *int64
	Action  string
	Module  string
	Keyword string
}

// AuditPage is a page of audit entries with pagination metadata.
type AuditPage struct {
	Items      []AuditEntry `json:"items"`
	Total      int64        `json:"total"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	TotalPages int          `json:"totalPages"`
}
