package model

import (
	"encoding/json"
	"sort"
	"time"
)

// Permission modules guarded by the role matrix.
const (
	ModuleArticles     = "articles"
	ModuleUsers        = "users"
	ModuleSubscribers  = "subscribers"
	ModuleSettings     = "settings"
	ModuleCalculations = "calculations"
	ModuleAnalytics    = "analytics"
	ModuleCaseStudies  = "case_studies"
)

// Permission actions that may be granted per module.
const (
	ActionView    = "view"
	ActionCreate  = "create"
	ActionEdit    = "edit"
	ActionDelete  = "delete"
	ActionPublish = "publish"
	ActionExport  = "export"
	ActionApprove = "approve"
)

// Modules lists every module in display order.
var Modules = []string{
	ModuleArticles, ModuleUsers, ModuleSubscribers, ModuleSettings,
	ModuleCalculations, ModuleAnalytics, ModuleCaseStudies,
}

// Actions lists every action in display order.
var Actions = []string{
	ActionView, ActionCreate, ActionEdit, ActionDelete,
	ActionPublish, ActionExport, ActionApprove,
}

// IsModule reports whether m is a known permission module.
func IsModule(m string) bool { return contains(Modules, m) }

// IsAction reports whether a is a known permission action.
func IsAction(a string) bool { return contains(Actions, a) }

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Matrix maps a module to the actions granted on it. A module or action
// absent from the matrix is not granted.
type Matrix map[string][]string

// Allows reports whether action is granted on module.
func (m Matrix) Allows(module, action string) bool {
	return contains(m[module], action)
}

// Grant returns a copy of m with action added to module.
func (m Matrix) Grant(module, action string) Matrix {
	out := m.clone()
	if !contains(out[module], action) {
		out[module] = append(append([]string(nil), out[module]...), action)
	}
	return out
}

// Revoke returns a copy of m with action removed from module. Modules left
// with no actions are dropped.
func (m Matrix) Revoke(module, action string) Matrix {
	out := m.clone()
	cur := out[module]
	kept := make([]string, 0, len(cur))
	for _, a := range cur {
		if a != action {
			kept = append(kept, a)
		}
	}
	if len(kept) == 0 {
		delete(out, module)
	} else {
		out[module] = kept
	}
	return out
}

// Toggle flips a single cell and leaves every other cell untouched.
func (m Matrix) Toggle(module, action string) Matrix {
	if m.Allows(module, action) {
		return m.Revoke(module, action)
	}
	return m.Grant(module, action)
}

// Normalize drops unknown modules and actions, removes duplicates and sorts
// actions in vocabulary order.
func (m Matrix) Normalize() Matrix {
	out := make(Matrix, len(m))
	for _, module := range Modules {
		acts, ok := m[module]
		if !ok {
			continue
		}
		var kept []string
		for _, a := range Actions {
			if contains(acts, a) {
				kept = append(kept, a)
			}
		}
		if len(kept) > 0 {
			out[module] = kept
		}
	}
	return out
}

// Unknown lists entries outside the module and action vocabularies, as
// "module" or "module:action".
func (m Matrix) Unknown() []string {
	var out []string
	for _, module := range m.SortedModules() {
		if !IsModule(module) {
			out = append(out, module)
			continue
		}
		for _, a := range m[module] {
			if !IsAction(a) {
				out = append(out, module+":"+a)
			}
		}
	}
	return out
}

func (m Matrix) clone() Matrix {
	out := make(Matrix, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// FullMatrix grants every action on every module.
func FullMatrix() Matrix {
	out := make(Matrix, len(Modules))
	for _, module := range Modules {
		out[module] = append([]string(nil), Actions...)
	}
	return out
}

// EncodeMatrix serializes a matrix to the flat JSON text stored in the
// permissions column. Keys are emitted in sorted order.
func EncodeMatrix(m Matrix) string {
	if m == nil {
		return "{}"
	}
	b, err := json.Marshal(map[string][]string(m))
	if err != nil {
		return "{}"
	}
	return string(b)
}

// DecodeMatrix parses stored permission text. Malformed or empty text yields
// an empty matrix.
func DecodeMatrix(s string) Matrix {
	var raw map[string][]string
	if s == "" || json.Unmarshal([]byte(s), &raw) != nil || raw == nil {
		return Matrix{}
	}
	return Matrix(raw)
}

// SortedModules returns the matrix keys in sorted order.
func (m Matrix) SortedModules() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Role is a named permission matrix. Admins reference a role by its slug.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name" validate:"required,max=100"`
	Slug        string    `json:"slug" validate:"required,max=100,slug"`
	Permissions Matrix    `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
}

// RoleUpdate carries a partial role update. A non-nil Permissions replaces
// the whole matrix.
type RoleUpdate struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Slug        *string `json:"slug,omitempty" validate:"omitempty,max=100,slug"`
	Permissions Matrix  `json:"permissions,omitempty"`
}

// Empty reports whether the update names no fields.
func (u RoleUpdate) Empty() bool {
	return u.Name == nil && u.Slug == nil && u.Permissions == nil
}
