package model

import "time"

// Admin role tags. The tag is a coarse gate on the account itself; the
// fine-grained permission matrix lives on Role and is looked up by slug.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

// Admin represents a back-office account. Passwords are stored as bcrypt or
// argon2id hashes and never leave the store layer.
type Admin struct {
	ID           int64      `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"` // never expose
	DisplayName  string     `json:"display_name,omitempty" db:"display_name"`
	Role         string     `json:"role" db:"role"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty" db:"last_login"`
	LastLoginIP  string     `json:"last_login_ip,omitempty" db:"last_login_ip"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// AdminUpdate carries a partial update. Nil fields are left untouched.
type AdminUpdate struct {
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,max=100"`
	Role        *string `json:"role,omitempty" validate:"omitempty,oneof=admin editor"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// Empty reports whether the update names no fields.
func (u AdminUpdate) Empty() bool {
	return u.Email == nil && u.DisplayName == nil && u.Role == nil && u.IsActive == nil
}

// Identity is the set of claims carried by a session token and attached to
// authenticated requests.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// IdentityOf builds the token identity for an admin account.
func IdentityOf(a *Admin) Identity {
	return Identity{ID: a.ID, Username: a.Username, Email: a.Email, Role: a.Role}
}

// NewAdmin is the input for creating an admin account.
type NewAdmin struct {
	Username    string `json:"username" validate:"required,min=3,max=50"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	DisplayName string `json:"display_name,omitempty" validate:"omitempty,max=100"`
	Role        string `json:"role,omitempty" validate:"omitempty,oneof=admin editor"`
}
