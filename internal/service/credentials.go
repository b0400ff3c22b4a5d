package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/readyluo/lasercalcpro-sub004/internal/model"
	"github.com/readyluo/lasercalcpro-sub004/internal/store"
	"github.com/readyluo/lasercalcpro-sub004/internal/validation"
)

// MinPasswordLength is the shortest password accepted for an account.
const MinPasswordLength = 6

var (
	// ErrInvalidCredentials is returned for an unknown user, an inactive
	// account or a wrong password. Callers cannot tell these apart.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNothingToUpdate is returned when an update names no fields.
	ErrNothingToUpdate = errors.New("nothing to update")
)

// CredentialService manages admin accounts and password checks.
type CredentialService struct {
	store  *store.Store
	hasher *PasswordHasher
	logger *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewCredentialService creates a credential service backed by st.
func NewCredentialService(st *store.Store, hasher *PasswordHasher, logger *slog.Logger) *CredentialService {
	return &CredentialService{store: st, hasher: hasher, logger: logger}
}

// Authenticate returns the active admin matching username and password.
// The returned admin carries no password hash.
func (s *CredentialService) Authenticate(ctx context.Context, username, password string) (*model.Admin, error) {
	admin, err := s.store.GetAdminByUsername(ctx, username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	if admin == nil || !admin.IsActive {
		// Burn a comparison so unknown users take as long as known ones.
		s.hasher.Verify(password, s.dummy())
		return nil, ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(password, admin.PasswordHash)
	if err != nil {
		s.logger.Warn("password verification failed", "admin_id", admin.ID, "error", err)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	admin.PasswordHash = ""
	return admin, nil
}

func (s *CredentialService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("lasercalc-timing-equalizer")
	})
	return s.dummyHash
}

// RecordLogin stamps the login time and address. Failures are logged and
// never reach the login flow.
func (s *CredentialService) RecordLogin(ctx context.Context, id int64, ip string) {
	if err := s.store.RecordLogin(ctx, id, ip); err != nil {
		s.logger.Warn("failed to record login", "admin_id", id, "error", err)
	}
}

// Get returns an admin by ID without its password hash.
func (s *CredentialService) Get(ctx context.Context, id int64) (*model.Admin, error) {
	admin, err := s.store.GetAdmin(ctx, id)
	if err != nil {
		return nil, err
	}
	admin.PasswordHash = ""
	return admin, nil
}

// List returns every admin, newest first, without password hashes.
func (s *CredentialService) List(ctx context.Context) ([]model.Admin, error) {
	admins, err := s.store.ListAdmins(ctx)
	if err != nil {
		return nil, err
	}
	for i := range admins {
		admins[i].PasswordHash = ""
	}
	return admins, nil
}

// Create validates in, hashes the password and stores a new active account.
// The role defaults to admin.
func (s *CredentialService) Create(ctx context.Context, in model.NewAdmin) (*model.Admin, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	admin := &model.Admin{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		DisplayName:  in.DisplayName,
		Role:         in.Role,
		IsActive:     true,
	}
	if err := s.store.CreateAdmin(ctx, admin); err != nil {
		return nil, err
	}
	admin.PasswordHash = ""
	return admin, nil
}

// Update applies a partial update to the admin with id.
func (s *CredentialService) Update(ctx context.Context, id int64, u model.AdminUpdate) error {
	if u.Empty() {
		return ErrNothingToUpdate
	}
	if err := validation.Struct(u); err != nil {
		return err
	}
	return s.store.UpdateAdmin(ctx, id, u)
}

// ChangePassword replaces the password of the admin with id.
func (s *CredentialService) ChangePassword(ctx context.Context, id int64, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return validation.FieldError("new_password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.store.SetAdminPassword(ctx, id, hash)
}

// Delete removes the admin with id. Callers enforce that an admin cannot
// delete their own account.
func (s *CredentialService) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteAdmin(ctx, id)
}
