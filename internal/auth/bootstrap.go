package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/DrojasFrontend/barbershop-booking-system/internal/domain"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/store"
)

type staffRepository interface {
	staffFinder
	CreateStaff(ctx context.Context, u domain.StaffUser) (domain.StaffUser, error)
}

// EnsureStaff creates the barber account for email unless one already exists.
// An existing account keeps its password. The bool reports whether a row was
// created.
func EnsureStaff(ctx context.Context, repo staffRepository, email, name, password string) (domain.StaffUser, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return domain.StaffUser{}, false, domain.NewValidationError("staff email and password are required")
	}

	existing, err := repo.FindStaffByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.StaffUser{}, false, fmt.Errorf("%w: find staff: %v", domain.ErrStorageUnavailable, err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return domain.StaffUser{}, false, fmt.Errorf("hash password: %w", err)
	}
	if strings.TrimSpace(name) == "" {
		name = email
	}
	u, err := repo.CreateStaff(ctx, domain.StaffUser{
		Email:        email,
		Name:         strings.TrimSpace(name),
		Role:         domain.RoleBarber,
		PasswordHash: hash,
	})
	switch {
	case errors.Is(err, store.ErrConflict):
		// Another instance created it first.
		existing, err := repo.FindStaffByEmail(ctx, email)
		if err != nil {
			return domain.StaffUser{}, false, fmt.Errorf("%w: find staff: %v", domain.ErrStorageUnavailable, err)
		}
		return existing, false, nil
	case err != nil:
		return domain.StaffUser{}, false, fmt.Errorf("%w: create staff: %v", domain.ErrStorageUnavailable, err)
	}
	return u, true, nil
}
