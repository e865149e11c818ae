package store

import (
	"context"

	"github.com/DrojasFrontend/barbershop-booking-system/internal/domain"
)

type CatalogRepository interface {
	FindService(ctx context.Context, id string) (domain.Service, error)
	ListServices(ctx context.Context) ([]domain.Service, error)
	// LongestServiceDuration is zero for an empty catalog.
	LongestServiceDuration(ctx context.Context) (int, error)
	UpsertService(ctx context.Context, svc domain.Service) (domain.Service, error)

	// FindActiveSchedule returns ErrNotFound when the day has no active hours.
	FindActiveSchedule(ctx context.Context, dayOfWeek int) (domain.WorkingHours, error)
	ListWorkingHours(ctx context.Context) ([]domain.WorkingHours, error)
	UpsertWorkingHours(ctx context.Context, wh domain.WorkingHours) (domain.WorkingHours, error)
}

type StaffRepository interface {
	FindStaffByEmail(ctx context.Context, email string) (domain.StaffUser, error)
	CreateStaff(ctx context.Context, u domain.StaffUser) (domain.StaffUser, error)
}
