// Package catalog administers the service menu and the weekly schedule.
// Existing appointments keep the duration they were booked with.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/DrojasFrontend/barbershop-booking-system/internal/domain"
)

type repository interface {
	ListServices(ctx context.Context) ([]domain.Service, error)
	UpsertService(ctx context.Context, svc domain.Service) (domain.Service, error)
	ListWorkingHours(ctx context.Context) ([]domain.WorkingHours, error)
	UpsertWorkingHours(ctx context.Context, wh domain.WorkingHours) (domain.WorkingHours, error)
}

type Service struct {
	repo repository
}

func NewService(repo repository) *Service {
	return &Service{repo: repo}
}

type ServiceInput struct {
	ID              string
	Name            string
	DurationMinutes int
}

func (s *Service) UpsertService(ctx context.Context, in ServiceInput) (domain.Service, error) {
	id := strings.ToLower(strings.TrimSpace(in.ID))
	if id == "" {
		return domain.Service{}, domain.NewValidationError("service id is required")
	}
	if in.DurationMinutes <= 0 {
		return domain.Service{}, domain.NewValidationError("durationMinutes must be positive")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = id
	}

	svc, err := s.repo.UpsertService(ctx, domain.Service{ID: id, Name: name, DurationMinutes: in.DurationMinutes})
	if err != nil {
		return domain.Service{}, unavailable(err)
	}
	return svc, nil
}

func (s *Service) ListServices(ctx context.Context) ([]domain.Service, error) {
	out, err := s.repo.ListServices(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	return out, nil
}

// UpsertWorkingHours replaces the hours for one day. An inactive day is still
// validated so it can be switched back on without re-entering times.
func (s *Service) UpsertWorkingHours(ctx context.Context, wh domain.WorkingHours) (domain.WorkingHours, error) {
	wh.StartTime = strings.TrimSpace(wh.StartTime)
	wh.EndTime = strings.TrimSpace(wh.EndTime)
	if err := wh.Validate(); err != nil {
		return domain.WorkingHours{}, err
	}
	start, end, _ := wh.Bounds()
	wh.StartTime, wh.EndTime = domain.FormatClock(start), domain.FormatClock(end)

	out, err := s.repo.UpsertWorkingHours(ctx, wh)
	if err != nil {
		return domain.WorkingHours{}, unavailable(err)
	}
	return out, nil
}

func (s *Service) ListWorkingHours(ctx context.Context) ([]domain.WorkingHours, error) {
	out, err := s.repo.ListWorkingHours(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	return out, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
}
