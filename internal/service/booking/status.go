package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DrojasFrontend/barbershop-booking-system/internal/domain"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/events"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/scheduling"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/store"
)

type UpdateStatusInput struct {
	ID                 string
	Status             string
	CancellationReason string
	// ScheduledAt moves the appointment; only valid with the rescheduled status.
	ScheduledAt *time.Time
	Origin      string
}

// UpdateStatus applies a staff transition.
func (s *Service) UpdateStatus(ctx context.Context, in UpdateStatusInput) (domain.Appointment, error) {
	id, err := parseID(in.ID)
	if err != nil {
		return domain.Appointment{}, err
	}
	to, err := domain.ParseStatus(in.Status)
	if err != nil {
		return domain.Appointment{}, err
	}
	reason := strings.TrimSpace(in.CancellationReason)
	if reason != "" && to != domain.StatusCancelledByBarber {
		return domain.Appointment{}, domain.NewValidationError("cancellationReason is only accepted with cancelled_by_barber")
	}
	if in.ScheduledAt != nil && to != domain.StatusRescheduled {
		return domain.Appointment{}, domain.NewValidationError("scheduledAt is only accepted with rescheduled")
	}

	var (
		keys     []string
		radius   time.Duration
		newStart time.Time
	)
	if in.ScheduledAt != nil {
		if in.ScheduledAt.IsZero() {
			return domain.Appointment{}, domain.NewValidationError("scheduledAt is invalid")
		}
		newStart = in.ScheduledAt.In(s.loc)
		radius, err = s.radius(ctx)
		if err != nil {
			return domain.Appointment{}, err
		}
		keys = store.CalendarDayKeys(newStart.Add(-radius), newStart.Add(radius), s.loc)
	}

	var updated domain.Appointment
	err = s.appts.InCalendarTransaction(ctx, keys, func(ctx context.Context, tx store.CalendarTx) error {
		current, err := tx.GetAppointmentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := domain.Transition(current.Status, to, domain.ActorStaff); err != nil {
			return err
		}

		next := current
		next.Status = to
		if reason != "" {
			next.CancellationReason = reason
		}
		if in.ScheduledAt != nil {
			candidate := scheduling.WindowOf(newStart, current.EffectiveDuration())
			if err := s.checkWorkingHours(ctx, candidate); err != nil {
				return err
			}
			if err := ensureFree(ctx, tx, candidate, radius, current.ID); err != nil {
				return err
			}
			next.ScheduledAt = newStart.UTC()
		}

		updated, err = tx.UpdateAppointment(ctx, next)
		return err
	})
	if err != nil {
		return domain.Appointment{}, translate(err)
	}

	s.publish(ctx, events.AppointmentUpdated, updated, in.Origin)
	return updated, nil
}

type ClientCancelInput struct {
	ID          string
	ClientName  string
	ClientPhone string
	Origin      string
}

// CancelByClient lets a client cancel using the same name and phone they
// booked with. A mismatch is indistinguishable from an unknown id.
func (s *Service) CancelByClient(ctx context.Context, in ClientCancelInput) (domain.Appointment, error) {
	id, err := parseID(in.ID)
	if err != nil {
		return domain.Appointment{}, err
	}
	name := strings.TrimSpace(in.ClientName)
	phone := strings.TrimSpace(in.ClientPhone)
	if name == "" || phone == "" {
		return domain.Appointment{}, domain.NewValidationError("clientName and clientPhone are required")
	}

	var updated domain.Appointment
	err = s.appts.InCalendarTransaction(ctx, nil, func(ctx context.Context, tx store.CalendarTx) error {
		current, err := tx.GetAppointmentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !sameClient(current, name, phone) {
			return domain.ErrNotFound
		}
		if err := domain.Transition(current.Status, domain.StatusCancelledByClient, domain.ActorClient); err != nil {
			return err
		}
		current.Status = domain.StatusCancelledByClient
		updated, err = tx.UpdateAppointment(ctx, current)
		return err
	})
	if err != nil {
		return domain.Appointment{}, translate(err)
	}

	s.publish(ctx, events.AppointmentUpdated, updated, in.Origin)
	return updated, nil
}

// Search finds a client's appointments: exact phone, case-insensitive name,
// newest request first.
func (s *Service) Search(ctx context.Context, name, phone string) ([]domain.Appointment, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" || phone == "" {
		return nil, domain.NewValidationError("name and phone are required")
	}

	byPhone, err := s.appts.FindByClientPhone(ctx, phone)
	if err != nil {
		return nil, unavailable(err)
	}
	out := make([]domain.Appointment, 0, len(byPhone))
	for _, a := range byPhone {
		if sameClient(a, name, phone) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Appointment, error) {
	appts, err := s.appts.ListAppointments(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	return appts, nil
}

func sameClient(a domain.Appointment, name, phone string) bool {
	return a.ClientPhone == phone && strings.EqualFold(strings.TrimSpace(a.ClientName), name)
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", domain.ErrNotFound, raw)
	}
	return id, nil
}
