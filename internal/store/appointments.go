package store

import (
	"context"
	"time"

	"github.com/DrojasFrontend/barbershop-booking-system/internal/domain"
)

type AppointmentRepository interface {
	// FindAppointmentsInRange returns appointments whose start lies in
	// [start, end] and whose status is one of statuses, ordered by start.
	FindAppointmentsInRange(ctx context.Context, start, end time.Time, statuses []domain.Status) ([]domain.Appointment, error)
	// ListAppointments returns every appointment, newest request first.
	ListAppointments(ctx context.Context) ([]domain.Appointment, error)
	// FindByClientPhone matches the phone exactly, newest request first.
	FindByClientPhone(ctx context.Context, phone string) ([]domain.Appointment, error)

	// InCalendarTransaction runs fn while holding the calendar locks named
	// by keys. Bookings whose lock sets intersect are serialized.
	InCalendarTransaction(ctx context.Context, keys []string, fn func(ctx context.Context, tx CalendarTx) error) error
}
