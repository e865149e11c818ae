package store

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/DrojasFrontend/barbershop-booking-system/internal/domain"
)

type CalendarTx interface {
	FindAppointmentsInRange(ctx context.Context, start, end time.Time, statuses []domain.Status) ([]domain.Appointment, error)
	GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
}

// CalendarDayKeys names one lock per calendar date in loc touched by
// [from, to]. Keys are sorted so every caller acquires them in the same order.
func CalendarDayKeys(from, to time.Time, loc *time.Location) []string {
	from = from.In(loc)
	to = to.In(loc)
	if to.Before(from) {
		from, to = to, from
	}

	y, m, d := from.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)

	var keys []string
	for !day.After(to) {
		keys = append(keys, "calendar:"+day.Format("2006-01-02"))
		y, m, d = day.Date()
		day = time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	}
	slices.Sort(keys)
	return slices.Compact(keys)
}
