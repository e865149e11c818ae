package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DrojasFrontend/barbershop-booking-system/internal/domain"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/events"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/scheduling"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/store"
)

// DefaultNeighborhood is the minimum distance around a requested start that
// is re-read before committing a booking.
const DefaultNeighborhood = time.Hour

const publishTimeout = 3 * time.Second

type catalog interface {
	FindService(ctx context.Context, id string) (domain.Service, error)
	LongestServiceDuration(ctx context.Context) (int, error)
	FindActiveSchedule(ctx context.Context, dayOfWeek int) (domain.WorkingHours, error)
}

type appointmentStore interface {
	ListAppointments(ctx context.Context) ([]domain.Appointment, error)
	FindByClientPhone(ctx context.Context, phone string) ([]domain.Appointment, error)
	InCalendarTransaction(ctx context.Context, keys []string, fn func(ctx context.Context, tx store.CalendarTx) error) error
}

type Service struct {
	catalog      catalog
	appts        appointmentStore
	events       events.Publisher
	loc          *time.Location
	neighborhood time.Duration
	now          func() time.Time
	log          *slog.Logger
}

type Option func(*Service)

func WithNeighborhood(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.neighborhood = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService wires the booking write path. publisher may be nil.
func NewService(catalog catalog, appts appointmentStore, publisher events.Publisher, loc *time.Location, opts ...Option) *Service {
	if loc == nil {
		loc = time.UTC
	}
	s := &Service{
		catalog:      catalog,
		appts:        appts,
		events:       publisher,
		loc:          loc,
		neighborhood: DefaultNeighborhood,
		now:          time.Now,
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(slog.String("component", "service.booking"))
	return s
}

type BookInput struct {
	ClientName  string
	ClientPhone string
	ServiceID   string
	ScheduledAt time.Time
	Notes       string
	Origin      string
}

// Book re-checks the requested window against current bookings and creates a
// confirmed appointment in one serialized transaction.
func (s *Service) Book(ctx context.Context, in BookInput) (domain.Appointment, error) {
	name := strings.TrimSpace(in.ClientName)
	phone := strings.TrimSpace(in.ClientPhone)
	serviceID := strings.TrimSpace(in.ServiceID)
	switch {
	case name == "":
		return domain.Appointment{}, domain.NewValidationError("clientName is required")
	case phone == "":
		return domain.Appointment{}, domain.NewValidationError("clientPhone is required")
	case serviceID == "":
		return domain.Appointment{}, domain.NewValidationError("service is required")
	case in.ScheduledAt.IsZero():
		return domain.Appointment{}, domain.NewValidationError("scheduledAt is required")
	}

	svc, err := s.catalog.FindService(ctx, serviceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Appointment{}, fmt.Errorf("%w: %s", domain.ErrUnknownService, serviceID)
		}
		return domain.Appointment{}, unavailable(err)
	}
	if svc.DurationMinutes <= 0 {
		return domain.Appointment{}, unavailable(fmt.Errorf("service %s has no duration", svc.ID))
	}

	start := in.ScheduledAt.In(s.loc)
	candidate := scheduling.WindowOf(start, svc.DurationMinutes)
	if err := s.checkWorkingHours(ctx, candidate); err != nil {
		return domain.Appointment{}, err
	}

	radius, err := s.radius(ctx)
	if err != nil {
		return domain.Appointment{}, err
	}
	keys := store.CalendarDayKeys(start.Add(-radius), start.Add(radius), s.loc)

	var created domain.Appointment
	err = s.appts.InCalendarTransaction(ctx, keys, func(ctx context.Context, tx store.CalendarTx) error {
		if err := ensureFree(ctx, tx, candidate, radius, uuid.Nil); err != nil {
			return err
		}
		appt, err := tx.CreateAppointment(ctx, domain.Appointment{
			ClientName:      name,
			ClientPhone:     phone,
			ServiceID:       svc.ID,
			DurationMinutes: svc.DurationMinutes,
			ScheduledAt:     start.UTC(),
			Status:          domain.StatusConfirmed,
			Notes:           strings.TrimSpace(in.Notes),
			RequestedAt:     s.now().UTC(),
		})
		if err != nil {
			return err
		}
		created = appt
		return nil
	})
	if err != nil {
		return domain.Appointment{}, translate(err)
	}

	s.publish(ctx, events.AppointmentCreated, created, in.Origin)
	return created, nil
}

// ensureFree fails with ErrSlotConflict when an occupying appointment other
// than self overlaps candidate. Any overlapping appointment starts within
// radius of the candidate start.
func ensureFree(ctx context.Context, tx store.CalendarTx, candidate scheduling.Window, radius time.Duration, self uuid.UUID) error {
	nearby, err := tx.FindAppointmentsInRange(ctx, candidate.Start.Add(-radius), candidate.Start.Add(radius), domain.OccupyingStatuses)
	if err != nil {
		return err
	}
	others := nearby[:0]
	for _, a := range nearby {
		if a.ID != self {
			others = append(others, a)
		}
	}
	if scheduling.Conflicts(candidate, scheduling.Busy(others)) {
		return domain.ErrSlotConflict
	}
	return nil
}

// radius is the configured neighborhood, widened to the longest service so a
// long booking starting earlier is never missed.
func (s *Service) radius(ctx context.Context) (time.Duration, error) {
	longest, err := s.catalog.LongestServiceDuration(ctx)
	if err != nil {
		return 0, unavailable(err)
	}
	return max(s.neighborhood, time.Duration(longest)*time.Minute), nil
}

func (s *Service) checkWorkingHours(ctx context.Context, w scheduling.Window) error {
	weekday := int(scheduling.MiddayOf(w.Start).Weekday())
	hours, err := s.catalog.FindActiveSchedule(ctx, weekday)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NewValidationError("the shop is closed that day")
		}
		return unavailable(err)
	}
	open, closeAt, err := hours.Bounds()
	if err != nil {
		return unavailable(err)
	}
	if w.Start.Before(scheduling.At(w.Start, open)) || w.End.After(scheduling.At(w.Start, closeAt)) {
		return domain.NewValidationError(fmt.Sprintf("requested time is outside working hours (%s)", hours.Label()))
	}
	return nil
}

func (s *Service) publish(ctx context.Context, t events.Type, appt domain.Appointment, origin string) {
	if s.events == nil {
		return
	}
	e, err := events.New(t, appt.ID.String(), origin, appt)
	if err != nil {
		s.log.Warn("event encode failed", slog.Any("err", err), slog.String("appointment_id", appt.ID.String()))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.Warn(
			"event publish failed",
			slog.Any("err", err),
			slog.String("event_type", string(t)),
			slog.String("appointment_id", appt.ID.String()),
		)
	}
}

// translate maps storage errors into the domain taxonomy. Domain errors pass
// through unchanged.
func translate(err error) error {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr),
		errors.Is(err, domain.ErrSlotConflict),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrUnknownService),
		errors.Is(err, domain.ErrStorageUnavailable):
		return err
	case errors.Is(err, store.ErrConflict):
		return domain.ErrSlotConflict
	case errors.Is(err, store.ErrNotFound):
		return domain.ErrNotFound
	default:
		return unavailable(err)
	}
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
}
