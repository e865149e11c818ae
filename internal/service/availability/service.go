package availability

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DrojasFrontend/barbershop-booking-system/internal/domain"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/scheduling"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/store"
)

const ClosedMessage = "closed that day"

type appointmentFinder interface {
	FindAppointmentsInRange(ctx context.Context, start, end time.Time, statuses []domain.Status) ([]domain.Appointment, error)
}

type catalog interface {
	FindService(ctx context.Context, id string) (domain.Service, error)
	FindActiveSchedule(ctx context.Context, dayOfWeek int) (domain.WorkingHours, error)
}

type Service struct {
	catalog catalog
	appts   appointmentFinder
	loc     *time.Location
	now     func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now. Slots already in the past are hidden when the
// requested date is today.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(catalog catalog, appts appointmentFinder, loc *time.Location, opts ...Option) *Service {
	if loc == nil {
		loc = time.UTC
	}
	s := &Service{catalog: catalog, appts: appts, loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type Result struct {
	Date            string
	ServiceID       string
	DurationMinutes int
	Slots           []string
	WorkingHours    string
	Closed          bool
	Message         string
}

// GetAvailability lists the start times on date at which serviceID could be
// booked. The answer is advisory; booking re-checks under a lock.
func (s *Service) GetAvailability(ctx context.Context, date, serviceID string) (Result, error) {
	date = strings.TrimSpace(date)
	serviceID = strings.TrimSpace(serviceID)
	if date == "" {
		return Result{}, domain.NewValidationError("date is required")
	}
	if serviceID == "" {
		return Result{}, domain.NewValidationError("service is required")
	}

	svc, err := s.catalog.FindService(ctx, serviceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Result{}, fmt.Errorf("%w: %s", domain.ErrUnknownService, serviceID)
		}
		return Result{}, unavailable(err)
	}

	day, err := time.ParseInLocation("2006-01-02", date, s.loc)
	if err != nil {
		return Result{}, domain.NewValidationError("date must be YYYY-MM-DD")
	}
	weekday := int(scheduling.MiddayOf(day).Weekday())

	res := Result{
		Date:            date,
		ServiceID:       svc.ID,
		DurationMinutes: svc.DurationMinutes,
		Slots:           []string{},
	}

	hours, err := s.catalog.FindActiveSchedule(ctx, weekday)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			res.Closed = true
			res.Message = ClosedMessage
			return res, nil
		}
		return Result{}, unavailable(err)
	}
	open, closeAt, err := hours.Bounds()
	if err != nil {
		return Result{}, unavailable(err)
	}
	res.WorkingHours = hours.Label()

	dayStart, dayEnd := scheduling.DayBounds(day)
	existing, err := s.appts.FindAppointmentsInRange(ctx, dayStart, dayEnd, domain.OccupyingStatuses)
	if err != nil {
		return Result{}, unavailable(err)
	}

	candidates := scheduling.Slots(open, closeAt, svc.DurationMinutes, scheduling.StepMinutes)
	free := scheduling.FilterFree(day, candidates, svc.DurationMinutes, scheduling.Busy(existing))

	now := s.now().In(s.loc)
	today := now.Format("2006-01-02") == date
	for _, m := range free {
		if today && scheduling.At(day, m).Before(now) {
			continue
		}
		res.Slots = append(res.Slots, domain.FormatClock(m))
	}
	return res, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
}
