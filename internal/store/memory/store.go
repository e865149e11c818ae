// Package memory is an in-process store. Calendar transactions are
// serialized by a single mutex and their writes are applied only on success.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DrojasFrontend/barbershop-booking-system/internal/domain"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/store"
)

type Store struct {
	calendar sync.Mutex

	mu       sync.RWMutex
	services map[string]domain.Service
	hours    map[int]domain.WorkingHours
	appts    map[uuid.UUID]domain.Appointment
	staff    map[string]domain.StaffUser
}

func New() *Store {
	return &Store{
		services: make(map[string]domain.Service),
		hours:    make(map[int]domain.WorkingHours),
		appts:    make(map[uuid.UUID]domain.Appointment),
		staff:    make(map[string]domain.StaffUser),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) FindService(ctx context.Context, id string) (domain.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	svc, ok := s.services[id]
	if !ok {
		return domain.Service{}, store.ErrNotFound
	}
	return svc, nil
}

func (s *Store) ListServices(ctx context.Context) ([]domain.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Service, 0, len(s.services))
	for _, svc := range s.services {
		out = append(out, svc)
	}
	slices.SortFunc(out, func(a, b domain.Service) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *Store) LongestServiceDuration(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	longest := 0
	for _, svc := range s.services {
		longest = max(longest, svc.DurationMinutes)
	}
	return longest, nil
}

func (s *Store) UpsertService(ctx context.Context, svc domain.Service) (domain.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc.UpdatedAt = time.Now().UTC()
	s.services[svc.ID] = svc
	return svc, nil
}

func (s *Store) FindActiveSchedule(ctx context.Context, dayOfWeek int) (domain.WorkingHours, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wh, ok := s.hours[dayOfWeek]
	if !ok || !wh.Active {
		return domain.WorkingHours{}, store.ErrNotFound
	}
	return wh, nil
}

func (s *Store) ListWorkingHours(ctx context.Context) ([]domain.WorkingHours, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.WorkingHours, 0, len(s.hours))
	for _, wh := range s.hours {
		out = append(out, wh)
	}
	slices.SortFunc(out, func(a, b domain.WorkingHours) int { return a.DayOfWeek - b.DayOfWeek })
	return out, nil
}

func (s *Store) UpsertWorkingHours(ctx context.Context, wh domain.WorkingHours) (domain.WorkingHours, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wh.UpdatedAt = time.Now().UTC()
	s.hours[wh.DayOfWeek] = wh
	return wh, nil
}

func (s *Store) FindStaffByEmail(ctx context.Context, email string) (domain.StaffUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.staff[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return domain.StaffUser{}, store.ErrNotFound
	}
	return u, nil
}

func (s *Store) CreateStaff(ctx context.Context, u domain.StaffUser) (domain.StaffUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(u.Email))
	if _, ok := s.staff[key]; ok {
		return domain.StaffUser{}, store.ErrConflict
	}
	if u.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.StaffUser{}, err
		}
		u.ID = id
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.staff[key] = u
	return u, nil
}

func (s *Store) FindAppointmentsInRange(ctx context.Context, start, end time.Time, statuses []domain.Status) ([]domain.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return inRange(s.appts, nil, start, end, statuses), nil
}

func (s *Store) getAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appts[id]
	if !ok {
		return domain.Appointment{}, store.ErrNotFound
	}
	return a, nil
}

func (s *Store) ListAppointments(ctx context.Context) ([]domain.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Appointment, 0, len(s.appts))
	for _, a := range s.appts {
		out = append(out, a)
	}
	sortNewestRequestFirst(out)
	return out, nil
}

func (s *Store) FindByClientPhone(ctx context.Context, phone string) ([]domain.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Appointment
	for _, a := range s.appts {
		if a.ClientPhone == phone {
			out = append(out, a)
		}
	}
	sortNewestRequestFirst(out)
	return out, nil
}

func (s *Store) InCalendarTransaction(ctx context.Context, keys []string, fn func(ctx context.Context, tx store.CalendarTx) error) error {
	s.calendar.Lock()
	defer s.calendar.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &calendarTx{s: s, staged: make(map[uuid.UUID]domain.Appointment)}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range tx.staged {
		s.appts[id] = a
	}
	return nil
}

type calendarTx struct {
	s      *Store
	staged map[uuid.UUID]domain.Appointment
}

func (t *calendarTx) FindAppointmentsInRange(ctx context.Context, start, end time.Time, statuses []domain.Status) ([]domain.Appointment, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return inRange(t.s.appts, t.staged, start, end, statuses), nil
}

func (t *calendarTx) GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	if a, ok := t.staged[id]; ok {
		return a, nil
	}
	return t.s.getAppointment(ctx, id)
}

func (t *calendarTx) CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	now := time.Now().UTC()
	if appt.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.Appointment{}, err
		}
		appt.ID = id
	}
	if appt.RequestedAt.IsZero() {
		appt.RequestedAt = now
	}
	appt.UpdatedAt = now
	appt.EndsAt = appt.End()

	if err := t.checkExclusion(appt); err != nil {
		return domain.Appointment{}, err
	}
	t.staged[appt.ID] = appt
	return appt, nil
}

func (t *calendarTx) UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	if _, err := t.GetAppointmentForUpdate(ctx, appt.ID); err != nil {
		return domain.Appointment{}, err
	}
	appt.UpdatedAt = time.Now().UTC()
	appt.EndsAt = appt.End()

	if err := t.checkExclusion(appt); err != nil {
		return domain.Appointment{}, err
	}
	t.staged[appt.ID] = appt
	return appt, nil
}

// checkExclusion mirrors the database exclusion constraint: no two occupying
// appointments may overlap.
func (t *calendarTx) checkExclusion(appt domain.Appointment) error {
	if !appt.Status.OccupiesTime() {
		return nil
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	clash := func(other domain.Appointment) bool {
		return other.ID != appt.ID &&
			other.Status.OccupiesTime() &&
			appt.ScheduledAt.Before(other.End()) &&
			appt.End().After(other.ScheduledAt)
	}
	for id, a := range t.s.appts {
		if staged, ok := t.staged[id]; ok {
			a = staged
		}
		if clash(a) {
			return store.ErrConflict
		}
	}
	for id, a := range t.staged {
		if _, ok := t.s.appts[id]; ok {
			continue
		}
		if clash(a) {
			return store.ErrConflict
		}
	}
	return nil
}

func inRange(committed, staged map[uuid.UUID]domain.Appointment, start, end time.Time, statuses []domain.Status) []domain.Appointment {
	var out []domain.Appointment
	match := func(a domain.Appointment) bool {
		return !a.ScheduledAt.Before(start) && !a.ScheduledAt.After(end) && slices.Contains(statuses, a.Status)
	}
	for id, a := range committed {
		if s, ok := staged[id]; ok {
			a = s
		}
		if match(a) {
			out = append(out, a)
		}
	}
	for id, a := range staged {
		if _, ok := committed[id]; ok {
			continue
		}
		if match(a) {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b domain.Appointment) int { return a.ScheduledAt.Compare(b.ScheduledAt) })
	return out
}

func sortNewestRequestFirst(appts []domain.Appointment) {
	slices.SortFunc(appts, func(a, b domain.Appointment) int { return b.RequestedAt.Compare(a.RequestedAt) })
}

var (
	_ store.CatalogRepository     = (*Store)(nil)
	_ store.AppointmentRepository = (*Store)(nil)
	_ store.StaffRepository       = (*Store)(nil)
)
