package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DrojasFrontend/barbershop-booking-system/internal/domain"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/store"
)

func TestCalendarTransaction_DiscardsWritesOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InCalendarTransaction(ctx, nil, func(ctx context.Context, tx store.CalendarTx) error {
		if _, err := tx.CreateAppointment(ctx, domain.Appointment{
			ClientName:  "Ana",
			ClientPhone: "300",
			ServiceID:   "corte",
			ScheduledAt: time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC),
			Status:      domain.StatusConfirmed,
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	all, _ := s.ListAppointments(ctx)
	if len(all) != 0 {
		t.Fatalf("len = %d, want 0", len(all))
	}
}

func TestCalendarTransaction_ExclusionMatchesDatabaseConstraint(t *testing.T) {
	s := New()
	ctx := context.Background()
	at := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	err := s.InCalendarTransaction(ctx, nil, func(ctx context.Context, tx store.CalendarTx) error {
		first, err := tx.CreateAppointment(ctx, domain.Appointment{ScheduledAt: at, DurationMinutes: 30, Status: domain.StatusConfirmed})
		if err != nil {
			return err
		}
		if !first.EndsAt.Equal(at.Add(30 * time.Minute)) {
			t.Errorf("EndsAt = %v", first.EndsAt)
		}

		if _, err := tx.CreateAppointment(ctx, domain.Appointment{ScheduledAt: at.Add(15 * time.Minute), DurationMinutes: 30, Status: domain.StatusConfirmed}); !errors.Is(err, store.ErrConflict) {
			t.Errorf("overlap err = %v, want ErrConflict", err)
		}
		if _, err := tx.CreateAppointment(ctx, domain.Appointment{ScheduledAt: at.Add(30 * time.Minute), DurationMinutes: 30, Status: domain.StatusConfirmed}); err != nil {
			t.Errorf("back-to-back err = %v", err)
		}

		first.Status = domain.StatusCancelledByBarber
		if _, err := tx.UpdateAppointment(ctx, first); err != nil {
			return err
		}
		_, err = tx.CreateAppointment(ctx, domain.Appointment{ScheduledAt: at.Add(10 * time.Minute), DurationMinutes: 20, Status: domain.StatusConfirmed})
		return err
	})
	if err != nil {
		t.Fatalf("tx error: %v", err)
	}

	occupying, _ := s.FindAppointmentsInRange(ctx, at, at.Add(time.Hour), domain.OccupyingStatuses)
	if len(occupying) != 2 {
		t.Fatalf("occupying = %d, want 2", len(occupying))
	}
}

func TestCatalog(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.FindService(ctx, "corte"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	_, _ = s.UpsertService(ctx, domain.Service{ID: "corte", DurationMinutes: 30})
	_, _ = s.UpsertService(ctx, domain.Service{ID: "corte-barba", DurationMinutes: 45})

	longest, err := s.LongestServiceDuration(ctx)
	if err != nil || longest != 45 {
		t.Fatalf("longest = %d, %v", longest, err)
	}

	_, _ = s.UpsertWorkingHours(ctx, domain.WorkingHours{DayOfWeek: 0, StartTime: "10:00", EndTime: "18:00", Active: false})
	if _, err := s.FindActiveSchedule(ctx, 0); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("inactive day err = %v, want ErrNotFound", err)
	}
}
