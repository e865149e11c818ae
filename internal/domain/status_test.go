package domain

import (
	"errors"
	"testing"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		actor   Actor
		wantErr bool
	}{
		{name: "staff completes confirmed", from: StatusConfirmed, to: StatusCompleted, actor: ActorStaff},
		{name: "staff cancels confirmed", from: StatusConfirmed, to: StatusCancelledByBarber, actor: ActorStaff},
		{name: "staff reschedules confirmed", from: StatusConfirmed, to: StatusRescheduled, actor: ActorStaff},
		{name: "staff completes rescheduled", from: StatusRescheduled, to: StatusCompleted, actor: ActorStaff},
		{name: "staff moves rescheduled again", from: StatusRescheduled, to: StatusRescheduled, actor: ActorStaff},
		{name: "client cancels confirmed", from: StatusConfirmed, to: StatusCancelledByClient, actor: ActorClient},
		{name: "client cancels rescheduled", from: StatusRescheduled, to: StatusCancelledByClient, actor: ActorClient},
		{name: "client cannot complete", from: StatusConfirmed, to: StatusCompleted, actor: ActorClient, wantErr: true},
		{name: "staff cannot cancel as client", from: StatusConfirmed, to: StatusCancelledByClient, actor: ActorStaff, wantErr: true},
		{name: "staff cannot cancel rescheduled as client", from: StatusRescheduled, to: StatusCancelledByClient, actor: ActorStaff, wantErr: true},
		{name: "client cannot cancel as barber", from: StatusConfirmed, to: StatusCancelledByBarber, actor: ActorClient, wantErr: true},
		{name: "confirmed to confirmed", from: StatusConfirmed, to: StatusConfirmed, actor: ActorStaff, wantErr: true},
		{name: "completed is terminal", from: StatusCompleted, to: StatusConfirmed, actor: ActorStaff, wantErr: true},
		{name: "completed cannot be cancelled", from: StatusCompleted, to: StatusCancelledByBarber, actor: ActorStaff, wantErr: true},
		{name: "barber cancellation is terminal", from: StatusCancelledByBarber, to: StatusRescheduled, actor: ActorStaff, wantErr: true},
		{name: "client cancellation is terminal", from: StatusCancelledByClient, to: StatusConfirmed, actor: ActorStaff, wantErr: true},
		{name: "unknown actor", from: StatusConfirmed, to: StatusCompleted, actor: "robot", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Transition(tt.from, tt.to, tt.actor)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("err = %v, want ErrInvalidTransition", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestTransition_NothingLeavesTerminalStates(t *testing.T) {
	all := []Status{StatusConfirmed, StatusCompleted, StatusCancelledByBarber, StatusCancelledByClient, StatusRescheduled}
	for _, from := range all {
		if !from.Terminal() {
			continue
		}
		for _, to := range all {
			for _, actor := range []Actor{ActorStaff, ActorClient} {
				if err := Transition(from, to, actor); !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("%s -> %s by %s: err = %v, want ErrInvalidTransition", from, to, actor, err)
				}
			}
		}
	}
}

func TestStatusOccupiesTime(t *testing.T) {
	occupying := map[Status]bool{
		StatusConfirmed:         true,
		StatusRescheduled:       true,
		StatusCompleted:         false,
		StatusCancelledByBarber: false,
		StatusCancelledByClient: false,
	}
	for s, want := range occupying {
		if got := s.OccupiesTime(); got != want {
			t.Fatalf("%s.OccupiesTime() = %v, want %v", s, got, want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	got, err := ParseStatus("  Cancelled_By_Barber ")
	if err != nil {
		t.Fatalf("ParseStatus error: %v", err)
	}
	if got != StatusCancelledByBarber {
		t.Fatalf("status = %q, want %q", got, StatusCancelledByBarber)
	}

	for _, raw := range []string{"", "pending", "approved", "rejected", "done"} {
		_, err := ParseStatus(raw)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("ParseStatus(%q) err = %v, want *ValidationError", raw, err)
		}
	}
}
