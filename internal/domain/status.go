package domain

import (
	"fmt"
	"slices"
	"strings"
)

type Status string

const (
	StatusConfirmed         Status = "confirmed"
	StatusCompleted         Status = "completed"
	StatusCancelledByBarber Status = "cancelled_by_barber"
	StatusCancelledByClient Status = "cancelled_by_client"
	StatusRescheduled       Status = "rescheduled"
)

// OccupyingStatuses are the statuses whose appointments block their time window.
var OccupyingStatuses = []Status{StatusConfirmed, StatusRescheduled}

func (s Status) OccupiesTime() bool {
	return slices.Contains(OccupyingStatuses, s)
}

func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelledByBarber, StatusCancelledByClient:
		return true
	default:
		return false
	}
}

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusConfirmed, StatusCompleted, StatusCancelledByBarber, StatusCancelledByClient, StatusRescheduled:
		return s, nil
	case "":
		return "", NewValidationError("status is required")
	default:
		return "", NewValidationError(fmt.Sprintf("unknown status %q", raw))
	}
}

type Actor string

const (
	ActorStaff  Actor = "staff"
	ActorClient Actor = "client"
)

var staffTransitions = map[Status][]Status{
	StatusConfirmed:   {StatusCompleted, StatusCancelledByBarber, StatusRescheduled},
	StatusRescheduled: {StatusCompleted, StatusCancelledByBarber, StatusRescheduled},
}

var clientTransitions = map[Status][]Status{
	StatusConfirmed:   {StatusCancelledByClient},
	StatusRescheduled: {StatusCancelledByClient},
}

// Transition reports whether actor may move an appointment from one status to
// another. Completed and cancelled appointments never move again.
func Transition(from, to Status, actor Actor) error {
	if from.Terminal() {
		return fmt.Errorf("%w: %s is final", ErrInvalidTransition, from)
	}
	var table map[Status][]Status
	switch actor {
	case ActorStaff:
		table = staffTransitions
	case ActorClient:
		table = clientTransitions
	default:
		return fmt.Errorf("%w: unknown actor %q", ErrInvalidTransition, actor)
	}

	if slices.Contains(table[from], to) {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
