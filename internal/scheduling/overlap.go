package scheduling

import (
	"time"

	"github.com/DrojasFrontend/barbershop-booking-system/internal/domain"
)

// Window is the half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

func WindowOf(start time.Time, minutes int) Window {
	return Window{Start: start, End: start.Add(time.Duration(minutes) * time.Minute)}
}

// Overlaps is false for windows that only touch at an endpoint.
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && w.End.After(o.Start)
}

// Busy converts occupying appointments into windows. Appointments that no
// longer hold their time are skipped.
func Busy(appts []domain.Appointment) []Window {
	out := make([]Window, 0, len(appts))
	for _, a := range appts {
		if !a.Status.OccupiesTime() {
			continue
		}
		out = append(out, WindowOf(a.ScheduledAt, a.EffectiveDuration()))
	}
	return out
}

func Conflicts(candidate Window, busy []Window) bool {
	for _, b := range busy {
		if candidate.Overlaps(b) {
			return true
		}
	}
	return false
}

// FilterFree keeps the slots on day whose [slot, slot+duration) window is clear
// of every busy window. Order is preserved.
func FilterFree(day time.Time, slots []int, duration int, busy []Window) []int {
	out := make([]int, 0, len(slots))
	for _, s := range slots {
		if Conflicts(WindowOf(At(day, s), duration), busy) {
			continue
		}
		out = append(out, s)
	}
	return out
}
