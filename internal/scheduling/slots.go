// Package scheduling holds the pure slot arithmetic behind availability and
// booking: the candidate grid for a working day and the half-open overlap
// test against existing bookings.
package scheduling

import (
	"iter"
	"time"
)

// StepMinutes is the grid spacing between candidate slots. It does not depend
// on the service duration, so candidates may overlap each other.
const StepMinutes = 30

// SlotSeq yields minute-of-day starts t with t >= start and t+duration <= end,
// beginning at start and advancing by step. The sequence can be ranged over
// any number of times.
func SlotSeq(start, end, duration, step int) iter.Seq[int] {
	return func(yield func(int) bool) {
		if duration <= 0 || step <= 0 {
			return
		}
		for t := start; t+duration <= end; t += step {
			if !yield(t) {
				return
			}
		}
	}
}

func Slots(start, end, duration, step int) []int {
	var out []int
	for t := range SlotSeq(start, end, duration, step) {
		out = append(out, t)
	}
	return out
}

// At places a minute-of-day on the calendar date of day, in day's location.
func At(day time.Time, minute int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, minute, 0, 0, day.Location())
}

// DayBounds returns the first and last instant of day's calendar date.
func DayBounds(day time.Time) (time.Time, time.Time) {
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	end := time.Date(y, m, d+1, 0, 0, 0, 0, day.Location()).Add(-time.Nanosecond)
	return start, end
}

// MiddayOf anchors a calendar date at 12:00 so its weekday is stable across
// offset and daylight-saving changes.
func MiddayOf(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 12, 0, 0, 0, day.Location())
}
