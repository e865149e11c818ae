package domain

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type Service struct {
	bun.BaseModel `bun:"table:services"`

	ID              string    `bun:"id,pk" json:"id"`
	Name            string    `bun:"name,notnull" json:"name"`
	DurationMinutes int       `bun:"duration_minutes,notnull" json:"durationMinutes"`
	UpdatedAt       time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

func (s *Service) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery, *bun.UpdateQuery:
		s.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// WorkingHours is the open interval during which bookings are accepted on one
// day of the week. DayOfWeek follows time.Weekday (0 is Sunday).
type WorkingHours struct {
	bun.BaseModel `bun:"table:working_hours"`

	DayOfWeek int       `bun:"day_of_week,pk" json:"dayOfWeek"`
	StartTime string    `bun:"start_time,notnull" json:"startTime"`
	EndTime   string    `bun:"end_time,notnull" json:"endTime"`
	Active    bool      `bun:"active,notnull" json:"active"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

func (w *WorkingHours) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery, *bun.UpdateQuery:
		w.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// Bounds returns the start and end of the working interval as minutes of day.
func (w WorkingHours) Bounds() (start, end int, err error) {
	start, err = ParseClock(w.StartTime)
	if err != nil {
		return 0, 0, err
	}
	end, err = ParseClock(w.EndTime)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func (w WorkingHours) Label() string {
	return w.StartTime + " - " + w.EndTime
}

func (w WorkingHours) Validate() error {
	if w.DayOfWeek < 0 || w.DayOfWeek > 6 {
		return NewValidationError("day_of_week must be between 0 and 6")
	}
	start, end, err := w.Bounds()
	if err != nil {
		return err
	}
	if end <= start {
		return NewValidationError("end_time must be after start_time")
	}
	return nil
}

// ParseClock converts "HH:MM" into minutes since midnight.
func ParseClock(raw string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok || len(h) == 0 || len(h) > 2 || len(m) != 2 {
		return 0, NewValidationError(fmt.Sprintf("invalid time %q, want HH:MM", raw))
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 24 {
		return 0, NewValidationError(fmt.Sprintf("invalid hour in %q", raw))
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, NewValidationError(fmt.Sprintf("invalid minute in %q", raw))
	}
	total := hour*60 + minute
	if total > 24*60 {
		return 0, NewValidationError(fmt.Sprintf("invalid time %q", raw))
	}
	return total, nil
}

func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
