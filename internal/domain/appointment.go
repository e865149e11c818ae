package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LegacyDurationMinutes is assumed for stored appointments that predate the
// duration column.
const LegacyDurationMinutes = 30

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID                 uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	ClientName         string    `bun:"client_name,notnull" json:"clientName"`
	ClientPhone        string    `bun:"client_phone,notnull" json:"clientPhone"`
	ServiceID          string    `bun:"service_id,notnull" json:"service"`
	DurationMinutes    int       `bun:"duration_minutes,nullzero" json:"durationMinutes,omitempty"`
	ScheduledAt        time.Time `bun:"scheduled_at,notnull" json:"scheduledAt"`
	EndsAt             time.Time `bun:"ends_at,notnull" json:"endsAt"`
	Status             Status    `bun:"status,notnull" json:"status"`
	CancellationReason string    `bun:"cancellation_reason,nullzero" json:"cancellationReason,omitempty"`
	Notes              string    `bun:"notes,nullzero" json:"notes,omitempty"`
	RequestedAt        time.Time `bun:"requested_at,notnull" json:"requestedAt"`
	UpdatedAt          time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

// EffectiveDuration is the stored duration, or LegacyDurationMinutes when the
// record has none.
func (a Appointment) EffectiveDuration() int {
	if a.DurationMinutes <= 0 {
		return LegacyDurationMinutes
	}
	return a.DurationMinutes
}

func (a Appointment) End() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.EffectiveDuration()) * time.Minute)
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.RequestedAt.IsZero() {
			a.RequestedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
		a.EndsAt = a.End()
	case *bun.UpdateQuery:
		a.UpdatedAt = now
		a.EndsAt = a.End()
	}
	return nil
}
