package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/DrojasFrontend/barbershop-booking-system/internal/auth"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/domain"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/service/availability"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/service/booking"
)

type availabilityService interface {
	GetAvailability(ctx context.Context, date, serviceID string) (availability.Result, error)
}

type bookingService interface {
	Book(ctx context.Context, in booking.BookInput) (domain.Appointment, error)
	UpdateStatus(ctx context.Context, in booking.UpdateStatusInput) (domain.Appointment, error)
	Search(ctx context.Context, name, phone string) ([]domain.Appointment, error)
}

type tokenParser interface {
	Parse(raw string) (auth.Identity, error)
}

type BookingServer struct {
	availability availabilityService
	booking      bookingService
	auth         tokenParser
	log          *slog.Logger
}

// NewBookingServer builds the gRPC booking API. tokens may be nil, which
// disables the staff-only RPCs.
func NewBookingServer(avail availabilityService, bookings bookingService, tokens tokenParser, log *slog.Logger) *BookingServer {
	if log == nil {
		log = slog.Default()
	}
	return &BookingServer{
		availability: avail,
		booking:      bookings,
		auth:         tokens,
		log:          log.With(slog.String("component", "grpc.booking")),
	}
}

func (s *BookingServer) GetAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "GetAvailability"))
	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	res, err := s.availability.GetAvailability(ctx, field(req, "date"), field(req, "service"))
	if err != nil {
		return nil, toStatus(log, "availability query", err)
	}

	slots := make([]any, 0, len(res.Slots))
	for _, slot := range res.Slots {
		slots = append(slots, slot)
	}
	out := map[string]any{
		"date":            res.Date,
		"service":         res.ServiceID,
		"availableSlots":  slots,
		"serviceDuration": res.DurationMinutes,
		"workingHours":    res.WorkingHours,
	}
	if res.Message != "" {
		out["message"] = res.Message
	}

	log.Debug("availability listed", slog.String("date", res.Date), slog.String("service", res.ServiceID), slog.Int("count", len(slots)))
	return structpb.NewStruct(out)
}

func (s *BookingServer) BookAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "BookAppointment"))
	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	var at time.Time
	if raw := field(req, "scheduledAt"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			log.Warn("invalid request", slog.String("reason", "invalid_scheduled_at"))
			return nil, status.Error(codes.InvalidArgument, "scheduledAt must be an RFC 3339 timestamp")
		}
		at = parsed
	}

	appt, err := s.booking.Book(ctx, booking.BookInput{
		ClientName:  field(req, "clientName"),
		ClientPhone: field(req, "clientPhone"),
		ServiceID:   field(req, "service"),
		ScheduledAt: at,
		Notes:       field(req, "notes"),
		Origin:      clientID(ctx),
	})
	if err != nil {
		return nil, toStatus(log, "appointment book", err)
	}

	log.Info(
		"appointment booked",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("service", appt.ServiceID),
		slog.Time("scheduled_at", appt.ScheduledAt),
	)
	return appointmentStruct(appt)
}

func (s *BookingServer) UpdateAppointmentStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "UpdateAppointmentStatus"))
	if err := s.requireStaff(ctx); err != nil {
		log.Info("staff authentication failed", slog.Any("err", err))
		return nil, err
	}
	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	in := booking.UpdateStatusInput{
		ID:                 field(req, "id"),
		Status:             field(req, "status"),
		CancellationReason: field(req, "cancellationReason"),
		Origin:             clientID(ctx),
	}
	if raw := field(req, "scheduledAt"); raw != "" {
		at, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			log.Warn("invalid request", slog.String("reason", "invalid_scheduled_at"))
			return nil, status.Error(codes.InvalidArgument, "scheduledAt must be an RFC 3339 timestamp")
		}
		in.ScheduledAt = &at
	}

	appt, err := s.booking.UpdateStatus(ctx, in)
	if err != nil {
		return nil, toStatus(log, "appointment status update", err)
	}

	log.Info("appointment status updated", slog.String("appointment_id", appt.ID.String()), slog.String("status", string(appt.Status)))
	return appointmentStruct(appt)
}

func (s *BookingServer) SearchAppointments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "SearchAppointments"))
	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	appts, err := s.booking.Search(ctx, field(req, "name"), field(req, "phone"))
	if err != nil {
		return nil, toStatus(log, "appointment search", err)
	}

	list := make([]any, 0, len(appts))
	for _, a := range appts {
		m, err := appointmentMap(a)
		if err != nil {
			log.Error("appointment encode failed", slog.Any("err", err))
			return nil, status.Error(codes.Internal, "internal error")
		}
		list = append(list, m)
	}

	log.Debug("appointments searched", slog.Int("count", len(list)))
	return structpb.NewStruct(map[string]any{"appointments": list})
}

func (s *BookingServer) requireStaff(ctx context.Context) error {
	if s.auth == nil {
		return status.Error(codes.Unauthenticated, "staff login is disabled")
	}
	raw := strings.TrimSpace(strings.TrimPrefix(firstMetadata(ctx, "authorization"), "Bearer "))
	if raw == "" {
		return status.Error(codes.Unauthenticated, "authorization metadata is required")
	}
	id, err := s.auth.Parse(raw)
	if err != nil {
		return status.Error(codes.Unauthenticated, err.Error())
	}
	if !id.IsStaff() {
		return status.Error(codes.PermissionDenied, "staff only")
	}
	return nil
}

// toStatus maps the domain error taxonomy onto gRPC codes and logs at the
// level each class deserves.
func toStatus(log *slog.Logger, op string, err error) error {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		log.Warn("invalid request", slog.Any("err", err))
		return status.Error(codes.InvalidArgument, vErr.Error())
	case errors.Is(err, domain.ErrUnknownService):
		log.Warn("unknown service", slog.Any("err", err))
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrSlotConflict):
		log.Info(op+" conflict", slog.Any("err", err))
		return status.Error(codes.FailedPrecondition, domain.ErrSlotConflict.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		log.Info(op+" rejected", slog.Any("err", err))
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		log.Info("appointment not found")
		return status.Error(codes.NotFound, "appointment not found")
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn(op+" timed out", slog.Any("err", err))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	default:
		log.Error(op+" failed", slog.Any("err", err))
		return status.Error(codes.Internal, "internal error")
	}
}

func field(req *structpb.Struct, key string) string {
	v, ok := req.GetFields()[key]
	if !ok {
		return ""
	}
	return strings.TrimSpace(v.GetStringValue())
}

func firstMetadata(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(key)
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func clientID(ctx context.Context) string {
	return firstMetadata(ctx, "x-client-id")
}

func appointmentStruct(a domain.Appointment) (*structpb.Struct, error) {
	m, err := appointmentMap(a)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return structpb.NewStruct(m)
}

// appointmentMap reuses the JSON shape of the HTTP API so both transports
// return identical field names.
func appointmentMap(a domain.Appointment) (map[string]any, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
