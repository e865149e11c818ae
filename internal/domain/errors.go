package domain

import "errors"

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func NewValidationError(msg string) error {
	return &ValidationError{msg: msg}
}

var (
	ErrUnknownService     = errors.New("unknown service")
	ErrSlotConflict       = errors.New("this time is no longer available")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrNotFound           = errors.New("appointment not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

const (
	KindValidation         = "validation_error"
	KindUnknownService     = "unknown_service"
	KindSlotConflict       = "slot_conflict"
	KindInvalidTransition  = "invalid_transition"
	KindNotFound           = "not_found"
	KindStorageUnavailable = "storage_unavailable"
)

// Kind names the error class of err. Anything unrecognised is reported as a
// storage failure.
func Kind(err error) string {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		return KindValidation
	case errors.Is(err, ErrUnknownService):
		return KindUnknownService
	case errors.Is(err, ErrSlotConflict):
		return KindSlotConflict
	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidTransition
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindStorageUnavailable
	}
}
