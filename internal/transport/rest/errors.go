package rest

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DrojasFrontend/barbershop-booking-system/internal/auth"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/domain"
)

var statusByKind = map[string]int{
	domain.KindValidation:         http.StatusBadRequest,
	domain.KindUnknownService:     http.StatusBadRequest,
	domain.KindSlotConflict:       http.StatusConflict,
	domain.KindInvalidTransition:  http.StatusConflict,
	domain.KindNotFound:           http.StatusNotFound,
	domain.KindStorageUnavailable: http.StatusInternalServerError,
}

func errorBody(kind, message string) gin.H {
	return gin.H{"error": gin.H{"kind": kind, "message": message}}
}

// fail renders err as {"error": {"kind", "message"}}. Storage failures never
// leak their cause to the caller.
func (a *api) fail(c *gin.Context, op string, err error) {
	log := a.log.With(
		slog.String("op", op),
		slog.String("request_id", c.GetString(requestIDKey)),
	)

	if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrInvalidToken) {
		log.Info("authentication failed")
		c.JSON(http.StatusUnauthorized, errorBody("unauthorized", err.Error()))
		return
	}

	kind := domain.Kind(err)
	status := statusByKind[kind]
	switch kind {
	case domain.KindStorageUnavailable:
		log.Error("request failed", slog.Any("err", err))
		c.JSON(status, errorBody(kind, "internal error"))
		return
	case domain.KindSlotConflict, domain.KindInvalidTransition, domain.KindNotFound:
		log.Info("request rejected", slog.String("kind", kind), slog.Any("err", err))
	default:
		log.Warn("invalid request", slog.String("kind", kind), slog.Any("err", err))
	}
	c.JSON(status, errorBody(kind, err.Error()))
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorBody(domain.KindValidation, message))
}
