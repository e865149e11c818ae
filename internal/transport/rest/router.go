// Package rest is the JSON API used by the booking page and the barber
// dashboard.
package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/DrojasFrontend/barbershop-booking-system/internal/auth"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/domain"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/service/availability"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/service/booking"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/service/catalog"
)

const (
	// ClientIDHeader carries the realtime session id of the caller so its own
	// writes are not echoed back to it.
	ClientIDHeader = "X-Client-Id"
	sessionCookie  = "auth-session"
)

type availabilityService interface {
	GetAvailability(ctx context.Context, date, serviceID string) (availability.Result, error)
}

type bookingService interface {
	Book(ctx context.Context, in booking.BookInput) (domain.Appointment, error)
	UpdateStatus(ctx context.Context, in booking.UpdateStatusInput) (domain.Appointment, error)
	CancelByClient(ctx context.Context, in booking.ClientCancelInput) (domain.Appointment, error)
	Search(ctx context.Context, name, phone string) ([]domain.Appointment, error)
	List(ctx context.Context) ([]domain.Appointment, error)
}

type catalogService interface {
	ListServices(ctx context.Context) ([]domain.Service, error)
	UpsertService(ctx context.Context, in catalog.ServiceInput) (domain.Service, error)
	ListWorkingHours(ctx context.Context) ([]domain.WorkingHours, error)
	UpsertWorkingHours(ctx context.Context, wh domain.WorkingHours) (domain.WorkingHours, error)
}

type authenticator interface {
	Login(ctx context.Context, email, password string) (string, auth.Identity, error)
	Parse(raw string) (auth.Identity, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Availability availabilityService
	Booking      bookingService
	Catalog      catalogService
	Auth         authenticator
	// Ready is checked by /readyz. Nil means always ready.
	Ready pinger
	// Realtime serves the viewer stream under /realtime. Optional.
	Realtime http.Handler

	// Location interprets scheduledAt values sent without an offset.
	Location       *time.Location
	SessionTTL     time.Duration
	AllowedOrigins []string
	RatePerMinute  int
	RateBurst      int
	Log            *slog.Logger
}

type api struct {
	Deps
	log *slog.Logger
}

func NewRouter(deps Deps) *gin.Engine {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = auth.DefaultTokenTTL
	}
	a := &api{Deps: deps, log: deps.Log.With(slog.String("component", "http"))}

	r := gin.New()
	r.Use(
		requestID(),
		accessLog(a.log),
		recovery(a.log),
		cors.New(corsConfig(deps.AllowedOrigins)),
	)

	r.GET("/healthz", a.healthz)
	r.GET("/readyz", a.readyz)
	if deps.Realtime != nil {
		r.Any("/realtime/*any", gin.WrapH(deps.Realtime))
	}

	public := r.Group("/api")
	public.Use(newRateLimiter(deps.RatePerMinute, deps.RateBurst).middleware(a.log), a.identify())
	{
		public.GET("/availability", a.getAvailability)
		public.POST("/appointments", a.bookAppointment)
		public.GET("/appointments/search", a.searchAppointments)
		public.POST("/appointments/:id/cancel", a.cancelAppointment)
		public.GET("/services", a.listServices)
		public.GET("/schedule", a.listSchedule)
		public.POST("/login", a.login)
		public.POST("/logout", a.logout)
	}

	staff := public.Group("")
	staff.Use(requireStaff())
	{
		staff.GET("/me", a.me)
		staff.GET("/appointments", a.listAppointments)
		staff.PATCH("/appointments/:id", a.updateAppointmentStatus)
		staff.PUT("/services/:id", a.upsertService)
		staff.PUT("/schedule/:day", a.upsertSchedule)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", ClientIDHeader, requestIDHeader},
		ExposeHeaders:    []string{"Content-Length", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func (a *api) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *api) readyz(c *gin.Context) {
	if a.Ready != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := a.Ready.Ping(ctx); err != nil {
			a.log.Warn("readiness check failed", slog.Any("err", err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
