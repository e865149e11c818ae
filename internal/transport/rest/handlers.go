package rest

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/DrojasFrontend/barbershop-booking-system/internal/domain"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/service/booking"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/service/catalog"
)

type availabilityResponse struct {
	Date            string   `json:"date"`
	Service         string   `json:"service"`
	AvailableSlots  []string `json:"availableSlots"`
	ServiceDuration int      `json:"serviceDuration"`
	WorkingHours    string   `json:"workingHours,omitempty"`
	Message         string   `json:"message,omitempty"`
}

func (a *api) getAvailability(c *gin.Context) {
	res, err := a.Availability.GetAvailability(c.Request.Context(), c.Query("date"), c.Query("service"))
	if err != nil {
		a.fail(c, "availability", err)
		return
	}
	c.JSON(http.StatusOK, availabilityResponse{
		Date:            res.Date,
		Service:         res.ServiceID,
		AvailableSlots:  res.Slots,
		ServiceDuration: res.DurationMinutes,
		WorkingHours:    res.WorkingHours,
		Message:         res.Message,
	})
}

type bookRequest struct {
	ClientName  string `json:"clientName"`
	ClientPhone string `json:"clientPhone"`
	Service     string `json:"service"`
	ScheduledAt string `json:"scheduledAt"`
	Notes       string `json:"notes"`
}

func (a *api) bookAppointment(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	var at time.Time
	if strings.TrimSpace(req.ScheduledAt) != "" {
		parsed, err := a.parseInstant(req.ScheduledAt)
		if err != nil {
			badRequest(c, "scheduledAt must be an ISO-8601 timestamp")
			return
		}
		at = parsed
	}

	appt, err := a.Booking.Book(c.Request.Context(), booking.BookInput{
		ClientName:  req.ClientName,
		ClientPhone: req.ClientPhone,
		ServiceID:   req.Service,
		ScheduledAt: at,
		Notes:       req.Notes,
		Origin:      c.GetHeader(ClientIDHeader),
	})
	if err != nil {
		a.fail(c, "book", err)
		return
	}
	c.JSON(http.StatusCreated, appt)
}

func (a *api) listAppointments(c *gin.Context) {
	appts, err := a.Booking.List(c.Request.Context())
	if err != nil {
		a.fail(c, "list", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointments": appts})
}

func (a *api) searchAppointments(c *gin.Context) {
	appts, err := a.Booking.Search(c.Request.Context(), c.Query("name"), c.Query("phone"))
	if err != nil {
		a.fail(c, "search", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointments": appts})
}

type statusRequest struct {
	Status             string  `json:"status"`
	CancellationReason string  `json:"cancellationReason"`
	ScheduledAt        *string `json:"scheduledAt"`
}

func (a *api) updateAppointmentStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	in := booking.UpdateStatusInput{
		ID:                 c.Param("id"),
		Status:             req.Status,
		CancellationReason: req.CancellationReason,
		Origin:             c.GetHeader(ClientIDHeader),
	}
	if req.ScheduledAt != nil {
		at, err := a.parseInstant(*req.ScheduledAt)
		if err != nil {
			badRequest(c, "scheduledAt must be an ISO-8601 timestamp")
			return
		}
		in.ScheduledAt = &at
	}

	appt, err := a.Booking.UpdateStatus(c.Request.Context(), in)
	if err != nil {
		a.fail(c, "update_status", err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

type cancelRequest struct {
	ClientName  string `json:"clientName"`
	ClientPhone string `json:"clientPhone"`
}

func (a *api) cancelAppointment(c *gin.Context) {
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	appt, err := a.Booking.CancelByClient(c.Request.Context(), booking.ClientCancelInput{
		ID:          c.Param("id"),
		ClientName:  req.ClientName,
		ClientPhone: req.ClientPhone,
		Origin:      c.GetHeader(ClientIDHeader),
	})
	if err != nil {
		a.fail(c, "client_cancel", err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

func (a *api) listServices(c *gin.Context) {
	services, err := a.Catalog.ListServices(c.Request.Context())
	if err != nil {
		a.fail(c, "list_services", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": services})
}

type serviceRequest struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"durationMinutes"`
}

func (a *api) upsertService(c *gin.Context) {
	var req serviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	svc, err := a.Catalog.UpsertService(c.Request.Context(), catalog.ServiceInput{
		ID:              c.Param("id"),
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		a.fail(c, "upsert_service", err)
		return
	}
	c.JSON(http.StatusOK, svc)
}

func (a *api) listSchedule(c *gin.Context) {
	hours, err := a.Catalog.ListWorkingHours(c.Request.Context())
	if err != nil {
		a.fail(c, "list_schedule", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedule": hours})
}

type scheduleRequest struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Active    *bool  `json:"active"`
}

func (a *api) upsertSchedule(c *gin.Context) {
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil {
		badRequest(c, "day must be a number between 0 (Sunday) and 6")
		return
	}
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	wh, err := a.Catalog.UpsertWorkingHours(c.Request.Context(), domain.WorkingHours{
		DayOfWeek: day,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Active:    active,
	})
	if err != nil {
		a.fail(c, "upsert_schedule", err)
		return
	}
	c.JSON(http.StatusOK, wh)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *api) login(c *gin.Context) {
	if a.Auth == nil {
		c.JSON(http.StatusNotFound, errorBody(domain.KindNotFound, "login is disabled"))
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	token, id, err := a.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		a.fail(c, "login", err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, token, int(a.SessionTTL.Seconds()), "/", "", c.Request.TLS != nil, true)
	c.JSON(http.StatusOK, gin.H{"token": token, "user": id})
}

func (a *api) logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, "", -1, "/", "", c.Request.TLS != nil, true)
	c.Status(http.StatusNoContent)
}

func (a *api) me(c *gin.Context) {
	id, _ := identityFrom(c)
	c.JSON(http.StatusOK, gin.H{"user": id})
}

var localLayouts = []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"}

// parseInstant accepts RFC 3339, or a wall-clock time in the shop location.
func (a *api) parseInstant(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	var lastErr error
	for _, layout := range localLayouts {
		t, err := time.ParseInLocation(layout, raw, a.Location)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
