package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/DrojasFrontend/barbershop-booking-system/internal/auth"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/domain"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/service/availability"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/service/booking"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/service/catalog"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/store/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var shopLoc = time.FixedZone("COT", -5*60*60)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type testServer struct {
	router    *gin.Engine
	store     *memory.Store
	staffAuth *auth.Authenticator
}

func newTestServer(t *testing.T, mutate ...func(*Deps)) *testServer {
	t.Helper()
	ctx := context.Background()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	s := memory.New()
	_, _ = s.UpsertService(ctx, domain.Service{ID: "corte", Name: "Corte", DurationMinutes: 30})
	for day := int(time.Monday); day <= int(time.Saturday); day++ {
		_, _ = s.UpsertWorkingHours(ctx, domain.WorkingHours{DayOfWeek: day, StartTime: "09:00", EndTime: "19:00", Active: true})
	}
	hash, err := auth.HashPassword("tijeras123")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if _, err := s.CreateStaff(ctx, domain.StaffUser{Email: "barbero@example.com", Name: "Carlos", Role: domain.RoleBarber, PasswordHash: hash}); err != nil {
		t.Fatalf("CreateStaff error: %v", err)
	}

	authn, err := auth.NewAuthenticator(s, "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewAuthenticator error: %v", err)
	}

	deps := Deps{
		Availability: availability.NewService(s, s, shopLoc),
		Booking:      booking.NewService(s, s, nil, shopLoc, booking.WithLogger(quiet)),
		Catalog:      catalog.NewService(s),
		Auth:         authn,
		Ready:        s,
		Location:     shopLoc,
		Log:          quiet,
	}
	for _, m := range mutate {
		m(&deps)
	}
	return &testServer{router: NewRouter(deps), store: s, staffAuth: authn}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) staffHeader(t *testing.T) http.Header {
	t.Helper()
	token, err := ts.staffAuth.Issue(auth.Identity{Subject: "staff-1", Role: domain.RoleBarber})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

type errorEnvelope struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func bookBody(at string) map[string]string {
	return map[string]string{
		"clientName":  "Ana Gomez",
		"clientPhone": "3001234567",
		"service":     "corte",
		"scheduledAt": at,
	}
}

func TestAvailabilityEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/availability?date=2025-06-10&service=corte", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	got := decode[availabilityResponse](t, rec)
	if got.ServiceDuration != 30 || got.WorkingHours != "09:00 - 19:00" || len(got.AvailableSlots) != 20 {
		t.Fatalf("response = %+v", got)
	}

	closed := decode[availabilityResponse](t, ts.do(t, http.MethodGet, "/api/availability?date=2025-06-08&service=corte", nil, nil))
	if closed.Message != availability.ClosedMessage || closed.AvailableSlots == nil || len(closed.AvailableSlots) != 0 {
		t.Fatalf("closed response = %+v", closed)
	}

	for path, kind := range map[string]string{
		"/api/availability?service=corte":                 domain.KindValidation,
		"/api/availability?date=2025-06-10&service=tinte": domain.KindUnknownService,
	} {
		rec := ts.do(t, http.MethodGet, path, nil, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
		if e := decode[errorEnvelope](t, rec); e.Error.Kind != kind {
			t.Fatalf("%s kind = %q, want %q", path, e.Error.Kind, kind)
		}
	}
}

func TestBookEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/appointments", bookBody("2025-06-10T09:00:00-05:00"), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	appt := decode[domain.Appointment](t, rec)
	if appt.Status != domain.StatusConfirmed || appt.DurationMinutes != 30 {
		t.Fatalf("appointment = %+v", appt)
	}

	// Same instant written as shop-local wall clock.
	rec = ts.do(t, http.MethodPost, "/api/appointments", bookBody("2025-06-10T09:00"), nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	e := decode[errorEnvelope](t, rec)
	if e.Error.Kind != domain.KindSlotConflict || e.Error.Message != "this time is no longer available" {
		t.Fatalf("error = %+v", e)
	}

	rec = ts.do(t, http.MethodPost, "/api/appointments", bookBody("tomorrow"), nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad timestamp status = %d", rec.Code)
	}
	rec = ts.do(t, http.MethodPost, "/api/appointments", map[string]string{"service": "corte"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing fields status = %d", rec.Code)
	}
}

func TestStaffEndpointsRequireToken(t *testing.T) {
	ts := newTestServer(t)
	appt := decode[domain.Appointment](t, ts.do(t, http.MethodPost, "/api/appointments", bookBody("2025-06-10T10:00:00-05:00"), nil))
	path := "/api/appointments/" + appt.ID.String()

	if rec := ts.do(t, http.MethodPatch, path, map[string]string{"status": "completed"}, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/api/appointments", nil, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous list = %d", rec.Code)
	}

	client, _ := ts.staffAuth.Issue(auth.Identity{Subject: "c1", Role: "client"})
	if rec := ts.do(t, http.MethodGet, "/api/appointments", nil, http.Header{"Authorization": []string{"Bearer " + client}}); rec.Code != http.StatusForbidden {
		t.Fatalf("non-staff list = %d", rec.Code)
	}

	staff := ts.staffHeader(t)
	rec := ts.do(t, http.MethodPatch, path, map[string]string{"status": "completed"}, staff)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	rec = ts.do(t, http.MethodPatch, path, map[string]string{"status": "confirmed"}, staff)
	if rec.Code != http.StatusConflict || decode[errorEnvelope](t, rec).Error.Kind != domain.KindInvalidTransition {
		t.Fatalf("terminal move = %d %s", rec.Code, rec.Body)
	}
	for _, id := range []string{"0190a0a0-0000-7000-8000-000000000000", "not-an-id"} {
		rec = ts.do(t, http.MethodPatch, "/api/appointments/"+id, map[string]string{"status": "completed"}, staff)
		if rec.Code != http.StatusNotFound || decode[errorEnvelope](t, rec).Error.Kind != domain.KindNotFound {
			t.Fatalf("unknown id %q = %d %s", id, rec.Code, rec.Body)
		}
	}

	list := decode[struct {
		Appointments []domain.Appointment `json:"appointments"`
	}](t, ts.do(t, http.MethodGet, "/api/appointments", nil, staff))
	if len(list.Appointments) != 1 || list.Appointments[0].Status != domain.StatusCompleted {
		t.Fatalf("list = %+v", list)
	}
}

func TestLoginCookieSession(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/login", map[string]string{"email": "barbero@example.com", "password": "nope"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/login", map[string]string{"email": "barbero@example.com", "password": "tijeras123"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body)
	}
	var session *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == sessionCookie {
			session = ck
		}
	}
	if session == nil || !session.HttpOnly {
		t.Fatalf("session cookie = %+v", session)
	}

	me := ts.do(t, http.MethodGet, "/api/me", nil, http.Header{"Cookie": []string{session.Name + "=" + session.Value}})
	if me.Code != http.StatusOK {
		t.Fatalf("me status = %d", me.Code)
	}
	got := decode[struct {
		User auth.Identity `json:"user"`
	}](t, me)
	if got.User.Email != "barbero@example.com" || got.User.Role != domain.RoleBarber {
		t.Fatalf("me = %+v", got)
	}
}

func TestClientCancelAndSearch(t *testing.T) {
	ts := newTestServer(t)
	appt := decode[domain.Appointment](t, ts.do(t, http.MethodPost, "/api/appointments", bookBody("2025-06-10T11:00:00-05:00"), nil))
	path := "/api/appointments/" + appt.ID.String() + "/cancel"

	rec := ts.do(t, http.MethodPost, path, map[string]string{"clientName": "Otro", "clientPhone": "3001234567"}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("mismatch status = %d", rec.Code)
	}
	rec = ts.do(t, http.MethodPost, "/api/appointments/abc123/cancel", map[string]string{"clientName": "Ana Gomez", "clientPhone": "3001234567"}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("malformed id status = %d", rec.Code)
	}

	found := decode[struct {
		Appointments []domain.Appointment `json:"appointments"`
	}](t, ts.do(t, http.MethodGet, "/api/appointments/search?name=ana%20gomez&phone=3001234567", nil, nil))
	if len(found.Appointments) != 1 {
		t.Fatalf("search = %+v", found)
	}

	rec = ts.do(t, http.MethodPost, path, map[string]string{"clientName": "Ana Gomez", "clientPhone": "3001234567"}, nil)
	if rec.Code != http.StatusOK || decode[domain.Appointment](t, rec).Status != domain.StatusCancelledByClient {
		t.Fatalf("cancel = %d %s", rec.Code, rec.Body)
	}
}

func TestCatalogAdmin(t *testing.T) {
	ts := newTestServer(t)
	staff := ts.staffHeader(t)

	if rec := ts.do(t, http.MethodPut, "/api/services/barba", map[string]any{"name": "Barba", "durationMinutes": 20}, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous upsert = %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodPut, "/api/services/barba", map[string]any{"name": "Barba", "durationMinutes": 0}, staff); rec.Code != http.StatusBadRequest {
		t.Fatalf("zero duration = %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodPut, "/api/services/barba", map[string]any{"name": "Barba", "durationMinutes": 20}, staff); rec.Code != http.StatusOK {
		t.Fatalf("upsert = %d %s", rec.Code, rec.Body)
	}

	if rec := ts.do(t, http.MethodPut, "/api/schedule/0", map[string]any{"startTime": "10:00", "endTime": "18:00"}, staff); rec.Code != http.StatusOK {
		t.Fatalf("schedule upsert = %d %s", rec.Code, rec.Body)
	}
	if rec := ts.do(t, http.MethodPut, "/api/schedule/sunday", map[string]any{"startTime": "10:00", "endTime": "18:00"}, staff); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad day = %d", rec.Code)
	}

	got := decode[availabilityResponse](t, ts.do(t, http.MethodGet, "/api/availability?date=2025-06-08&service=barba", nil, nil))
	if got.WorkingHours != "10:00 - 18:00" || len(got.AvailableSlots) == 0 {
		t.Fatalf("sunday availability = %+v", got)
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, func(d *Deps) {
		d.RatePerMinute = 1
		d.RateBurst = 1
	})

	if rec := ts.do(t, http.MethodGet, "/api/services", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("first = %d", rec.Code)
	}
	rec := ts.do(t, http.MethodGet, "/api/services", nil, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second = %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/healthz", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz limited = %d", rec.Code)
	}
}

func TestReadiness(t *testing.T) {
	ts := newTestServer(t, func(d *Deps) {
		d.Ready = pingFunc(func(ctx context.Context) error { return errors.New("db down") })
	})
	if rec := ts.do(t, http.MethodGet, "/readyz", nil, nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz = %d", rec.Code)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/healthz", nil, http.Header{requestIDHeader: []string{"abc-123"}})
	if got := rec.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("request id = %q", got)
	}
	rec = ts.do(t, http.MethodGet, "/healthz", nil, nil)
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("request id not generated")
	}
}
