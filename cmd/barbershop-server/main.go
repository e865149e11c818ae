package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"

	"github.com/DrojasFrontend/barbershop-booking-system/internal/auth"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/config"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/domain"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/events"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/service/availability"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/service/booking"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/service/catalog"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/store"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/store/memory"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/store/postgres"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/telemetry"
	grpcTransport "github.com/DrojasFrontend/barbershop-booking-system/internal/transport/grpc"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/transport/rest"
)

const serviceName = "barbershop-server"

type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", serviceName),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", serviceName),
	)
	slog.SetDefault(log)

	loc, err := cfg.Location()
	if err != nil {
		log.Error("shop timezone invalid", slog.Any("err", err), slog.String("timezone", cfg.ShopTimezone))
		os.Exit(1)
	}

	log.Info("starting",
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("grpc_addr", cfg.GRPCAddr()),
		slog.String("storage", cfg.StorageDriver),
		slog.String("timezone", loc.String()),
		slog.String("log_level", cfg.LogLevel),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:     cfg.OTelEnabled,
		ServiceName: serviceName,
		Endpoint:    cfg.OTelEndpoint,
		SampleRatio: cfg.OTelSampleRatio,
	})
	if err != nil {
		log.Error("tracing setup failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("tracing shutdown failed", slog.Any("err", err))
		}
	}()

	var (
		catalogs store.CatalogRepository
		appts    store.AppointmentRepository
		staff    store.StaffRepository
		ready    pinger
	)
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		mem := memory.New()
		catalogs, appts, staff, ready = mem, mem, mem, mem
		if err := seedCatalog(ctx, catalog.NewService(mem)); err != nil {
			log.Error("catalog seed failed", slog.Any("err", err))
			os.Exit(1)
		}
		log.Warn("using in-memory storage; appointments are lost on restart")
	default:
		log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
		db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
			ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		})
		if err != nil {
			args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
			log.Error("database connection failed", args...)
			os.Exit(1)
		}
		defer func() {
			if err := postgres.Close(db); err != nil {
				log.Warn("database close failed", slog.Any("err", err))
			}
		}()
		catalogs = postgres.NewCatalogRepo(db)
		appts = postgres.NewAppointmentRepo(db)
		staff = postgres.NewStaffRepo(db)
		ready = postgres.NewPinger(db)
	}

	if cfg.StaffEmail != "" && cfg.StaffPassword != "" {
		u, created, err := auth.EnsureStaff(ctx, staff, cfg.StaffEmail, cfg.StaffName, cfg.StaffPassword)
		if err != nil {
			log.Error("staff bootstrap failed", slog.Any("err", err))
			os.Exit(1)
		}
		log.Info("staff account ready", slog.String("email", u.Email), slog.Bool("created", created))
	}

	hub := events.NewHub(log)
	sinks := []events.Publisher{hub}
	if cfg.RedisAddr != "" {
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    strings.Split(cfg.RedisAddr, ","),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Warn("redis close failed", slog.Any("err", err))
			}
		}()
		relay := events.NewRedisRelay(rdb, cfg.RedisChannel, hub, log)
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("redis relay stopped", slog.Any("err", err))
			}
		}()
		// The relay feeds the hub, including this instance's own events.
		sinks = []events.Publisher{relay}
		log.Info("redis relay enabled", slog.String("redis_addr", cfg.RedisAddr))
	}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink := events.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopicPrefix)
		defer func() {
			if err := kafkaSink.Close(); err != nil {
				log.Warn("kafka writer close failed", slog.Any("err", err))
			}
		}()
		sinks = append(sinks, kafkaSink)
		log.Info("kafka sink enabled", slog.Any("brokers", cfg.KafkaBrokers))
	}
	publisher := events.NewFanout(sinks...)

	availabilitySvc := availability.NewService(catalogs, appts, loc)
	bookingSvc := booking.NewService(catalogs, appts, publisher, loc,
		booking.WithNeighborhood(cfg.BookingNeighborhood),
		booking.WithLogger(log),
	)
	catalogSvc := catalog.NewService(catalogs)

	deps := rest.Deps{
		Availability:   availabilitySvc,
		Booking:        bookingSvc,
		Catalog:        catalogSvc,
		Ready:          ready,
		Realtime:       events.NewSockJSHandler("/realtime", hub, log),
		Location:       loc,
		SessionTTL:     cfg.TokenTTL,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RatePerMinute:  cfg.RateLimitPerMinute,
		RateBurst:      cfg.RateLimitBurst,
		Log:            log,
	}
	bookingServer := grpcTransport.NewBookingServer(availabilitySvc, bookingSvc, nil, log)
	if cfg.JWTSecret != "" {
		authenticator, err := auth.NewAuthenticator(staff, cfg.JWTSecret, cfg.TokenTTL)
		if err != nil {
			log.Error("authenticator setup failed", slog.Any("err", err))
			os.Exit(1)
		}
		deps.Auth = authenticator
		bookingServer = grpcTransport.NewBookingServer(availabilitySvc, bookingSvc, authenticator, log)
	} else {
		log.Warn("auth.jwt_secret is empty; staff endpoints are disabled")
	}

	gin.SetMode(gin.ReleaseMode)
	router := rest.NewRouter(deps)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(router, "http"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpcTransport.DefaultRequestTimeoutInterceptor(cfg.GRPCRequestTimeout),
			grpcTransport.RequestLogInterceptor(log),
		),
	)
	grpcTransport.RegisterBookingServiceServer(grpcServer, bookingServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr()))
		os.Exit(1)
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- grpcServer.Serve(lis)
	}()
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	log.Info("servers started", slog.String("http_addr", cfg.HTTPAddr), slog.String("grpc_addr", cfg.GRPCAddr()))

	exitCode := 0
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped with error", slog.Any("err", err))
			exitCode = 1
		}
	}
	stop()
	shutdown(log, httpServer, grpcServer, cfg.ShutdownTimeout)
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func shutdown(log *slog.Logger, h *http.Server, s *grpc.Server, timeout time.Duration) {
	log.Info("shutting down servers", slog.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := h.Shutdown(ctx); err != nil {
		log.Warn("http graceful shutdown failed", slog.Any("err", err))
	}

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-ctx.Done():
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		s.Stop()
	}
}

// seedCatalog loads the default menu and opening hours into a fresh memory
// store. Postgres gets the same rows from migrations.
func seedCatalog(ctx context.Context, svc *catalog.Service) error {
	services := []catalog.ServiceInput{
		{ID: "corte", Name: "Corte de cabello", DurationMinutes: 30},
		{ID: "barba", Name: "Arreglo de barba", DurationMinutes: 20},
		{ID: "corte-barba", Name: "Corte y barba", DurationMinutes: 45},
		{ID: "afeitado", Name: "Afeitado clásico", DurationMinutes: 25},
	}
	for _, in := range services {
		if _, err := svc.UpsertService(ctx, in); err != nil {
			return err
		}
	}
	for day := 0; day < 7; day++ {
		wh := domain.WorkingHours{DayOfWeek: day, StartTime: "09:00", EndTime: "19:00", Active: true}
		switch time.Weekday(day) {
		case time.Sunday:
			wh.StartTime, wh.EndTime = "10:00", "18:00"
		case time.Saturday:
			wh.EndTime = "18:00"
		}
		if _, err := svc.UpsertWorkingHours(ctx, wh); err != nil {
			return err
		}
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
