package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/medrec/medrec/internal/config"
	"github.com/medrec/medrec/internal/domain/appointment"
	"github.com/medrec/medrec/internal/domain/identity"
	"github.com/medrec/medrec/internal/domain/patient"
	"github.com/medrec/medrec/internal/domain/pharmacy"
	"github.com/medrec/medrec/internal/domain/physician"
	"github.com/medrec/medrec/internal/domain/prescription"
	"github.com/medrec/medrec/internal/platform/apperr"
	"github.com/medrec/medrec/internal/platform/auth"
	"github.com/medrec/medrec/internal/platform/db"
	"github.com/medrec/medrec/internal/platform/events"
	"github.com/medrec/medrec/internal/platform/gateway"
	"github.com/medrec/medrec/internal/platform/middleware"
	"github.com/medrec/medrec/internal/platform/remote"
	"github.com/medrec/medrec/internal/platform/token"
)

// newLogger writes JSON to out, or human-readable lines in development.
func newLogger(cfg *config.Config, out io.Writer, service string) zerolog.Logger {
	if cfg.IsDev() {
		out = zerolog.ConsoleWriter{Out: out}
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Str("service", service).Logger()
}

// deps are the shared resources of one running service.
type deps struct {
	cfg     *config.Config
	logger  zerolog.Logger
	pool    *pgxpool.Pool
	closers []func()
}

func (d *deps) onClose(fn func()) { d.closers = append(d.closers, fn) }

func (d *deps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func runServer(service string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg, os.Stdout, service)
	if err := cfg.Validate(service); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d := &deps{cfg: cfg, logger: logger}
	defer d.close()

	if config.NeedsDatabase(service) {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL,
			db.WithConns(cfg.DBMaxConns, cfg.DBMinConns),
			db.WithApplicationName("medrec-"+service),
		)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		d.pool = pool
		d.onClose(pool.Close)
		logger.Info().Msg("connected to database")
	}

	e := newEcho(cfg, service, logger)
	if err := mount(ctx, e, service, d); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newEcho builds the server with the middleware every service shares. CORS
// is answered at the edge only; proxied responses already carry the
// upstream's security headers.
func newEcho(cfg *config.Config, service string, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	if service == config.ServiceGateway {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins: cfg.CORSOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
			AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader, middleware.IdempotencyKeyHeader},
		}))
	} else {
		e.Use(middleware.SecurityHeaders())
	}
	e.Use(middleware.BodyLimit(middleware.DefaultBodyLimit))
	return e
}

func mount(ctx context.Context, e *echo.Echo, service string, d *deps) error {
	e.GET("/health", db.LivenessHandler(service))
	if d.pool != nil {
		e.GET("/health/db", db.HealthHandler(service, d.pool))
	}

	switch service {
	case config.ServiceAppointment:
		return mountAppointment(ctx, e, d)
	case config.ServicePrescription:
		return mountPrescription(ctx, e, d)
	case config.ServicePatient:
		return mountPatient(ctx, e, d)
	case config.ServicePhysician:
		return mountPhysician(e, d)
	case config.ServicePharmacist:
		return mountPharmacist(e, d)
	case config.ServiceGateway:
		return mountGateway(e, d)
	}
	return fmt.Errorf("unknown service %q", service)
}

// -- Back services --

func mountAppointment(ctx context.Context, e *echo.Echo, d *deps) error {
	idem, err := idempotency(ctx, d, "appointment")
	if err != nil {
		return err
	}
	e.Use(middleware.RequestTimeout(d.cfg.RequestTimeout))
	e.Use(middleware.Audit(d.logger))

	svc := appointment.NewService(appointment.NewRepoPG(d.pool), d.logger)
	appointment.NewHandler(svc).RegisterRoutes(e.Group(""), idem)
	return nil
}

func mountPrescription(ctx context.Context, e *echo.Echo, d *deps) error {
	idem, err := idempotency(ctx, d, "prescription")
	if err != nil {
		return err
	}
	e.Use(middleware.RequestTimeout(d.cfg.RequestTimeout))
	e.Use(middleware.Audit(d.logger))

	svc := prescription.NewService(prescription.NewRepoPG(d.pool), publisher(d), d.logger)
	prescription.NewHandler(svc).RegisterRoutes(e.Group(""), idem)
	return nil
}

// mountPatient serves both the patient records, which only the physician
// front reads, and the PATIENT identity routes.
func mountPatient(ctx context.Context, e *echo.Echo, d *deps) error {
	idem, err := idempotency(ctx, d, "patient")
	if err != nil {
		return err
	}
	ids, err := mountIdentity(e, d, auth.RolePatient)
	if err != nil {
		return err
	}
	g := e.Group("")
	ids.RegisterRoutes(g)
	patient.NewHandler(patient.NewService(patient.NewRepoPG(d.pool))).RegisterRoutes(g, idem)
	return nil
}

// -- Front services --

func mountPhysician(e *echo.Echo, d *deps) error {
	ids, err := mountIdentity(e, d, auth.RolePhysician)
	if err != nil {
		return err
	}
	g := e.Group("")
	ids.RegisterRoutes(g)
	physician.NewHandler(
		remoteClient(d, config.ServiceAppointment, d.cfg.AppointmentServiceURL),
		remoteClient(d, config.ServicePrescription, d.cfg.PrescriptionServiceURL),
		remoteClient(d, config.ServicePatient, d.cfg.PatientServiceURL),
		d.logger,
	).RegisterRoutes(g)
	return nil
}

func mountPharmacist(e *echo.Echo, d *deps) error {
	ids, err := mountIdentity(e, d, auth.RolePharmacist)
	if err != nil {
		return err
	}
	g := e.Group("")
	ids.RegisterRoutes(g)
	pharmacy.NewHandler(
		remoteClient(d, config.ServicePrescription, d.cfg.PrescriptionServiceURL),
		d.logger,
	).RegisterRoutes(g)
	return nil
}

func mountGateway(e *echo.Echo, d *deps) error {
	e.Use(middleware.RateLimit(middleware.CredentialRateLimitConfig()))
	return gateway.Mount(e, gateway.Routes(d.cfg.PhysicianServiceURL, d.cfg.PharmacistServiceURL, d.cfg.PatientServiceURL), d.logger)
}

// mountIdentity installs the token service and the authentication gate for
// a service that owns accounts of one role, and returns the identity handler.
func mountIdentity(e *echo.Echo, d *deps, role auth.Role) (*identity.Handler, error) {
	keys, err := token.NewKeyProvider(d.cfg.TokenSigningKey)
	if err != nil {
		return nil, fmt.Errorf("token signing key: %w", err)
	}
	if _, ephemeral := keys.(*token.EphemeralKeyProvider); ephemeral {
		d.logger.Warn().Msg("TOKEN_SIGNING_KEY not set: using a per-process key; tokens will not survive a restart")
	}
	tokens := token.NewService(keys, d.cfg.TokenTTL, token.WithIssuer(d.cfg.TokenIssuer))

	svc := identity.NewService(identity.NewRepoPG(d.pool), tokens, role, d.logger)
	e.Use(middleware.RequestTimeout(d.cfg.RequestTimeout))
	e.Use(auth.Gate(tokens, svc, d.logger, auth.GateSkipper))
	e.Use(middleware.Audit(d.logger))
	return identity.NewHandler(svc), nil
}

func remoteClient(d *deps, service, baseURL string) *remote.Client {
	return remote.New(service, baseURL, remote.WithTimeout(d.cfg.RemoteTimeout), remote.WithLogger(d.logger))
}

// idempotency returns the replay middleware for write-once routes, backed by
// Redis when REDIS_URL is set. The in-memory fallback is swept until ctx ends.
func idempotency(ctx context.Context, d *deps, prefix string) (echo.MiddlewareFunc, error) {
	var store middleware.IdempotencyStore
	if d.cfg.RedisURL != "" {
		rs, err := middleware.NewRedisIdempotencyStore(ctx, d.cfg.RedisURL, "medrec:idem:"+prefix+":")
		if err != nil {
			return nil, fmt.Errorf("idempotency store: %w", err)
		}
		d.onClose(func() { _ = rs.Close() })
		store = rs
		d.logger.Info().Msg("idempotency keys stored in redis")
	} else {
		ms := middleware.NewMemoryIdempotencyStore()
		ms.StartCleanup(ctx, time.Minute)
		store = ms
	}
	return middleware.Idempotency(store, d.cfg.IdempotencyTTL, d.logger), nil
}

// publisher returns the prescription event sink: Kafka when brokers are
// configured, the log otherwise.
func publisher(d *deps) events.Publisher {
	if len(d.cfg.KafkaBrokers) == 0 {
		return events.NewLogPublisher(d.logger)
	}
	p := events.NewKafkaPublisher(d.cfg.KafkaBrokers, d.cfg.KafkaTopic)
	d.onClose(func() {
		if err := p.Close(); err != nil {
			d.logger.Warn().Err(err).Msg("close kafka publisher")
		}
	})
	d.logger.Info().Strs("brokers", d.cfg.KafkaBrokers).Str("topic", d.cfg.KafkaTopic).Msg("publishing prescription events to kafka")
	return p
}
