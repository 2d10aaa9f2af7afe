package api

import (
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-scheduling/internal/directory"
	"github.com/hackgods/clinic-appointment-scheduling/internal/metrics"
)

type RouterConfig struct {
	Bookings     BookingService
	Availability AvailabilityService
	Schedules    ScheduleService
	Directory    directory.Repository
	Metrics      *metrics.Collector
	Logger       *zap.Logger

	PgPool *pgxpool.Pool
	Redis  *redis.Client

	// Per-client limit applied to booking creation only.
	BookingRateLimit float64
	BookingRateBurst int
	// Peers allowed to set X-Forwarded-For for rate limiting.
	TrustedProxies []netip.Prefix

	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	if cfg.Metrics != nil {
		r.Use(MetricsMiddleware(cfg.Metrics))
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Get("/specialties", listSpecialtiesHandler(cfg.Directory, log))
	r.Get("/specialties/{id}/doctors", listDoctorsHandler(cfg.Directory, log))

	r.Route("/doctors/{id}", func(r chi.Router) {
		r.Get("/availability", availabilityHandler(cfg.Availability, log))
		r.Get("/schedule", weeklyScheduleHandler(cfg.Schedules, cfg.Directory, log))
		r.Post("/windows", createWindowHandler(cfg.Schedules, cfg.Directory, log))
	})
	r.Delete("/windows/{id}", deactivateWindowHandler(cfg.Schedules, log))

	r.Route("/appointments", func(r chi.Router) {
		r.With(RateLimitMiddleware(cfg.BookingRateLimit, cfg.BookingRateBurst, cfg.TrustedProxies, log)).
			Post("/", createAppointmentHandler(cfg.Bookings, log))
		r.Get("/", listAppointmentsHandler(cfg.Bookings, log))
		r.Get("/{id}", getAppointmentHandler(cfg.Bookings, log))
		r.Post("/{id}/cancel", cancelAppointmentHandler(cfg.Bookings, log))
		r.Post("/{id}/complete", completeAppointmentHandler(cfg.Bookings, log))
	})

	r.Get("/patients/{id}/appointments", patientAppointmentsHandler(cfg.Bookings, log))

	return r
}
