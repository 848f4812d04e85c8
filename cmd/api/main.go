package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/salonmarlowe/bookings/internal/domain"
	"github.com/salonmarlowe/bookings/internal/http/handlers"
	mw "github.com/salonmarlowe/bookings/internal/http/middleware"
	"github.com/salonmarlowe/bookings/internal/mailer"
	"github.com/salonmarlowe/bookings/internal/repo/postgres"
	"github.com/salonmarlowe/bookings/internal/service"
	"github.com/salonmarlowe/bookings/pkg/config"
	"github.com/salonmarlowe/bookings/pkg/database"
	"github.com/salonmarlowe/bookings/pkg/events"
	"github.com/salonmarlowe/bookings/pkg/logger"
)

func main() {
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Event bus is optional; the API stays up without it.
	var bus events.Publisher = events.NopPublisher{}
	if eventBus, err := events.NewNATSEventBus(cfg.NATS.URL); err != nil {
		logger.Warn("Event bus unavailable, events disabled", "error", err)
	} else {
		bus = eventBus
	}
	defer bus.Close()

	var rdb *redis.Client
	if opts, err := redis.ParseURL(cfg.Redis.URL); err != nil {
		logger.Warn("Invalid Redis URL, rate limiting disabled", "error", err)
	} else {
		if cfg.Redis.Password != "" {
			opts.Password = cfg.Redis.Password
		}
		opts.DB = cfg.Redis.DB
		rdb = redis.NewClient(opts)
		defer rdb.Close()
	}

	mail := newMailer(cfg)

	accountRepo := postgres.NewAccountRepository(pool)
	serviceRepo := postgres.NewServiceRepository(pool)
	requestRepo := postgres.NewRequestRepository(pool)
	appointmentRepo := postgres.NewAppointmentRepository(pool)
	exportRepo := postgres.NewExportRepository(pool)

	authService := service.NewAuthService(accountRepo, cfg)
	bookingService := service.NewBookingService(requestRepo, serviceRepo, mail, bus)
	adminService := service.NewAdminService(requestRepo, appointmentRepo, exportRepo, mail, bus)

	h := handlers.New(authService, bookingService, adminService, pool)

	loginLimiter := mw.NewRateLimiter(rdb, 10, time.Minute, "rl:login")
	submitLimiter := mw.NewRateLimiter(rdb, 20, time.Minute, "rl:submit")

	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/services", h.ListServices)

		r.Route("/auth", func(r chi.Router) {
			r.With(loginLimiter.Middleware).Post("/login", h.Login)

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireAuth(authService))
				r.Get("/verify", h.VerifyToken)
				r.Post("/change-password", h.ChangePassword)
			})
		})

		r.Route("/requests", func(r chi.Router) {
			r.With(submitLimiter.Middleware).Post("/", h.SubmitRequest)
			r.Get("/{id}", h.GetRequest)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(mw.RequireAuth(authService))
			r.Use(mw.RequireRole(domain.RoleAdmin, domain.RoleSuperAdmin))

			r.Get("/requests", h.ListRequests)
			r.Get("/requests/{id}", h.GetAdminRequest)
			r.Put("/requests/{id}/approve", h.ApproveRequest)
			r.Put("/requests/{id}/reschedule", h.RescheduleRequest)
			r.Delete("/requests/{id}", h.CancelRequest)
			r.Get("/appointments", h.ListAppointments)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuth(authService))
			r.Use(mw.RequireRole(domain.RoleAdmin, domain.RoleSuperAdmin))
			r.Get("/export", h.Export)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down API server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	logger.Info("Starting API server", "port", cfg.Server.Port, "env", cfg.Server.Environment)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("API server error", "error", err)
		os.Exit(1)
	}
}

func newMailer(cfg *config.Config) mailer.Service {
	if cfg.Email.DevMode {
		return mailer.NewDevMailer()
	}
	if cfg.Email.MailerSendKey != "" {
		return mailer.NewMailerSend(cfg.Email.MailerSendKey, "Salon Marlowe", cfg.Email.SMTPFrom)
	}
	return mailer.NewSMTPMailer(
		cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom,
		cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.SMTPUseTLS,
	)
}
