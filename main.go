package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"edu-crm/internal/analytics"
	analytics_api "edu-crm/internal/analytics/api"
	application_api "edu-crm/internal/application/api"
	application_db "edu-crm/internal/application/db"
	application_service "edu-crm/internal/application/service"
	"edu-crm/internal/auth"
	"edu-crm/internal/config"
	"edu-crm/internal/database/migrations"
	directory_api "edu-crm/internal/directory/api"
	directory_db "edu-crm/internal/directory/db"
	directory_service "edu-crm/internal/directory/service"
	event_api "edu-crm/internal/event/api"
	event_db "edu-crm/internal/event/db"
	event_service "edu-crm/internal/event/service"
	lead_api "edu-crm/internal/lead/api"
	lead_db "edu-crm/internal/lead/db"
	lead_service "edu-crm/internal/lead/service"
	"edu-crm/internal/logger"
	"edu-crm/internal/models"
	"edu-crm/internal/notification"
	"edu-crm/internal/sequence"
	student_api "edu-crm/internal/student/api"
	student_db "edu-crm/internal/student/db"
	student_service "edu-crm/internal/student/service"
	"edu-crm/internal/utils"
)

func verifyConnections(ctx context.Context, cfg *config.Config, log *logger.Logger) (*bun.DB, *redis.Client) {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN())
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.PingContext(ctx)
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	log.Info("DATABASE", "PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s (DB: %d)", cfg.Redis.Addr, cfg.Redis.DB))

	return bunDB, redisClient
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("ok", nil))
}

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.LogAPI(r.Method, r.URL.Path, ww.Status(), time.Since(start))
		})
	}
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting CRM service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	bunDB, redisClient := verifyConnections(ctx, cfg, log)
	defer bunDB.Close()
	defer redisClient.Close()

	migrationRunner := migrations.NewRunner(bunDB, "./migrations", log)
	if err := migrationRunner.Up(); err != nil {
		log.Warn("DATABASE", fmt.Sprintf("Migrations did not complete: %v", err))
	}
	defer migrationRunner.Close()

	var (
		leadPublisher        lead_service.Publisher
		studentPublisher     student_service.Publisher
		applicationPublisher application_service.Publisher
		eventPublisher       event_service.Publisher
	)
	if cfg.Kafka.Enabled {
		topics := []string{
			cfg.Kafka.Topics.LeadEvents,
			cfg.Kafka.Topics.StudentEvents,
			cfg.Kafka.Topics.ApplicationEvents,
			cfg.Kafka.Topics.RegistrationEvents,
		}
		if err := notification.EnsureTopicsExist(cfg.Kafka.Brokers, topics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Could not ensure topics: %v", err))
		} else {
			log.Info("KAFKA", "Event topics ready")
		}

		producer := notification.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics)
		defer producer.Close()
		leadPublisher = producer
		studentPublisher = producer
		applicationPublisher = producer
		eventPublisher = producer
		log.Info("KAFKA", "Kafka producer initialized successfully")
	} else {
		log.Warn("KAFKA", "Kafka disabled, entity events will not be published")
	}

	mailer := notification.NewMailer(cfg.Email, log)

	if cfg.Stripe.Enabled {
		event_service.InitStripe(cfg.Stripe.SecretKey)
		log.Info("APP", "Stripe client initialized")
	}

	directoryService := directory_service.NewDirectoryService(&directory_db.DB{Bun: bunDB}, nil)
	scopeResolver := auth.NewScopeResolver(directoryService, redisClient, cfg.Auth.ScopeCacheTTL)
	directoryService.Scopes = scopeResolver

	leadService := lead_service.NewLeadService(&lead_db.DB{Bun: bunDB}, leadPublisher)
	studentService := student_service.NewStudentService(
		&student_db.DB{Bun: bunDB},
		sequence.NewAllocator(sequence.NewTableStore(bunDB, "students")),
		leadService,
		studentPublisher,
	)
	applicationService := application_service.NewApplicationService(
		&application_db.DB{Bun: bunDB},
		sequence.NewAllocator(sequence.NewTableStore(bunDB, "applications")),
		applicationPublisher,
		mailer,
	)
	eventService := event_service.NewEventService(
		&event_db.DB{Bun: bunDB},
		sequence.NewAllocator(sequence.NewTableStore(bunDB, "event_registrations")),
		event_service.NewPassGenerator(cfg.Server.PassSecret),
		eventPublisher,
		mailer,
	)
	analyticsService := analytics.NewService(bunDB)

	leadHandler := lead_api.NewHandler(leadService, log)
	studentHandler := student_api.NewHandler(studentService, leadService, log)
	applicationHandler := application_api.NewHandler(applicationService, studentService, log)
	eventHandler := event_api.NewHandler(eventService, cfg.Stripe.WebhookSecret, log)
	directoryHandler := directory_api.NewHandler(directoryService, log)
	analyticsHandler := analytics_api.NewHandler(analyticsService, log)

	var verifier auth.Verifier
	if cfg.Auth.OIDCIssuer != "" {
		oidcVerifier, err := auth.NewOIDCVerifier(ctx, cfg.Auth.OIDCIssuer)
		if err != nil {
			log.Fatal("AUTH", fmt.Sprintf("Failed to initialize OIDC verifier: %v", err))
		}
		verifier = oidcVerifier
		log.Info("AUTH", fmt.Sprintf("Using OIDC token verification against %s", cfg.Auth.OIDCIssuer))
	} else {
		hmacVerifier, err := auth.NewHMACVerifier(cfg.Auth.JWTSecret)
		if err != nil {
			log.Fatal("AUTH", fmt.Sprintf("Failed to initialize JWT verifier: %v", err))
		}
		verifier = hmacVerifier
		log.Info("AUTH", "Using HMAC token verification")
	}

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(requestLogger(log))

	// --- Public Routes ---
	r.Get("/health", healthHandler)
	eventHandler.RegisterWebhookRoutes(r)

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(verifier, scopeResolver, log))
		log.Info("AUTH", "JWT middleware applied to protected API routes")

		r.Route("/api", func(r chi.Router) {
			leadHandler.RegisterRoutes(r)
			studentHandler.RegisterRoutes(r)
			applicationHandler.RegisterRoutes(r)
			eventHandler.RegisterRoutes(r)
			analyticsHandler.RegisterRoutes(r)
			directoryHandler.RegisterReadRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRoles(models.RoleSuperAdmin, models.RoleAdminStaff))
				directoryHandler.RegisterAdminRoutes(r)
			})
		})
		log.Info("ROUTER", "Entity routes registered under /api")
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("CRM service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
	} else {
		log.Info("HTTP", "CRM service shutdown complete")
	}
}
