package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IANDYI/maternity-service/internal/adapters/handler"
	"github.com/IANDYI/maternity-service/internal/adapters/middleware"
	"github.com/IANDYI/maternity-service/internal/adapters/repository"
	"github.com/IANDYI/maternity-service/internal/config"
	"github.com/IANDYI/maternity-service/internal/core/ports"
	"github.com/IANDYI/maternity-service/internal/core/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// stateBackend is a StateStore the service can probe and close
type stateBackend interface {
	ports.StateStore
	handler.Pinger
	Close() error
}

func main() {
	logger := config.NewLogger("maternity-service")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open state store")
	}
	defer store.Close()

	// Labor alerts are optional; without RabbitMQ the alert flag is still derived locally
	var alerts ports.LaborAlertPublisher
	if cfg.RabbitMQURL != "" {
		publisher, err := repository.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.LaborAlertQueue, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize RabbitMQ publisher")
		}
		defer publisher.Close()
		alerts = publisher
	} else {
		logger.Warn().Msg("RABBITMQ_URL not set; labor alerts will not be published")
	}

	clock := services.NewSystemClock(cfg.Timezone)
	registry := services.NewEngineRegistry(store, clock, alerts, logger)

	// Registration consumer anchors the gestational clock from identity-service signups.
	// In multi-replica deployments RabbitMQ distributes messages across replicas.
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()
	if cfg.RabbitMQURL != "" {
		registrationConsumer, err := repository.NewQueueConsumer(
			cfg.RabbitMQURL,
			cfg.RegistrationQueue,
			repository.NewRegistrationHandler(registry, logger),
			logger,
		)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize registration consumer")
		}
		defer registrationConsumer.Close()

		if err := registrationConsumer.StartConsuming(consumerCtx); err != nil {
			logger.Error().Err(err).Msg("registration consumer error")
		}
	}

	handler.RegisterEngineMetrics()

	pregnancyHandler := handler.NewPregnancyHandler(registry, logger)
	vitalsHandler := handler.NewVitalsHandler(registry, logger)
	kickHandler := handler.NewKickHandler(registry, logger)
	contractionHandler := handler.NewContractionHandler(registry, logger)
	milestoneHandler := handler.NewMilestoneHandler(registry, logger)
	bagHandler := handler.NewHospitalBagHandler(registry, logger)
	healthHandler := handler.NewHealthHandler(store)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTPublicKey, logger)
	defer authMiddleware.Stop()
	auth := func(next http.HandlerFunc) http.HandlerFunc {
		return authMiddleware.RequireAnyRole([]string{middleware.RolePatient, middleware.RoleHealthWorker}, next)
	}

	mux := http.NewServeMux()

	// Health endpoints (OpenShift compatible, no auth required)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /health/ready", healthHandler.Ready)
	mux.HandleFunc("GET /health/live", healthHandler.Live)

	// Gestational clock
	mux.HandleFunc("GET /pregnancy", auth(pregnancyHandler.GetPregnancy))
	mux.HandleFunc("PUT /pregnancy/lmp", auth(pregnancyHandler.SetLMP))
	mux.HandleFunc("GET /pregnancy/due-date", auth(pregnancyHandler.GetDueDate))
	mux.HandleFunc("POST /pregnancy/bmi", auth(pregnancyHandler.SetBMI))

	// Vitals timeline
	mux.HandleFunc("GET /vitals", auth(vitalsHandler.ListVitals))
	mux.HandleFunc("GET /vitals/latest", auth(vitalsHandler.LatestVitals))
	mux.HandleFunc("POST /vitals", auth(vitalsHandler.CreateVitals))

	// Kick counter
	mux.HandleFunc("POST /kicks/start", auth(kickHandler.StartSession))
	mux.HandleFunc("POST /kicks/tap", auth(kickHandler.Tap))
	mux.HandleFunc("POST /kicks/finish", auth(kickHandler.FinishSession))
	mux.HandleFunc("GET /kicks", auth(kickHandler.History))

	// Contraction timer
	mux.HandleFunc("POST /contractions/start", auth(contractionHandler.StartContraction))
	mux.HandleFunc("POST /contractions/stop", auth(contractionHandler.StopContraction))
	mux.HandleFunc("POST /contractions/toggle", auth(contractionHandler.ToggleContraction))
	mux.HandleFunc("GET /contractions", auth(contractionHandler.ListContractions))
	mux.HandleFunc("DELETE /contractions", auth(contractionHandler.ClearContractions))

	// Checklists
	mux.HandleFunc("GET /milestones", auth(milestoneHandler.ListMilestones))
	mux.HandleFunc("POST /milestones/{milestone_id}/toggle", auth(milestoneHandler.ToggleMilestone))
	mux.HandleFunc("GET /hospital-bag", auth(bagHandler.ListItems))
	mux.HandleFunc("POST /hospital-bag/{item_id}/toggle", auth(bagHandler.ToggleItem))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
	})

	router := middleware.Recovery(logger)(middleware.MetricsMiddleware(corsHandler.Handler(mux)))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("starting Maternity Service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	// Stop consuming first so no registration lands mid-shutdown
	consumerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Int("engines", registry.Len()).Msg("server exited")
}

// openStore opens the state store selected by STORE_DRIVER
func openStore(cfg *config.Config, logger zerolog.Logger) (stateBackend, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverSQLite:
		return repository.OpenSQLiteStore(cfg.SQLitePath)
	case config.StoreDriverMemory:
		logger.Warn().Msg("using in-memory state store; data is lost on restart")
		return repository.NewMemoryStore(), nil
	default:
		db, err := config.ConnectDatabase(cfg.DatabaseURL, 5, 2*time.Second)
		if err != nil {
			return nil, err
		}
		if err := config.InitDatabase(db); err != nil {
			db.Close()
			return nil, err
		}
		return repository.NewPostgresStore(db, repository.BreakerSettings{
			MaxRequests: cfg.CircuitBreakerMaxRequests,
			Interval:    cfg.CircuitBreakerInterval,
			Timeout:     cfg.CircuitBreakerTimeout,
		}, logger), nil
	}
}
