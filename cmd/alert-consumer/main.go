package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/IANDYI/maternity-service/internal/adapters/handler"
	"github.com/IANDYI/maternity-service/internal/adapters/middleware"
	"github.com/IANDYI/maternity-service/internal/adapters/repository"
	"github.com/IANDYI/maternity-service/internal/adapters/websocket"
	"github.com/IANDYI/maternity-service/internal/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	logger := config.NewLogger("labor-alert-consumer")

	cfg, err := config.LoadAlertConsumerConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	handler.RegisterAlertConsumerMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := websocket.NewHub(logger)
	hub.ObserveConnections(func(role string, delta float64) {
		handler.WebSocketConnections.WithLabelValues(strings.ToLower(role)).Add(delta)
	})
	go hub.Run(ctx)

	consumer, err := repository.NewQueueConsumer(
		cfg.RabbitMQURL,
		cfg.QueueName,
		handler.NewLaborAlertHandler(hub, logger),
		logger,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize labor alert consumer")
	}
	defer consumer.Close()

	if err := consumer.StartConsuming(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start labor alert consumer")
	}

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTPublicKey, logger)
	defer authMiddleware.Stop()
	wsHandler := handler.NewWebSocketHandler(hub, authMiddleware, logger)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("GET /ws", wsHandler.HandleWebSocket)

	server := &http.Server{
		Addr:        ":" + cfg.WebSocketPort,
		Handler:     middleware.Recovery(logger)(mux),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.WebSocketPort).Str("queue", cfg.QueueName).Msg("starting labor alert consumer")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down labor alert consumer")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
}
