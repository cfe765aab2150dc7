package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ylorant/HedgeBot-sub001/internal/adapter/httpserver"
	"github.com/ylorant/HedgeBot-sub001/internal/adapter/mercure"
	"github.com/ylorant/HedgeBot-sub001/internal/adapter/metrics"
	"github.com/ylorant/HedgeBot-sub001/internal/adapter/postgres"
	"github.com/ylorant/HedgeBot-sub001/internal/adapter/redis"
	"github.com/ylorant/HedgeBot-sub001/internal/adapter/socketio"
	"github.com/ylorant/HedgeBot-sub001/internal/adapter/websocket"
	"github.com/ylorant/HedgeBot-sub001/internal/app"
	"github.com/ylorant/HedgeBot-sub001/internal/format"
	"github.com/ylorant/HedgeBot-sub001/internal/platform/config"
	"github.com/ylorant/HedgeBot-sub001/internal/platform/logging"
	"github.com/ylorant/HedgeBot-sub001/internal/platform/version"
	"github.com/ylorant/HedgeBot-sub001/internal/relay"
	"github.com/ylorant/HedgeBot-sub001/internal/store"
)

const (
	shutdownTimeout = 10 * time.Second
	startupConnect  = 30 * time.Second
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupRelay(cfg *config.Config, clock clockwork.Clock, reg prometheus.Registerer) (*app.Relay, *relay.Registry) {
	registry := relay.MustNewRegistry(
		socketio.Factory(clock),
		mercure.Factory(),
		redis.Factory(),
		postgres.Factory(),
		websocket.Factory(websocket.HubOptions{
			LogLevel:    cfg.LogLevel,
			CheckOrigin: websocket.NewCheckOrigin(cfg.AppURL, cfg.IsDevelopment(), cfg.AllowedOrigins),
			Metrics:     metrics.NewHubMetrics(reg),
		}),
	)

	relayService, err := app.NewRelay(registry, cfg.Relays, metrics.NewRelayMetrics(reg), app.RelayOptions{
		ConnectAttempts: cfg.RelayConnectAttempts,
		Clock:           clock,
	})
	if err != nil {
		slog.Error("Failed to set up relays", "error", err)
		os.Exit(1)
	}
	return relayService, registry
}

func runGracefulShutdown(srv *httpserver.Server, relayService *app.Relay, stopTicker context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		stopTicker()

		if err := relayService.Disconnect(shutdownCtx); err != nil {
			slog.Error("Relay disconnect error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Get().Version, "relays", len(cfg.Relays))

	reg := metrics.NewRegistry()

	liveStore := store.New(metrics.NewStoreMetrics(reg))
	snapshots := app.NewSnapshots(liveStore)
	liveStore.RegisterFormatter(format.NewVars(snapshots))
	liveStore.RegisterFormatter(format.NewJSON(snapshots))

	relayService, registry := setupRelay(cfg, clock, reg)
	liveStore.RegisterSource(app.NewSystemSource(clock))
	liveStore.RegisterSource(app.NewRelaySource(relayService))

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), startupConnect)
	if err := relayService.Connect(connectCtx); err != nil {
		slog.Warn("Some relays are not connected yet, keep-alive will retry", "error", err)
	}
	cancelConnect()

	tickerCtx, stopTicker := context.WithCancel(context.Background())
	ticker := app.NewKeepAliveTicker(relayService, clock, cfg.RelayKeepAliveInterval)
	go ticker.Run(tickerCtx)

	srv := httpserver.NewServer(cfg, httpserver.Deps{
		Data:           snapshots,
		Catalog:        liveStore,
		Relay:          relayService,
		RelayTypes:     registry.ClientTypes(),
		MetricsHandler: metrics.Handler(reg),
		HTTPMetrics:    metrics.NewHTTPMetrics(reg),
		HealthChecks:   []httpserver.HealthCheck{httpserver.RelayHealthCheck(relayService)},
	})

	done := runGracefulShutdown(srv, relayService, stopTicker)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
	slog.Info("Server stopped")
}
