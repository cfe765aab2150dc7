package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ylorant/HedgeBot-sub001/internal/adapter/metrics"
	"github.com/ylorant/HedgeBot-sub001/internal/app"
	"github.com/ylorant/HedgeBot-sub001/internal/domain"
	"github.com/ylorant/HedgeBot-sub001/internal/platform/config"
	"github.com/ylorant/HedgeBot-sub001/internal/store"
)

type dataReader interface {
	GetData(ctx context.Context, q store.Query) map[string]domain.Snapshot
}

type storeCatalog interface {
	Formatter(name string) (domain.Formatter, bool)
	FormatterNames() []string
	Namespaces() []string
}

type relayService interface {
	Publish(ctx context.Context, listener string, event domain.Event) error
	Statuses() []app.RelayStatus
	Handlers() []app.NamedHandler
}

// Deps are the application services the HTTP API exposes.
type Deps struct {
	Data    dataReader
	Catalog storeCatalog
	Relay   relayService
	// RelayTypes lists every adapter type the process knows about.
	RelayTypes     []string
	MetricsHandler http.Handler
	HTTPMetrics    *metrics.HTTPMetrics
	HealthChecks   []HealthCheck
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	data           dataReader
	catalog        storeCatalog
	relay          relayService
	relayTypes     []string
	metricsHandler http.Handler
	httpMetrics    *metrics.HTTPMetrics

	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:           e,
		config:         cfg,
		data:           deps.Data,
		catalog:        deps.Catalog,
		relay:          deps.Relay,
		relayTypes:     deps.RelayTypes,
		metricsHandler: deps.MetricsHandler,
		httpMetrics:    deps.HTTPMetrics,
		healthChecks:   deps.HealthChecks,
		startTime:      time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP lets tests drive the full middleware stack without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
