package httpserver

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/ylorant/HedgeBot-sub001/internal/app"
	"github.com/ylorant/HedgeBot-sub001/internal/domain"
	"github.com/ylorant/HedgeBot-sub001/internal/platform/config"
	"github.com/ylorant/HedgeBot-sub001/internal/store"
)

const testAPIToken = "test-token-0123456789"

type mockDataReader struct {
	getDataFn func(ctx context.Context, q store.Query) map[string]domain.Snapshot

	mu      sync.Mutex
	queries []store.Query
}

func (m *mockDataReader) GetData(ctx context.Context, q store.Query) map[string]domain.Snapshot {
	m.mu.Lock()
	m.queries = append(m.queries, q)
	m.mu.Unlock()
	if m.getDataFn != nil {
		return m.getDataFn(ctx, q)
	}
	return map[string]domain.Snapshot{}
}

func (m *mockDataReader) lastQuery() store.Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queries) == 0 {
		return store.Query{}
	}
	return m.queries[len(m.queries)-1]
}

type mockFormatter struct {
	name     string
	formatFn func(ctx context.Context, template, channel string) string
}

func (m *mockFormatter) Name() string { return m.name }

func (m *mockFormatter) Format(ctx context.Context, template, channel string) string {
	return m.formatFn(ctx, template, channel)
}

type mockCatalog struct {
	formatters map[string]domain.Formatter
	namespaces []string
}

func (m *mockCatalog) Formatter(name string) (domain.Formatter, bool) {
	f, ok := m.formatters[name]
	return f, ok
}

func (m *mockCatalog) FormatterNames() []string {
	names := make([]string, 0, len(m.formatters))
	for name := range m.formatters {
		names = append(names, name)
	}
	return names
}

func (m *mockCatalog) Namespaces() []string { return m.namespaces }

type publishedEvent struct {
	Listener string
	Event    domain.Event
}

type mockRelay struct {
	publishFn func(ctx context.Context, listener string, event domain.Event) error
	statuses  []app.RelayStatus
	handlers  []app.NamedHandler

	mu        sync.Mutex
	published []publishedEvent
}

func (m *mockRelay) Publish(ctx context.Context, listener string, event domain.Event) error {
	m.mu.Lock()
	m.published = append(m.published, publishedEvent{Listener: listener, Event: event})
	m.mu.Unlock()
	if m.publishFn != nil {
		return m.publishFn(ctx, listener, event)
	}
	return nil
}

func (m *mockRelay) Statuses() []app.RelayStatus  { return m.statuses }
func (m *mockRelay) Handlers() []app.NamedHandler { return m.handlers }

func (m *mockRelay) getPublished() []publishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]publishedEvent(nil), m.published...)
}

func newTestServer(t *testing.T, opts ...func(*Server)) *Server {
	t.Helper()

	srv := &Server{
		echo: echo.New(),
		config: &config.Config{
			Port:         "8080",
			APIRateLimit: 1000,
			APIRateBurst: 1000,
			APIToken:     testAPIToken,
		},
		data:    &mockDataReader{},
		catalog: &mockCatalog{},
		relay:   &mockRelay{},
	}

	for _, opt := range opts {
		opt(srv)
	}

	srv.registerRoutes()

	return srv
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

func withData(data dataReader) func(*Server) {
	return func(s *Server) {
		s.data = data
	}
}

func withCatalog(catalog storeCatalog) func(*Server) {
	return func(s *Server) {
		s.catalog = catalog
	}
}

func withRelay(relay relayService, types ...string) func(*Server) {
	return func(s *Server) {
		s.relay = relay
		s.relayTypes = types
	}
}

func withConfig(mutate func(*config.Config)) func(*Server) {
	return func(s *Server) {
		mutate(s.config)
	}
}

func withMetricsHandler(h http.Handler) func(*Server) {
	return func(s *Server) {
		s.metricsHandler = h
	}
}
