package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ylorant/HedgeBot-sub001/internal/adapter/metrics"
	"github.com/ylorant/HedgeBot-sub001/internal/domain"
	"github.com/ylorant/HedgeBot-sub001/internal/platform/config"
	"github.com/ylorant/HedgeBot-sub001/internal/platform/retry"
)

const (
	defaultBreakerThreshold = 5
	defaultBreakerDelay     = 30 * time.Second

	connectInitialBackoff = time.Second
	connectMaxBackoff     = 10 * time.Second
)

// ClientResolver hands out fresh, uninitialized relay clients by type tag.
type ClientResolver interface {
	ResolveClient(clientType string) (domain.RelayClient, bool)
}

// RelayOptions tunes a Relay. Zero values fall back to defaults.
type RelayOptions struct {
	// ConnectAttempts bounds Connect retries per client, counting the first try.
	ConnectAttempts  int
	BreakerThreshold uint
	BreakerDelay     time.Duration
	Clock            clockwork.Clock
}

// RelayStatus describes one configured client.
type RelayStatus struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Available bool   `json:"available"`
	Circuit   string `json:"circuit"`
}

// NamedHandler is the HTTP endpoint of a client that serves listeners itself.
type NamedHandler struct {
	Name    string
	Handler http.Handler
}

type relayEntry struct {
	name    string
	client  domain.RelayClient
	breaker circuitbreaker.CircuitBreaker[any]
}

// Relay owns the configured relay clients and fans events out to them.
// The client set is fixed at construction.
type Relay struct {
	entries []*relayEntry
	metrics *metrics.RelayMetrics
	policy  retry.Policy
}

// NewRelay resolves and initializes one client per declaration. An unknown type,
// a duplicate name or a rejected configuration aborts construction.
// relayMetrics may be nil; the relay then records into a private registry.
func NewRelay(resolver ClientResolver, declarations []config.RelayConfig, relayMetrics *metrics.RelayMetrics, opts RelayOptions) (*Relay, error) {
	if relayMetrics == nil {
		relayMetrics = metrics.NewRelayMetrics(prometheus.NewRegistry())
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	threshold := opts.BreakerThreshold
	if threshold == 0 {
		threshold = defaultBreakerThreshold
	}
	delay := opts.BreakerDelay
	if delay <= 0 {
		delay = defaultBreakerDelay
	}

	r := &Relay{
		metrics: relayMetrics,
		policy: retry.Policy{
			MaxAttempts:    opts.ConnectAttempts,
			InitialBackoff: connectInitialBackoff,
			MaxBackoff:     connectMaxBackoff,
			Clock:          clock,
		},
	}

	seen := make(map[string]struct{}, len(declarations))
	for _, decl := range declarations {
		if _, dup := seen[decl.Name]; dup {
			return nil, fmt.Errorf("relay %q: %w", decl.Name, domain.ErrDuplicateRelayClient)
		}
		seen[decl.Name] = struct{}{}

		client, ok := resolver.ResolveClient(decl.Type)
		if !ok {
			return nil, fmt.Errorf("relay %q: %w: %q", decl.Name, domain.ErrUnknownRelayType, decl.Type)
		}
		if err := client.Initialize(decl.Options); err != nil {
			return nil, fmt.Errorf("relay %q: %w", decl.Name, err)
		}

		r.entries = append(r.entries, &relayEntry{
			name:    decl.Name,
			client:  client,
			breaker: r.newBreaker(decl.Name, threshold, delay),
		})
		r.metrics.SetAvailable(decl.Name, decl.Type, false)
	}

	return r, nil
}

func (r *Relay) newBreaker(name string, threshold uint, delay time.Duration) circuitbreaker.CircuitBreaker[any] {
	return circuitbreaker.NewBuilder[any]().
		WithFailureThreshold(threshold).
		WithDelay(delay).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Relay circuit breaker state changed",
				"relay", name,
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			r.metrics.CircuitState.WithLabelValues(name).Set(stateToFloat(e.NewState))
		}).
		Build()
}

func stateToFloat(state circuitbreaker.State) float64 {
	switch state {
	case circuitbreaker.ClosedState:
		return 0
	case circuitbreaker.HalfOpenState:
		return 1
	case circuitbreaker.OpenState:
		return 2
	default:
		return -1
	}
}

// Connect connects every client, retrying transient failures. Clients that stay
// down are left to the keep-alive driver; the joined failures are returned.
func (r *Relay) Connect(ctx context.Context) error {
	errs := r.each(func(e *relayEntry) error {
		return r.connect(ctx, e, r.policy)
	})
	return errors.Join(errs...)
}

func (r *Relay) connect(ctx context.Context, e *relayEntry, policy retry.Policy) error {
	policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		slog.WarnContext(ctx, "Relay connect failed, retrying",
			"relay", e.name,
			"type", e.client.Type(),
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
	}

	err := retry.DoVoid(ctx, policy, classifyConnectError, func() error {
		return e.client.Connect(ctx)
	})
	r.observeAvailability(e)

	if err != nil {
		r.metrics.Connects.WithLabelValues(e.name, e.client.Type(), "error").Inc()
		slog.ErrorContext(ctx, "Relay connect failed", "relay", e.name, "type", e.client.Type(), "error", err)
		return fmt.Errorf("relay %q: %w", e.name, err)
	}
	r.metrics.Connects.WithLabelValues(e.name, e.client.Type(), "ok").Inc()
	return nil
}

func classifyConnectError(err error) retry.Action {
	var cfgErr *domain.ConfigError
	switch {
	case errors.As(err, &cfgErr),
		errors.Is(err, domain.ErrRelayNotInitialized),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return retry.Stop
	default:
		return retry.Retry
	}
}

// Publish sends the event to every available client concurrently. Unavailable
// clients are skipped. A client whose breaker is open is not called and reports
// domain.ErrRelayCircuitOpen. With clients configured but none available the
// result is domain.ErrNoRelayAvailable.
func (r *Relay) Publish(ctx context.Context, listener string, event domain.Event) error {
	if len(r.entries) == 0 {
		return nil
	}

	var (
		mu        sync.Mutex
		attempted int
	)
	errs := r.each(func(e *relayEntry) error {
		if !e.client.IsAvailable() {
			r.metrics.Publishes.WithLabelValues(e.name, e.client.Type(), metrics.PublishUnavailable).Inc()
			return nil
		}
		mu.Lock()
		attempted++
		mu.Unlock()
		return r.publish(ctx, e, listener, event)
	})

	if attempted == 0 {
		slog.DebugContext(ctx, "No relay available, event dropped", "listener", listener, "event", event.Name())
		return domain.ErrNoRelayAvailable
	}
	return errors.Join(errs...)
}

func (r *Relay) publish(ctx context.Context, e *relayEntry, listener string, event domain.Event) error {
	if !e.breaker.TryAcquirePermit() {
		r.metrics.Publishes.WithLabelValues(e.name, e.client.Type(), metrics.PublishCircuitOpen).Inc()
		return fmt.Errorf("relay %q: %w", e.name, domain.ErrRelayCircuitOpen)
	}

	if err := e.client.Publish(ctx, listener, event); err != nil {
		e.breaker.RecordError(err)
		r.metrics.Publishes.WithLabelValues(e.name, e.client.Type(), metrics.PublishError).Inc()
		slog.WarnContext(ctx, "Relay publish failed",
			"relay", e.name,
			"listener", listener,
			"event", event.Name(),
			"error", err,
		)
		return fmt.Errorf("relay %q: %w", e.name, err)
	}

	e.breaker.RecordSuccess()
	r.metrics.Publishes.WithLabelValues(e.name, e.client.Type(), metrics.PublishOK).Inc()
	return nil
}

// KeepAlive keeps available clients alive and tries one reconnect on the others.
func (r *Relay) KeepAlive(ctx context.Context) {
	single := r.policy
	single.MaxAttempts = 1

	r.each(func(e *relayEntry) error {
		if !e.client.IsAvailable() {
			return r.connect(ctx, e, single)
		}

		err := e.client.KeepAlive(ctx)
		r.observeAvailability(e)
		if err != nil {
			r.metrics.KeepAlives.WithLabelValues(e.name, e.client.Type(), "error").Inc()
			slog.WarnContext(ctx, "Relay keep-alive failed", "relay", e.name, "type", e.client.Type(), "error", err)
			return err
		}
		r.metrics.KeepAlives.WithLabelValues(e.name, e.client.Type(), "ok").Inc()
		return nil
	})
}

// Disconnect closes every client.
func (r *Relay) Disconnect(ctx context.Context) error {
	errs := r.each(func(e *relayEntry) error {
		err := e.client.Disconnect(ctx)
		r.observeAvailability(e)
		if err != nil {
			return fmt.Errorf("relay %q: %w", e.name, err)
		}
		return nil
	})
	return errors.Join(errs...)
}

// Statuses reports every client in declaration order.
func (r *Relay) Statuses() []RelayStatus {
	out := make([]RelayStatus, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, RelayStatus{
			Name:      e.name,
			Type:      e.client.Type(),
			Available: e.client.IsAvailable(),
			Circuit:   e.breaker.State().String(),
		})
	}
	return out
}

// Configured reports whether any client is declared.
func (r *Relay) Configured() bool {
	return len(r.entries) > 0
}

// AnyAvailable reports whether at least one client can take events.
func (r *Relay) AnyAvailable() bool {
	for _, e := range r.entries {
		if e.client.IsAvailable() {
			return true
		}
	}
	return false
}

// Handlers returns the HTTP endpoints of clients that serve listeners directly.
func (r *Relay) Handlers() []NamedHandler {
	var out []NamedHandler
	for _, e := range r.entries {
		if h, ok := e.client.(interface{ Handler() http.Handler }); ok {
			out = append(out, NamedHandler{Name: e.name, Handler: h.Handler()})
		}
	}
	return out
}

func (r *Relay) observeAvailability(e *relayEntry) {
	r.metrics.SetAvailable(e.name, e.client.Type(), e.client.IsAvailable())
}

// each runs fn for every entry concurrently and returns the non-nil errors in declaration order.
func (r *Relay) each(fn func(e *relayEntry) error) []error {
	results := make([]error, len(r.entries))

	var wg sync.WaitGroup
	for i, e := range r.entries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = fn(e)
		}()
	}
	wg.Wait()

	errs := results[:0]
	for _, err := range results {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
