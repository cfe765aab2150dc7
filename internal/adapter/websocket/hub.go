package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/centrifugal/centrifuge"
	"github.com/google/uuid"

	"github.com/ylorant/HedgeBot-sub001/internal/adapter/metrics"
	"github.com/ylorant/HedgeBot-sub001/internal/domain"
	"github.com/ylorant/HedgeBot-sub001/internal/relay"
)

// Type is the registry tag of this adapter.
const Type = "centrifuge"

// HubOptions carries process-level settings shared by every hub instance.
type HubOptions struct {
	LogLevel    string
	CheckOrigin func(r *http.Request) bool
	Metrics     *metrics.HubMetrics
}

// Hub is a relay client that serves listeners itself: it runs an in-process
// Centrifuge node and publishes events to a single channel on it.
type Hub struct {
	opts HubOptions

	mu      sync.Mutex
	channel string
	node    *centrifuge.Node
	handler http.Handler

	available atomic.Bool
}

func NewHub(opts HubOptions) *Hub {
	return &Hub{opts: opts}
}

// Factory registers the adapter under Type.
func Factory(opts HubOptions) relay.Factory {
	return relay.Factory{
		Type: Type,
		New:  func() domain.RelayClient { return NewHub(opts) },
	}
}

func (h *Hub) Type() string { return Type }

// Initialize reads "channel" (mandatory).
func (h *Hub) Initialize(cfg map[string]any) error {
	if err := relay.RequireKeys(Type, cfg, "channel"); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.channel = relay.String(cfg, "channel", "")
	return nil
}

// Connect starts a fresh node. Listeners can connect through Handler from then on.
func (h *Hub) Connect(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.channel == "" {
		return domain.ErrRelayNotInitialized
	}
	if h.node != nil {
		return nil
	}

	node, err := NewNode(h.channel, h.opts.Metrics, h.opts.LogLevel)
	if err != nil {
		return err
	}
	if err := node.Run(); err != nil {
		return fmt.Errorf("run centrifuge node: %w", err)
	}

	wsHandler := centrifuge.NewWebsocketHandler(node, centrifuge.WebsocketConfig{
		CheckOrigin: h.opts.CheckOrigin,
	})

	h.node = node
	h.handler = anonymousCredentials(wsHandler)
	h.available.Store(true)

	slog.Info("Centrifuge hub started", "channel", h.channel)
	return nil
}

func (h *Hub) IsAvailable() bool {
	return h.available.Load()
}

// KeepAlive has nothing to refresh: the node lives in-process.
func (h *Hub) KeepAlive(context.Context) error {
	if !h.available.Load() {
		return domain.ErrRelayNotConnected
	}
	return nil
}

func (h *Hub) Publish(_ context.Context, listener string, event domain.Event) error {
	h.mu.Lock()
	node, channel := h.node, h.channel
	h.mu.Unlock()

	if node == nil {
		return domain.ErrRelayNotConnected
	}

	data, err := json.Marshal(domain.NewRelayMessage(listener, event))
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	if _, err := node.Publish(channel, data); err != nil {
		return fmt.Errorf("publish to channel %s: %w", channel, err)
	}

	if h.opts.Metrics != nil {
		h.opts.Metrics.MessagesPublished.Inc()
	}
	return nil
}

// Disconnect shuts the node down, closing every listener connection.
func (h *Hub) Disconnect(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.node == nil {
		return nil
	}

	node := h.node
	h.node = nil
	h.handler = nil
	h.available.Store(false)

	if err := node.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown centrifuge node: %w", err)
	}
	return nil
}

// Handler serves listener WebSocket connections on the running node.
// It answers 503 while the hub is disconnected.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		handler := h.handler
		h.mu.Unlock()

		if handler == nil {
			http.Error(w, "hub not running", http.StatusServiceUnavailable)
			return
		}
		handler.ServeHTTP(w, r)
	})
}

// anonymousCredentials gives every listener a random identity.
func anonymousCredentials(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cred := &centrifuge.Credentials{UserID: uuid.NewString()}
		next.ServeHTTP(w, r.WithContext(centrifuge.SetCredentials(r.Context(), cred)))
	})
}
