package domain

import (
	"context"
	"fmt"
	"strings"
)

// RelayClient is a transport adapter pushing events to external real-time listeners.
//
// Lifecycle: constructed empty, Initialize (fails on missing mandatory keys), Connect,
// any number of Publish/KeepAlive calls, Disconnect. Connect after Disconnect is legal.
// Publish and KeepAlive may be called concurrently on the same instance.
type RelayClient interface {
	// Type returns the registry tag of the adapter ("socketio", "mercure", ...).
	Type() string
	Initialize(cfg map[string]any) error
	Connect(ctx context.Context) error
	// IsAvailable is a pure state query. It never blocks and never probes the network.
	IsAvailable() bool
	KeepAlive(ctx context.Context) error
	Publish(ctx context.Context, listener string, event Event) error
	Disconnect(ctx context.Context) error
}

// RelayMessage is the body every adapter puts on the wire.
type RelayMessage struct {
	Listener string         `json:"listener"`
	Event    map[string]any `json:"event"`
}

func NewRelayMessage(listener string, event Event) RelayMessage {
	return RelayMessage{Listener: listener, Event: event.ToArray()}
}

// ConfigError reports mandatory adapter configuration keys that are absent.
// It is fatal to the adapter instance: callers must not proceed to Connect.
type ConfigError struct {
	ClientType string
	Missing    []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s relay: missing mandatory config keys: %s", e.ClientType, strings.Join(e.Missing, ", "))
}

// PublishError reports a publish the remote end answered but refused.
type PublishError struct {
	ClientType string
	StatusCode int
	Body       string
}

func (e *PublishError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s relay: publish rejected with status %d", e.ClientType, e.StatusCode)
	}
	return fmt.Sprintf("%s relay: publish rejected with status %d: %s", e.ClientType, e.StatusCode, e.Body)
}
