package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ylorant/HedgeBot-sub001/internal/domain"
	"github.com/ylorant/HedgeBot-sub001/internal/relay"
)

// Type is the registry tag of this adapter.
const Type = "pgnotify"

const (
	defaultTimeout = 5 * time.Second

	// PostgreSQL rejects NOTIFY payloads of 8000 bytes or more.
	maxNotifyPayload = 7999
)

// NotifyClient publishes events with NOTIFY on a PostgreSQL channel.
type NotifyClient struct {
	mu      sync.Mutex
	poolCfg *pgxpool.Config
	channel string
	timeout time.Duration
	pool    *pgxpool.Pool

	available atomic.Bool
}

func NewNotifyClient() *NotifyClient {
	return &NotifyClient{}
}

// Factory registers the adapter under Type.
func Factory() relay.Factory {
	return relay.Factory{
		Type: Type,
		New:  func() domain.RelayClient { return NewNotifyClient() },
	}
}

func (c *NotifyClient) Type() string { return Type }

// Initialize reads "dsn" and "channel" (mandatory) and "timeout".
func (c *NotifyClient) Initialize(cfg map[string]any) error {
	if err := relay.RequireKeys(Type, cfg, "dsn", "channel"); err != nil {
		return err
	}

	dsn := relay.String(cfg, "dsn", "")
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("pgnotify relay: failed to parse database URL: %w", err)
	}
	timeout, err := relay.Duration(cfg, "timeout", defaultTimeout)
	if err != nil {
		return fmt.Errorf("pgnotify relay: %w", err)
	}
	poolCfg.ConnConfig.ConnectTimeout = timeout
	poolCfg.MaxConns = 2

	slog.Debug("pgnotify relay SSL mode", "sslmode", extractSSLMode(dsn))

	c.mu.Lock()
	defer c.mu.Unlock()

	c.poolCfg = poolCfg
	c.channel = relay.String(cfg, "channel", "")
	c.timeout = timeout
	return nil
}

func (c *NotifyClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.poolCfg == nil {
		return domain.ErrRelayNotInitialized
	}
	if c.pool != nil {
		return nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, c.poolCfg.Copy())
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	c.pool = pool
	c.available.Store(true)
	slog.Info("pgnotify relay connected", "host", c.poolCfg.ConnConfig.Host, "channel", c.channel)
	return nil
}

func (c *NotifyClient) IsAvailable() bool {
	return c.available.Load()
}

// KeepAlive pings the database and drops the pool when it does not answer.
func (c *NotifyClient) KeepAlive(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pool == nil {
		return domain.ErrRelayNotConnected
	}

	pingCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.pool.Ping(pingCtx); err != nil {
		c.closeLocked()
		return fmt.Errorf("database heartbeat: %w", err)
	}
	return nil
}

func (c *NotifyClient) Publish(ctx context.Context, listener string, event domain.Event) error {
	c.mu.Lock()
	pool, channel, timeout := c.pool, c.channel, c.timeout
	c.mu.Unlock()

	if pool == nil {
		return domain.ErrRelayNotConnected
	}

	payload, err := json.Marshal(domain.NewRelayMessage(listener, event))
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if len(payload) > maxNotifyPayload {
		return fmt.Errorf("event %q: payload of %d bytes exceeds the NOTIFY limit", event.Name(), len(payload))
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := pool.Exec(execCtx, "SELECT pg_notify($1, $2)", channel, string(payload)); err != nil {
		return fmt.Errorf("failed to notify %s: %w", channel, err)
	}
	return nil
}

func (c *NotifyClient) Disconnect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeLocked()
	return nil
}

func (c *NotifyClient) closeLocked() {
	if c.pool == nil {
		return
	}
	c.pool.Close()
	c.pool = nil
	c.available.Store(false)
}

func extractSSLMode(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "unknown"
	}
	mode := strings.ToLower(u.Query().Get("sslmode"))
	if mode == "" {
		return "prefer (default)"
	}
	return mode
}
