package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ylorant/HedgeBot-sub001/internal/domain"
	"github.com/ylorant/HedgeBot-sub001/internal/relay"
)

// Type is the registry tag of this adapter.
const Type = "redis"

const defaultTimeout = 5 * time.Second

// RelayClient publishes events on a Redis pub/sub channel.
type RelayClient struct {
	mu      sync.Mutex
	opts    *goredis.Options
	channel string
	timeout time.Duration
	rdb     *goredis.Client

	available atomic.Bool
}

func NewRelayClient() *RelayClient {
	return &RelayClient{}
}

// Factory registers the adapter under Type.
func Factory() relay.Factory {
	return relay.Factory{
		Type: Type,
		New:  func() domain.RelayClient { return NewRelayClient() },
	}
}

func (c *RelayClient) Type() string { return Type }

// Initialize reads "url" and "channel" (mandatory) and "timeout".
func (c *RelayClient) Initialize(cfg map[string]any) error {
	if err := relay.RequireKeys(Type, cfg, "url", "channel"); err != nil {
		return err
	}

	opts, err := goredis.ParseURL(relay.String(cfg, "url", ""))
	if err != nil {
		return fmt.Errorf("redis relay: failed to parse redis URL: %w", err)
	}
	timeout, err := relay.Duration(cfg, "timeout", defaultTimeout)
	if err != nil {
		return fmt.Errorf("redis relay: %w", err)
	}
	opts.DialTimeout = timeout
	opts.ReadTimeout = timeout
	opts.WriteTimeout = timeout

	c.mu.Lock()
	defer c.mu.Unlock()

	c.opts = opts
	c.channel = relay.String(cfg, "channel", "")
	c.timeout = timeout
	return nil
}

func (c *RelayClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.opts == nil {
		return domain.ErrRelayNotInitialized
	}
	if c.rdb != nil {
		return nil
	}

	rdb := goredis.NewClient(c.opts)
	pingCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("failed to ping redis at %s: %w", c.opts.Addr, err)
	}

	c.rdb = rdb
	c.available.Store(true)
	slog.Info("Redis relay connected", "addr", c.opts.Addr, "channel", c.channel)
	return nil
}

func (c *RelayClient) IsAvailable() bool {
	return c.available.Load()
}

// KeepAlive pings the server and drops the client when it does not answer.
func (c *RelayClient) KeepAlive(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rdb == nil {
		return domain.ErrRelayNotConnected
	}

	pingCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.rdb.Ping(pingCtx).Err(); err != nil {
		c.closeLocked()
		return fmt.Errorf("redis heartbeat: %w", err)
	}
	return nil
}

func (c *RelayClient) Publish(ctx context.Context, listener string, event domain.Event) error {
	c.mu.Lock()
	rdb, channel := c.rdb, c.channel
	c.mu.Unlock()

	if rdb == nil {
		return domain.ErrRelayNotConnected
	}

	payload, err := json.Marshal(domain.NewRelayMessage(listener, event))
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	if err := rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish on %s: %w", channel, err)
	}
	return nil
}

func (c *RelayClient) Disconnect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeLocked()
	return nil
}

func (c *RelayClient) closeLocked() {
	if c.rdb == nil {
		return
	}
	_ = c.rdb.Close()
	c.rdb = nil
	c.available.Store(false)
}
