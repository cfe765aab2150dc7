package mercure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ylorant/HedgeBot-sub001/internal/domain"
	"github.com/ylorant/HedgeBot-sub001/internal/platform/version"
	"github.com/ylorant/HedgeBot-sub001/internal/relay"
)

// Type is the registry tag of this adapter.
const Type = "mercure"

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 512
)

// publisherClaims grants the bearer the right to publish on every topic.
type publisherClaims struct {
	Mercure mercureGrant `json:"mercure"`
	jwt.RegisteredClaims
}

type mercureGrant struct {
	Publish []string `json:"publish"`
}

// Client publishes to a Mercure hub. Every publish is an independent HTTP request,
// so there is no connection to keep alive.
type Client struct {
	httpClient *http.Client

	mu     sync.RWMutex
	hubURL string
	topic  string
	token  string
}

func New() *Client {
	return &Client{}
}

// Factory registers the adapter under Type.
func Factory() relay.Factory {
	return relay.Factory{
		Type: Type,
		New:  func() domain.RelayClient { return New() },
	}
}

func (c *Client) Type() string { return Type }

// Initialize reads "hubUrl", "topic" and "jwtKey" (all mandatory) and "timeout",
// then signs the publisher token once.
func (c *Client) Initialize(cfg map[string]any) error {
	if err := relay.RequireKeys(Type, cfg, "hubUrl", "topic", "jwtKey"); err != nil {
		return err
	}

	hubURL := relay.String(cfg, "hubUrl", "")
	if _, err := url.ParseRequestURI(hubURL); err != nil {
		return fmt.Errorf("mercure relay: invalid hubUrl: %w", err)
	}
	timeout, err := relay.Duration(cfg, "timeout", defaultTimeout)
	if err != nil {
		return fmt.Errorf("mercure relay: %w", err)
	}

	token, err := signPublisherToken(relay.String(cfg, "jwtKey", ""))
	if err != nil {
		return fmt.Errorf("mercure relay: sign token: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.hubURL = hubURL
	c.topic = relay.String(cfg, "topic", "")
	c.token = token
	c.httpClient = &http.Client{Timeout: timeout}
	return nil
}

func (c *Client) Connect(context.Context) error { return nil }

func (c *Client) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

func (c *Client) KeepAlive(context.Context) error { return nil }

func (c *Client) Disconnect(context.Context) error { return nil }

// Publish posts one update carrying {listener, event} to the configured topic.
func (c *Client) Publish(ctx context.Context, listener string, event domain.Event) error {
	c.mu.RLock()
	hubURL, topic, token, httpClient := c.hubURL, c.topic, c.token, c.httpClient
	c.mu.RUnlock()

	if token == "" {
		return domain.ErrRelayNotInitialized
	}

	data, err := json.Marshal(domain.NewRelayMessage(listener, event))
	if err != nil {
		return fmt.Errorf("encode update: %w", err)
	}

	form := url.Values{}
	form.Set("topic", topic)
	form.Set("data", string(data))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hubURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute publish request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &domain.PublishError{
			ClientType: Type,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func signPublisherToken(key string) (string, error) {
	claims := publisherClaims{
		Mercure: mercureGrant{Publish: []string{"*"}},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
}
