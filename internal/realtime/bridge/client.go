package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/neurobridge/support-backend/internal/platform/envutil"
	"github.com/neurobridge/support-backend/internal/platform/logger"
)

// Config carries the bridge's connection settings.
type Config struct {
	URL           string
	APIKey        string
	DialTimeout   time.Duration
	ReconnectWait time.Duration
}

func ResolveConfigFromEnv() Config {
	return Config{
		URL:           envString("EXTERNAL_AGENT_BRIDGE_URL"),
		APIKey:        envString("EXTERNAL_AGENT_API_KEY"),
		DialTimeout:   envutil.Duration("EXTERNAL_AGENT_BRIDGE_DIAL_TIMEOUT", 8*time.Second),
		ReconnectWait: envutil.Duration("EXTERNAL_AGENT_BRIDGE_RECONNECT_WAIT", 3*time.Second),
	}
}

func envString(name string) string { return strings.TrimSpace(os.Getenv(name)) }

// Client maintains a persistent websocket connection to the external agent
// backend, sending widget_message/agent_assigned frames out and dispatching
// widget_message_received/agent_assigned frames to an InboundHandler. If
// Config.URL is empty the bridge is disabled and every Send call is a no-op
// — enrichment is optional infrastructure, not a hard dependency.
type Client struct {
	log     *logger.Logger
	cfg     Config
	handler InboundHandler

	mu   sync.Mutex
	conn *websocket.Conn
}

func New(log *logger.Logger, cfg Config, handler InboundHandler) *Client {
	return &Client{
		log:     log.With("component", "ExternalAgentBridge"),
		cfg:     cfg,
		handler: handler,
	}
}

func (c *Client) Enabled() bool { return c.cfg.URL != "" }

// Run dials the bridge and reconnects with backoff until ctx is cancelled.
// It returns nil immediately if the bridge is disabled.
func (c *Client) Run(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := c.dial(ctx)
		if err != nil {
			c.log.Warn("bridge dial failed, retrying", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.cfg.ReconnectWait):
				continue
			}
		}
		c.setConn(conn)
		c.readLoop(ctx, conn)
		c.setConn(nil)
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if c.cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.cfg.DialTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		return nil, fmt.Errorf("external agent bridge dial: %w", err)
	}
	return conn, nil
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = conn
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()
	for {
		if ctx.Err() != nil {
			return
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.log.Warn("bridge read failed, reconnecting", "error", err)
			return
		}
		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			c.log.Warn("bad bridge frame", "error", err)
			continue
		}
		c.dispatch(f)
	}
}

func (c *Client) dispatch(f frame) {
	if c.handler == nil {
		return
	}
	raw, err := json.Marshal(f.Data)
	if err != nil {
		c.log.Warn("bad bridge frame payload", "error", err)
		return
	}
	switch InboundEvent(f.Event) {
	case EventWidgetMessageReceived:
		var payload WidgetMessagePayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			c.log.Warn("bad widget_message_received payload", "error", err)
			return
		}
		c.handler.OnWidgetMessageReceived(payload)
	case EventAgentAssignedInbound:
		var payload AgentAssignedPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			c.log.Warn("bad agent_assigned payload", "error", err)
			return
		}
		c.handler.OnAgentAssigned(payload)
	default:
		c.log.Debug("ignoring unknown bridge event", "event", f.Event)
	}
}

// SendWidgetMessage mirrors a customer/AI message outbound. It is a no-op
// (not an error) when the bridge is disabled or momentarily disconnected —
// the bridge is best-effort enrichment, never a blocking dependency of the
// Conversation Core.
func (c *Client) SendWidgetMessage(payload WidgetMessagePayload) error {
	return c.send(frame{Event: string(EventWidgetMessage), Data: payload})
}

// SendAgentAssigned notifies the external backend of a local assignment.
func (c *Client) SendAgentAssigned(payload AgentAssignedPayload) error {
	return c.send(frame{Event: string(EventAgentAssigned), Data: payload})
}

func (c *Client) send(f frame) error {
	if !c.Enabled() {
		return nil
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		c.log.Debug("bridge not connected, dropping outbound frame", "event", f.Event)
		return nil
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		c.log.Warn("bridge write failed", "error", err)
		return err
	}
	return nil
}
