package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/neurobridge/support-backend/internal/platform/logger"
)

// Publisher forwards a broadcast message to other processes. SSEHub stays
// ignorant of the transport (Redis, or nothing) behind it; see
// internal/realtime/bus for the concrete implementation, attached via
// AttachPublisher only when a multi-instance deployment configures one.
type Publisher interface {
	Publish(ctx context.Context, msg SSEMessage) error
}

// SSEEvent names the server->client and bridge event types described by the
// real-time fan-out contract: per-room message delivery, typing/presence,
// and the external agent bridge mirror events.
type SSEEvent string

const (
	SSEEventRoomJoined            SSEEvent = "room_joined"
	SSEEventNewMessage            SSEEvent = "new_message"
	SSEEventUserTyping            SSEEvent = "user_typing"
	SSEEventSessionUpdate         SSEEvent = "session_update"
	SSEEventActiveConversations   SSEEvent = "active-conversations"
	SSEEventAgentMessage          SSEEvent = "agent-message"
	SSEEventWidgetMessage         SSEEvent = "widget-message"
	SSEEventWidgetMessageReceived SSEEvent = "widget_message_received"
	SSEEventAgentAssigned         SSEEvent = "agent_assigned"

	// retained for package-level tests exercised during development; not part
	// of the public real-time contract.
	SSEEventJobCreated  SSEEvent = "job_created"
	SSEEventJobProgress SSEEvent = "job_progress"
	SSEEventJobDone     SSEEvent = "job_done"
)

// SSEMessage is the envelope published on a room channel. Channel follows the
// room_<room_id>_<tenant_id> addressing scheme.
type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// SSEHub is a per-process room pub/sub. Delivery is best-effort per
// subscriber: a slow client drops messages rather than blocking publishers
// or the room's durable store.
type SSEHub struct {
	mu            sync.RWMutex
	logger        *logger.Logger
	subscriptions map[string]map[*SSEClient]bool
	publisher     Publisher
}

func NewSSEHub(log *logger.Logger) *SSEHub {
	return &SSEHub{
		logger:        log.With("component", "SSEHub"),
		subscriptions: make(map[string]map[*SSEClient]bool),
	}
}

// AttachPublisher wires a cross-instance transport into the hub so every
// Broadcast also reaches subscribers held by other processes. Call once
// during startup; nil detaches (the default, single-instance behavior).
func (hub *SSEHub) AttachPublisher(p Publisher) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.publisher = p
}

func (hub *SSEHub) NewSSEClient(userID uuid.UUID) *SSEClient {
	id := uuid.New()
	return &SSEClient{
		ID:       id,
		UserID:   userID,
		Channels: make(map[string]bool),
		Outbound: make(chan SSEMessage, 16),
		done:     make(chan struct{}),
		Logger:   hub.logger.With("clientID", id),
	}
}

// RoomChannel builds the room_<room_id>_<tenant_id> channel name used for
// subscription and publishing.
func RoomChannel(roomID, tenantID string) string {
	return fmt.Sprintf("room_%s_%s", roomID, tenantID)
}

func (hub *SSEHub) AddChannel(client *SSEClient, channel string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}

	client.Channels[channel] = true

	clients, exists := hub.subscriptions[channel]
	if !exists {
		clients = make(map[*SSEClient]bool)
		hub.subscriptions[channel] = clients
	}
	clients[client] = true

	hub.logger.Debug("sse client subscribed", "clientID", client.ID, "channel", channel)
}

func (hub *SSEHub) RemoveChannel(client *SSEClient, channel string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}
	delete(client.Channels, channel)

	if subMap, ok := hub.subscriptions[channel]; ok {
		delete(subMap, client)
		if len(subMap) == 0 {
			delete(hub.subscriptions, channel)
		}
	}
	hub.logger.Debug("sse client unsubscribed", "clientID", client.ID, "channel", channel)
}

func (hub *SSEHub) RemoveClient(client *SSEClient) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	for ch := range client.Channels {
		if subMap, ok := hub.subscriptions[ch]; ok {
			delete(subMap, client)
			if len(subMap) == 0 {
				delete(hub.subscriptions, ch)
			}
		}
	}
	client.Channels = make(map[string]bool)
	hub.logger.Debug("sse client unsubscribed from all channels", "clientID", client.ID)
}

// Broadcast delivers msg to every local subscriber of msg.Channel, then
// forwards it to the attached Publisher (if any) so other instances' local
// subscribers receive it too. A subscriber whose outbound buffer is full has
// the message dropped for it; the room's durable history is unaffected.
func (hub *SSEHub) Broadcast(msg SSEMessage) {
	hub.deliverLocal(msg)

	hub.mu.RLock()
	publisher := hub.publisher
	hub.mu.RUnlock()
	if publisher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := publisher.Publish(ctx, msg); err != nil {
			hub.logger.Warn("failed to publish SSE message to bus", "channel", msg.Channel, "error", err)
		}
	}()
}

// DeliverRemote redelivers a message received from the attached Publisher's
// forwarder to this process's local subscribers only. It never re-publishes,
// which would otherwise loop a message across every instance forever.
func (hub *SSEHub) DeliverRemote(msg SSEMessage) {
	hub.deliverLocal(msg)
}

func (hub *SSEHub) deliverLocal(msg SSEMessage) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if msg.Channel == "" {
		return
	}
	clientsMap, ok := hub.subscriptions[msg.Channel]
	if !ok {
		return
	}
	for c := range clientsMap {
		select {
		case c.Outbound <- msg:
		default:
			hub.logger.Warn("dropping SSE message, outbound buffer full", "clientID", c.ID, "channel", msg.Channel)
		}
	}
}

// Subscribers reports how many clients are currently subscribed to channel,
// used by presence/session_update events.
func (hub *SSEHub) Subscribers(channel string) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.subscriptions[channel])
}

func (hub *SSEHub) ServeHTTP(w http.ResponseWriter, r *http.Request, client *SSEClient) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ctx := r.Context()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			hub.logger.Debug("sse client context done", "clientID", client.ID, "err", ctx.Err())
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case msg, ok := <-client.Outbound:
			if !ok {
				return
			}
			jsonBytes, err := json.Marshal(msg)
			if err != nil {
				hub.logger.Warn("failed to marshal SSE message", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, jsonBytes)
			flusher.Flush()
		}
	}
}

func (hub *SSEHub) CloseClient(client *SSEClient) {
	hub.RemoveClient(client)
	close(client.done)
	close(client.Outbound)
}
