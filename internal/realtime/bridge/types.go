// Package bridge implements the external-agent bridge named in spec §6 and
// §4.7: a second channel, independent of the in-process SSE hub, that
// mirrors customer/AI messages to an external human-agent backend and
// relays that backend's replies back in. Grounded on the teacher's
// gorilla/websocket usage in its TTS streaming client
// (tts/cosy_stream.go) — the same dial/read-loop/reconnect shape, applied
// to a JSON event protocol instead of an audio stream.
package bridge

import "time"

// OutboundEvent names events this process sends to the external backend.
type OutboundEvent string

const (
	EventWidgetMessage OutboundEvent = "widget_message"
	EventAgentAssigned OutboundEvent = "agent_assigned"
)

// InboundEvent names events the external backend sends back.
type InboundEvent string

const (
	EventWidgetMessageReceived InboundEvent = "widget_message_received"
	EventAgentAssignedInbound  InboundEvent = "agent_assigned"
)

// WidgetMessagePayload is the enriched shape §6 specifies for mirrored
// customer/AI messages.
type WidgetMessagePayload struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	ClientID       string         `json:"client_id"`
	Content        string         `json:"content"`
	SenderType     string         `json:"sender_type"`
	CreatedAt      time.Time      `json:"created_at"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Name           string         `json:"name,omitempty"`
	Email          string         `json:"email,omitempty"`
	Topic          string         `json:"topic,omitempty"`
	Status         string         `json:"status,omitempty"`
	StatusColor    string         `json:"statusColor,omitempty"`
	LastMessage    string         `json:"lastMessage,omitempty"`
	Time           string         `json:"time,omitempty"`
	Confidence     *int           `json:"confidence,omitempty"`
	Takeover       bool           `json:"takeover"`
}

// AgentAssignedPayload is sent outbound on assignment and parsed inbound
// when the external backend performs its own assignment.
type AgentAssignedPayload struct {
	AgentEmail    string `json:"agentEmail"`
	AgentName     string `json:"agentName"`
	RoomID        string `json:"roomId"`
	ClientID      string `json:"clientId"`
	CustomerEmail string `json:"customerEmail"`
}

// frame is the wire envelope for both directions.
type frame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// InboundHandler receives parsed inbound frames; the Conversation Core and
// Agent Directory register handlers here to persist and fan out what the
// external backend reports.
type InboundHandler interface {
	OnWidgetMessageReceived(payload WidgetMessagePayload)
	OnAgentAssigned(payload AgentAssignedPayload)
}
