package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	supportrepo "github.com/neurobridge/support-backend/internal/data/repos/support"
	domain "github.com/neurobridge/support-backend/internal/domain/support"
	"github.com/neurobridge/support-backend/internal/pkg/dbctx"
	"github.com/neurobridge/support-backend/internal/platform/logger"
	"github.com/neurobridge/support-backend/internal/realtime"
	"github.com/neurobridge/support-backend/internal/realtime/bridge"
)

// bridgeInboundHandler persists what the external agent backend reports back
// over the websocket bridge and fans it out on the in-process SSE hub, the
// mirror image of conversation.Service.mirrorToBridge on the outbound side.
type bridgeInboundHandler struct {
	log      *logger.Logger
	rooms    supportrepo.RoomRepo
	messages supportrepo.MessageRepo
	agents   supportrepo.AgentRepo
	hub      *realtime.SSEHub
}

func newBridgeInboundHandler(log *logger.Logger, rooms supportrepo.RoomRepo, messages supportrepo.MessageRepo, agents supportrepo.AgentRepo, hub *realtime.SSEHub) bridge.InboundHandler {
	return &bridgeInboundHandler{
		log:      log.With("component", "BridgeInboundHandler"),
		rooms:    rooms,
		messages: messages,
		agents:   agents,
		hub:      hub,
	}
}

// OnWidgetMessageReceived persists a human agent's reply, sent from the
// external backend rather than through our own /chat/agent/message handler,
// and broadcasts it exactly as conversation.Service does for AI turns.
func (h *bridgeInboundHandler) OnWidgetMessageReceived(payload bridge.WidgetMessagePayload) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	roomID, err := uuid.Parse(payload.ConversationID)
	if err != nil {
		h.log.Warn("bridge inbound widget message has invalid room id", "conversation_id", payload.ConversationID)
		return
	}

	msg := &domain.Message{
		RoomID:     roomID,
		TenantID:   payload.ClientID,
		SenderType: domain.SenderTypeAgent,
		Content:    payload.Content,
		CreatedAt:  time.Now().UTC(),
	}
	created, err := h.messages.Create(dbctx.Context{Ctx: ctx}, msg)
	if err != nil {
		h.log.Warn("failed to persist bridge inbound message", "room_id", roomID, "error", err)
		return
	}

	h.hub.Broadcast(realtime.SSEMessage{
		Channel: realtime.RoomChannel(roomID.String(), payload.ClientID),
		Event:   realtime.SSEEventNewMessage,
		Data:    created,
	})
}

// OnAgentAssigned records an assignment the external backend performed on
// its own, so our copy of the room stays consistent with the bridge's view.
func (h *bridgeInboundHandler) OnAgentAssigned(payload bridge.AgentAssignedPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	roomID, err := uuid.Parse(payload.RoomID)
	if err != nil {
		h.log.Warn("bridge inbound agent_assigned has invalid room id", "room_id", payload.RoomID)
		return
	}

	agent, err := h.agents.GetOrCreateExternal(dbctx.Context{Ctx: ctx}, payload.ClientID, payload.AgentEmail, payload.AgentName)
	if err != nil {
		h.log.Warn("failed to resolve external agent for bridge assignment", "error", err)
		return
	}

	source := domain.AgentSourceExternal
	if err := h.rooms.UpdateFields(dbctx.Context{Ctx: ctx}, roomID, map[string]interface{}{
		"assigned_agent_id": agent.ID,
		"agent_source":      source,
	}); err != nil {
		h.log.Warn("failed to apply bridge assignment to room", "room_id", roomID, "error", err)
		return
	}

	h.hub.Broadcast(realtime.SSEMessage{
		Channel: realtime.RoomChannel(payload.RoomID, payload.ClientID),
		Event:   realtime.SSEEventAgentAssigned,
		Data:    map[string]any{"agentEmail": agent.Email, "agentName": agent.Name},
	})
}
