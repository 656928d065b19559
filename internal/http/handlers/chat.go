package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	supportrepo "github.com/neurobridge/support-backend/internal/data/repos/support"
	domain "github.com/neurobridge/support-backend/internal/domain/support"
	"github.com/neurobridge/support-backend/internal/http/response"
	"github.com/neurobridge/support-backend/internal/modules/agents"
	"github.com/neurobridge/support-backend/internal/modules/conversation"
	"github.com/neurobridge/support-backend/internal/pkg/dbctx"
	"github.com/neurobridge/support-backend/internal/platform/logger"
)

// ChatHandler implements the public chat-widget surface. clientId is used
// throughout as the tenant identifier: this deployment has no separate
// "clients" directory behind clientId, so the widget's public client
// identifier and the tenant_id a room belongs to are the same string — a
// deliberate simplification recorded in the grounding ledger rather than an
// unspecified products/clients table invented beyond what the spec names.
type ChatHandler struct {
	log    *logger.Logger
	rooms  supportrepo.RoomRepo
	msgs   supportrepo.MessageRepo
	conv   *conversation.Service
	agents *agents.Service
}

func NewChatHandler(log *logger.Logger, rooms supportrepo.RoomRepo, msgs supportrepo.MessageRepo, conv *conversation.Service, agentSvc *agents.Service) *ChatHandler {
	return &ChatHandler{log: log.With("handler", "ChatHandler"), rooms: rooms, msgs: msgs, conv: conv, agents: agentSvc}
}

type sessionRequest struct {
	ClientID     string `json:"clientId" binding:"required"`
	SessionToken string `json:"sessionToken"`
	VisitorID    string `json:"visitorId"`
	RoomID       string `json:"roomId"`
}

// Session handles POST /chat/session — resolve or create a room for this
// visitor, returning its recent history.
func (h *ChatHandler) Session(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, err, "")
		return
	}
	tenantID := req.ClientID
	ctx := c.Request.Context()

	room, isNew, err := h.resolveRoom(ctx, tenantID, req)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, err, "")
		return
	}

	messages, err := h.msgs.ListAscending(dbctx.Context{Ctx: ctx}, room.ID, 50)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, err, "")
		return
	}

	response.RespondOK(c, gin.H{
		"roomId":       room.ID,
		"messages":     messages,
		"isNewSession": isNew,
		"sessionToken": room.SessionToken,
		"visitorId":    room.VisitorID,
	})
}

// resolveRoom finds an existing room by roomId, then sessionToken, then the
// visitor's current active room, in that priority order, creating a fresh
// one only if none match.
func (h *ChatHandler) resolveRoom(ctx context.Context, tenantID string, req sessionRequest) (*domain.Room, bool, error) {
	dbc := dbctx.Context{Ctx: ctx}

	if req.RoomID != "" {
		if id, err := uuid.Parse(req.RoomID); err == nil {
			if room, err := h.rooms.GetByID(dbc, tenantID, id); err == nil {
				return room, false, nil
			}
		}
	}
	if req.SessionToken != "" {
		if room, err := h.rooms.GetBySessionToken(dbc, tenantID, req.SessionToken); err == nil {
			return room, false, nil
		}
	}
	visitorID := req.VisitorID
	if visitorID == "" {
		visitorID = uuid.New().String()
	}
	if room, err := h.rooms.GetActiveByVisitor(dbc, tenantID, visitorID); err == nil {
		return room, false, nil
	}

	sessionToken := req.SessionToken
	if sessionToken == "" {
		sessionToken = uuid.New().String()
	}
	now := time.Now().UTC()
	room := &domain.Room{
		TenantID:       tenantID,
		SessionToken:   sessionToken,
		VisitorID:      visitorID,
		Status:         domain.RoomStatusActive,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	created, err := h.rooms.Create(dbc, room)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

type messageRequest struct {
	ClientID string `json:"clientId" binding:"required"`
	RoomID   string `json:"roomId" binding:"required"`
	Content  string `json:"content" binding:"required"`
}

// Message handles POST /chat/message.
func (h *ChatHandler) Message(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, err, "")
		return
	}
	roomID, err := uuid.Parse(req.RoomID)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid roomId"), "roomId")
		return
	}

	result, err := h.conv.ProcessMessage(c.Request.Context(), req.ClientID, roomID, req.ClientID, req.Content)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, err, "")
		return
	}

	if result.Handover != nil {
		response.RespondOK(c, gin.H{
			"handover":      true,
			"reason":        result.Handover.Reason,
			"assignedAgent": result.Handover.AssignedAgent,
		})
		return
	}
	response.RespondOK(c, gin.H{
		"message": gin.H{"id": result.CustomerMessageID, "content": result.AIText},
		"sources": result.Sources,
	})
}

// History handles GET /chat/history/:roomId?clientId&limit.
func (h *ChatHandler) History(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("roomId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid roomId"), "roomId")
		return
	}
	limit := queryInt(c, "limit", 50)
	messages, err := h.msgs.ListAscending(dbctx.Context{Ctx: c.Request.Context()}, roomID, limit)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, err, "")
		return
	}
	response.RespondOK(c, gin.H{"messages": messages})
}

// Conversations handles GET /chat/conversations/:clientId?visitorId.
func (h *ChatHandler) Conversations(c *gin.Context) {
	tenantID := c.Param("clientId")
	visitorID := c.Query("visitorId")
	ctx := c.Request.Context()

	rooms, err := h.rooms.ListByClient(dbctx.Context{Ctx: ctx}, tenantID, visitorID, 50)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, err, "")
		return
	}

	summaries := make([]gin.H, 0, len(rooms))
	for _, room := range rooms {
		recent, err := h.msgs.ListRecent(dbctx.Context{Ctx: ctx}, room.ID, 1)
		lastMessage := ""
		if err == nil && len(recent) > 0 {
			lastMessage = recent[0].Content
		}
		summaries = append(summaries, gin.H{
			"roomId":        room.ID,
			"startedAt":     room.CreatedAt,
			"lastMessage":   lastMessage,
			"lastMessageAt": room.LastActivityAt,
		})
	}
	response.RespondOK(c, gin.H{"conversations": summaries})
}

type roomActionRequest struct {
	ClientID string `json:"clientId" binding:"required"`
	RoomID   string `json:"roomId" binding:"required"`
}

// Escalate handles POST /chat/escalate.
func (h *ChatHandler) Escalate(c *gin.Context) {
	var req roomActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, err, "")
		return
	}
	roomID, err := uuid.Parse(req.RoomID)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid roomId"), "roomId")
		return
	}
	assignment, err := h.agents.Assign(c.Request.Context(), req.ClientID, roomID, agents.Filters{})
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, err, "")
		return
	}
	if assignment == nil {
		if err := h.agents.Enqueue(c.Request.Context(), req.ClientID, roomID, domain.QueuePriorityNormal, ""); err != nil {
			response.RespondError(c, http.StatusInternalServerError, err, "")
			return
		}
		response.RespondOK(c, gin.H{"assigned": false, "queued": true})
		return
	}
	response.RespondOK(c, gin.H{"assigned": true, "agent": assignment.Agent, "message": assignment.Message})
}

// Close handles POST /chat/close.
func (h *ChatHandler) Close(c *gin.Context) {
	var req roomActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, err, "")
		return
	}
	roomID, err := uuid.Parse(req.RoomID)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid roomId"), "roomId")
		return
	}
	now := time.Now().UTC()
	if err := h.rooms.UpdateFields(dbctx.Context{Ctx: c.Request.Context()}, roomID, map[string]interface{}{
		"status":    domain.RoomStatusClosed,
		"closed_at": now,
	}); err != nil {
		response.RespondError(c, http.StatusInternalServerError, err, "")
		return
	}
	if err := h.agents.Release(c.Request.Context(), req.ClientID, roomID); err != nil {
		h.log.Warn("failed to release room from queue on close", "error", err)
	}
	response.RespondOK(c, gin.H{"closed": true})
}

type agentMessageRequest struct {
	ClientID string `json:"clientId" binding:"required"`
	RoomID   string `json:"roomId" binding:"required"`
	AgentID  string `json:"agentId" binding:"required"`
	Content  string `json:"content" binding:"required"`
}

// AgentMessage handles POST /chat/agent/message — a human agent's reply,
// persisted directly without going through the turn algorithm (no handover
// detection, no retrieval, no serialization lock — an assigned agent is
// already the authority on this room).
func (h *ChatHandler) AgentMessage(c *gin.Context) {
	var req agentMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, err, "")
		return
	}
	roomID, err := uuid.Parse(req.RoomID)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid roomId"), "roomId")
		return
	}
	agentID, err := uuid.Parse(req.AgentID)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid agentId"), "agentId")
		return
	}

	msg := &domain.Message{
		RoomID:     roomID,
		TenantID:   req.ClientID,
		SenderType: domain.SenderTypeAgent,
		SenderID:   &agentID,
		Content:    req.Content,
		CreatedAt:  time.Now().UTC(),
	}
	msg, err = h.msgs.Create(dbctx.Context{Ctx: c.Request.Context()}, msg)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, err, "")
		return
	}
	response.RespondOK(c, gin.H{"message": msg})
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil || n <= 0 {
		return def
	}
	return n
}
