package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	supportrepo "github.com/neurobridge/support-backend/internal/data/repos/support"
	"github.com/neurobridge/support-backend/internal/http/response"
	"github.com/neurobridge/support-backend/internal/pkg/dbctx"
	"github.com/neurobridge/support-backend/internal/platform/logger"
	"github.com/neurobridge/support-backend/internal/realtime"
)

// RealtimeHandler serves the per-visitor SSE stream and the client→server
// control events that accompany it. A visitor opens one long-lived GET
// connection and issues control events as short POSTs carrying the same
// clientID, mirroring the teacher's SSE-plus-sideband-POST shape in
// internal/http/handlers rather than a raw websocket, since the widget only
// ever needs server-push plus occasional client intents.
//
// Of the six client→server control events, join_room and typing are
// handled directly below. The other four have no dedicated realtime
// endpoint because an equivalent already exists: leave_room has no server
// state to clear beyond what closing the SSE connection already does (see
// Stream's deferred CloseClient) — there is no separate subscription handle
// a sideband POST could address once the connection itself is gone.
// get-active-conversations/start-conversation/end-conversation are the same
// operations Chat Core already exposes (registered as /realtime aliases in
// router.go) rather than parallel implementations of conversation listing,
// session creation, and room closure.
type RealtimeHandler struct {
	log   *logger.Logger
	hub   *realtime.SSEHub
	rooms supportrepo.RoomRepo
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub, rooms supportrepo.RoomRepo) *RealtimeHandler {
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), hub: hub, rooms: rooms}
}

// Stream handles GET /realtime/stream?clientId=&roomId= — opens the SSE
// connection and, when roomId is supplied, immediately subscribes it to
// that room's channel (the join_room event, expressed as a connection-time
// parameter rather than a later control frame, since an SSE connection
// carries no further client→server frames of its own).
func (h *RealtimeHandler) Stream(c *gin.Context) {
	clientID := c.Query("clientId")
	roomID := c.Query("roomId")
	userID := uuid.Nil
	if clientID != "" {
		userID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(clientID))
	}
	client := h.hub.NewSSEClient(userID)
	defer h.hub.CloseClient(client)

	if roomID != "" && clientID != "" {
		h.hub.AddChannel(client, realtime.RoomChannel(roomID, clientID))
	}
	h.hub.ServeHTTP(c.Writer, c.Request, client)
}

type joinRoomRequest struct {
	RoomID   string `json:"roomId" binding:"required"`
	ClientID string `json:"clientId" binding:"required"`
}

// JoinRoom handles POST /realtime/join_room. The widget's SSE connection
// subscribes by calling this once it knows which room it's in; the handler
// itself has no persistent client handle to attach the subscription to (SSE
// subscription state lives on the SSEClient created in Stream), so this
// endpoint's role is to validate the room exists and echo room_joined data
// for the widget to render immediately, while the actual channel
// subscription happens implicitly: the widget passes roomId/clientId as
// query params on the SSE connection and the server subscribes there.
func (h *RealtimeHandler) JoinRoom(c *gin.Context) {
	var req joinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, err, "")
		return
	}
	roomID, err := uuid.Parse(req.RoomID)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, err, "roomId")
		return
	}
	room, err := h.rooms.GetByID(dbctx.Context{Ctx: c.Request.Context()}, req.ClientID, roomID)
	if err != nil {
		response.RespondError(c, http.StatusNotFound, err, "roomId")
		return
	}
	response.RespondOK(c, gin.H{"roomId": room.ID, "status": room.Status})
}

type typingRequest struct {
	RoomID   string `json:"roomId" binding:"required"`
	ClientID string `json:"clientId" binding:"required"`
	IsTyping bool   `json:"isTyping"`
	Sender   string `json:"sender"`
}

// Typing handles POST /realtime/typing — a fire-and-forget broadcast to the
// room's channel. Unlike leave_room, this needs no handle to the requester's
// own SSEClient: it only pushes to whoever else is already subscribed.
func (h *RealtimeHandler) Typing(c *gin.Context) {
	var req typingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, err, "")
		return
	}
	h.hub.Broadcast(realtime.SSEMessage{
		Channel: realtime.RoomChannel(req.RoomID, req.ClientID),
		Event:   realtime.SSEEventUserTyping,
		Data:    gin.H{"roomId": req.RoomID, "sender": req.Sender, "isTyping": req.IsTyping},
	})
	response.RespondOK(c, gin.H{"delivered": true})
}
