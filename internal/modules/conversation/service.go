package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	supportrepo "github.com/neurobridge/support-backend/internal/data/repos/support"
	domain "github.com/neurobridge/support-backend/internal/domain/support"
	"github.com/neurobridge/support-backend/internal/modules/agents"
	"github.com/neurobridge/support-backend/internal/modules/extraction"
	"github.com/neurobridge/support-backend/internal/modules/handover"
	"github.com/neurobridge/support-backend/internal/modules/query"
	"github.com/neurobridge/support-backend/internal/pkg/dbctx"
	"github.com/neurobridge/support-backend/internal/platform/logger"
	"github.com/neurobridge/support-backend/internal/realtime"
	"github.com/neurobridge/support-backend/internal/realtime/bridge"
)

type Service struct {
	log       *logger.Logger
	rooms     supportrepo.RoomRepo
	messages  supportrepo.MessageRepo
	sessions  supportrepo.SessionContextRepo
	agentSvc  *agents.Service
	querySvc  *query.Service
	extractor *extraction.Service
	hub       *realtime.SSEHub
	bridge    *bridge.Client
	th        handover.Thresholds
	locks     *roomLocks
}

func New(
	log *logger.Logger,
	rooms supportrepo.RoomRepo,
	messages supportrepo.MessageRepo,
	sessions supportrepo.SessionContextRepo,
	agentSvc *agents.Service,
	querySvc *query.Service,
	extractor *extraction.Service,
	hub *realtime.SSEHub,
	bridgeClient *bridge.Client,
) *Service {
	return &Service{
		log:       log.With("service", "ConversationCore"),
		rooms:     rooms,
		messages:  messages,
		sessions:  sessions,
		agentSvc:  agentSvc,
		querySvc:  querySvc,
		extractor: extractor,
		hub:       hub,
		bridge:    bridgeClient,
		th:        handover.DefaultThresholds(),
		locks:     newRoomLocks(),
	}
}

// ProcessMessage runs the full customer turn for one room, serialized per
// room. Any failure after the customer message is persisted stores and emits
// an apology AI message in the room, then returns the error to the caller;
// the customer message is kept.
func (s *Service) ProcessMessage(ctx context.Context, tenantID string, roomID uuid.UUID, clientID, content string) (*TurnResult, error) {
	release := s.locks.acquire(roomID)
	defer release()

	typingEmitted := false
	emitTyping := func(isTyping bool) {
		s.hub.Broadcast(realtime.SSEMessage{
			Channel: realtime.RoomChannel(roomID.String(), tenantID),
			Event:   realtime.SSEEventUserTyping,
			Data:    map[string]any{"sender": "ai", "isTyping": isTyping},
		})
		if !isTyping {
			typingEmitted = true
		}
	}
	defer func() {
		if !typingEmitted {
			emitTyping(false)
		}
	}()

	// Step 1: persist the customer message, fan out, mirror, bump activity.
	custMsg := &domain.Message{
		RoomID:     roomID,
		TenantID:   tenantID,
		SenderType: domain.SenderTypeCustomer,
		Content:    content,
		CreatedAt:  nowUTC(),
	}
	custMsg, err := s.messages.Create(dbctx.Context{Ctx: ctx}, custMsg)
	if err != nil {
		return nil, fmt.Errorf("persist customer message: %w", err)
	}
	s.emitNewMessage(tenantID, roomID, custMsg)
	s.mirrorToBridge(roomID, clientID, custMsg)
	if err := s.rooms.UpdateFields(dbctx.Context{Ctx: ctx}, roomID, map[string]interface{}{"last_activity_at": nowUTC()}); err != nil {
		s.log.Warn("failed to bump last_activity_at", "error", err)
	}

	result, turnErr := s.runTurn(ctx, tenantID, roomID, clientID, content, custMsg.ID, emitTyping)
	if turnErr != nil {
		s.persistApology(ctx, tenantID, roomID, clientID)
		return nil, turnErr
	}
	return result, nil
}

func (s *Service) runTurn(ctx context.Context, tenantID string, roomID uuid.UUID, clientID, content string, custMsgID uuid.UUID, emitTyping func(bool)) (*TurnResult, error) {
	// Step 2: load last 10 messages + SessionContext + Room concurrently.
	var history []*domain.Message
	var sessionCtx *domain.SessionContext
	var room *domain.Room
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		history, err = s.messages.ListRecent(dbctx.Context{Ctx: gctx}, roomID, 10)
		return err
	})
	g.Go(func() error {
		var err error
		sessionCtx, err = s.sessions.GetOrCreate(dbctx.Context{Ctx: gctx}, tenantID, roomID)
		return err
	})
	g.Go(func() error {
		var err error
		room, err = s.rooms.GetByID(dbctx.Context{Ctx: gctx}, tenantID, roomID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load turn context: %w", err)
	}

	entities, err := sessionCtx.DecodeEntities()
	if err != nil {
		return nil, fmt.Errorf("decode collected entities: %w", err)
	}

	turns := toHandoverTurns(history)

	// Step 3: handover detection.
	decision := handover.Detect(content, turns, handover.Options{CollectedEntities: entities}, s.th)
	if decision != nil && decision.Immediate {
		return s.handleImmediate(ctx, tenantID, roomID, clientID, room, decision)
	}
	if decision != nil && !decision.Immediate {
		entities[domain.EntityPendingHandover] = true
		entities[domain.EntityHandoverReason] = string(decision.Reason)
		if err := s.saveEntities(ctx, sessionCtx, entities); err != nil {
			return nil, err
		}
	}

	// Step 4: typing(ai, true).
	emitTyping(true)

	// Step 5: entity extraction.
	extracted, err := s.extractor.Extract(ctx, content)
	if err != nil {
		s.log.Warn("entity extraction failed, continuing without new entities", "error", err)
	} else {
		for k, v := range extracted.Map() {
			entities[k] = v
		}
		roomUpdates := map[string]interface{}{}
		if extracted.Email != "" {
			roomUpdates["customer_email"] = extracted.Email
		}
		if extracted.Name != "" {
			roomUpdates["customer_name"] = extracted.Name
		}
		if len(roomUpdates) > 0 {
			if err := s.rooms.UpdateFields(dbctx.Context{Ctx: ctx}, roomID, roomUpdates); err != nil {
				s.log.Warn("failed to mirror identity onto room", "error", err)
			}
		}

		pending, _ := entities[domain.EntityPendingHandover].(bool)
		if pending && (extracted.Email != "" || extracted.Name != "" || extracted.Phone != "") {
			delete(entities, domain.EntityPendingHandover)
			reason, _ := entities[domain.EntityHandoverReason].(string)
			delete(entities, domain.EntityHandoverReason)
			if err := s.saveEntities(ctx, sessionCtx, entities); err != nil {
				return nil, err
			}
			assignment, err := s.agentSvc.Assign(ctx, tenantID, roomID, agents.Filters{})
			if err != nil {
				s.log.Warn("agent assignment after identity collection failed", "error", err)
			} else if assignment != nil {
				return &TurnResult{
					CustomerMessageID: custMsgID,
					Handover:          &HandoverResult{Reason: reason, AssignedAgent: assignment.Agent.Email},
				}, nil
			}
		}
	}
	if err := s.saveEntities(ctx, sessionCtx, entities); err != nil {
		return nil, err
	}

	// Step 6: Query Core.
	historyTurns := make([]query.HistoryTurn, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		role := "customer"
		if history[i].SenderType == domain.SenderTypeAI {
			role = "agent"
		}
		historyTurns = append(historyTurns, query.HistoryTurn{Role: role, Content: history[i].Content})
	}
	queryResult, err := s.querySvc.Query(ctx, tenantID, content, query.Options{History: historyTurns, CollectedEntities: entities})
	if err != nil {
		return nil, fmt.Errorf("query core: %w", err)
	}

	// Step 7: extract text (our Query Core already returns a single tagged
	// shape, so the original system's "string | .text | .answer | ..." probe
	// collapses to this one field; an empty answer still falls back to a
	// fixed apology rather than persisting blank content).
	text := queryResult.Text
	if text == "" {
		text = apologyMessage
	}

	// Step 8: persist AI message with metadata.
	meta := domain.MessageMetadata{Sources: sourceLabels(queryResult.Sources), Intent: queryResult.Intent}
	if queryResult.Confidence != nil {
		v := float64(*queryResult.Confidence) / 100
		meta.Confidence = &v
	}
	if queryResult.LatencyMS > 0 {
		d := queryResult.LatencyMS
		meta.QueryDuration = &d
	}
	aiMsg := &domain.Message{
		RoomID:     roomID,
		TenantID:   tenantID,
		SenderType: domain.SenderTypeAI,
		Content:    text,
		CreatedAt:  nowUTC(),
	}
	if err := aiMsg.EncodeMetadata(meta); err != nil {
		s.log.Warn("failed to encode AI message metadata", "error", err)
	}
	aiMsg, err = s.messages.Create(dbctx.Context{Ctx: ctx}, aiMsg)
	if err != nil {
		return nil, fmt.Errorf("persist ai message: %w", err)
	}
	s.emitNewMessage(tenantID, roomID, aiMsg)
	s.mirrorToBridge(roomID, clientID, aiMsg)

	// Step 9: Query Core in this implementation never surfaces its own
	// extractedEntities — identity collection is entirely the Extraction
	// Helper's responsibility (step 5) — so there is nothing further to merge
	// here; this is a deliberate no-op, not an omission.

	// Step 10: typing(ai, false), return.
	emitTyping(false)
	return &TurnResult{CustomerMessageID: custMsgID, AIText: text, Sources: queryResult.Sources}, nil
}

func (s *Service) handleImmediate(ctx context.Context, tenantID string, roomID uuid.UUID, clientID string, room *domain.Room, decision *handover.Decision) (*TurnResult, error) {
	if room != nil && room.AssignedAgentID != nil {
		s.persistSystemMessage(ctx, tenantID, roomID, clientID, reminderMessage)
		return &TurnResult{Handover: &HandoverResult{Reason: string(decision.Reason), Waiting: false}}, nil
	}

	assignment, err := s.agentSvc.Assign(ctx, tenantID, roomID, agents.Filters{})
	if err != nil {
		return nil, fmt.Errorf("immediate handover assignment: %w", err)
	}
	if assignment != nil {
		return &TurnResult{Handover: &HandoverResult{Reason: string(decision.Reason), AssignedAgent: assignment.Agent.Email}}, nil
	}

	if err := s.agentSvc.Enqueue(ctx, tenantID, roomID, domain.QueuePriorityNormal, ""); err != nil {
		s.log.Warn("failed to enqueue room awaiting agent", "error", err)
	}
	s.persistSystemMessage(ctx, tenantID, roomID, clientID, waitMessage)
	return &TurnResult{Handover: &HandoverResult{Reason: string(decision.Reason), Waiting: true}}, nil
}

func (s *Service) persistSystemMessage(ctx context.Context, tenantID string, roomID uuid.UUID, clientID, content string) {
	msg := &domain.Message{RoomID: roomID, TenantID: tenantID, SenderType: domain.SenderTypeSystem, Content: content, CreatedAt: nowUTC()}
	msg, err := s.messages.Create(dbctx.Context{Ctx: ctx}, msg)
	if err != nil {
		s.log.Warn("failed to persist system message", "error", err)
		return
	}
	s.emitNewMessage(tenantID, roomID, msg)
	s.mirrorToBridge(roomID, clientID, msg)
}

func (s *Service) persistApology(ctx context.Context, tenantID string, roomID uuid.UUID, clientID string) {
	msg := &domain.Message{RoomID: roomID, TenantID: tenantID, SenderType: domain.SenderTypeAI, Content: apologyMessage, CreatedAt: nowUTC()}
	msg, err := s.messages.Create(dbctx.Context{Ctx: ctx}, msg)
	if err != nil {
		s.log.Warn("failed to persist apology message", "error", err)
		return
	}
	s.emitNewMessage(tenantID, roomID, msg)
	s.mirrorToBridge(roomID, clientID, msg)
}

func (s *Service) saveEntities(ctx context.Context, sc *domain.SessionContext, entities map[string]any) error {
	if err := sc.EncodeEntities(entities); err != nil {
		return fmt.Errorf("encode collected entities: %w", err)
	}
	if err := s.sessions.Save(dbctx.Context{Ctx: ctx}, sc); err != nil {
		return fmt.Errorf("save session context: %w", err)
	}
	return nil
}

func (s *Service) emitNewMessage(tenantID string, roomID uuid.UUID, msg *domain.Message) {
	s.hub.Broadcast(realtime.SSEMessage{
		Channel: realtime.RoomChannel(roomID.String(), tenantID),
		Event:   realtime.SSEEventNewMessage,
		Data:    msg,
	})
}

func (s *Service) mirrorToBridge(roomID uuid.UUID, clientID string, msg *domain.Message) {
	if s.bridge == nil || !s.bridge.Enabled() {
		return
	}
	payload := bridge.WidgetMessagePayload{
		ID:             msg.ID.String(),
		ConversationID: roomID.String(),
		ClientID:       clientID,
		Content:        msg.Content,
		SenderType:     string(msg.SenderType),
		CreatedAt:      msg.CreatedAt,
		Time:           msg.CreatedAt.Format(time.RFC3339),
	}
	if err := s.bridge.SendWidgetMessage(payload); err != nil {
		s.log.Warn("bridge mirror failed", "error", err)
	}
}

func toHandoverTurns(history []*domain.Message) []handover.Turn {
	out := make([]handover.Turn, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		t := handover.Turn{SenderType: string(m.SenderType), Content: m.Content}
		if m.SenderType == domain.SenderTypeAI {
			if meta, err := m.DecodeMetadata(); err == nil {
				t.Confidence = meta.Confidence
			}
		}
		out = append(out, t)
	}
	return out
}

func sourceLabels(sources []query.Source) []string {
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		out = append(out, fmt.Sprintf("%s:%s", s.DocumentID, s.ChunkID))
	}
	return out
}
