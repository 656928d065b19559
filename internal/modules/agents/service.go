package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron"

	supportrepo "github.com/neurobridge/support-backend/internal/data/repos/support"
	domain "github.com/neurobridge/support-backend/internal/domain/support"
	"github.com/neurobridge/support-backend/internal/pkg/dbctx"
	"github.com/neurobridge/support-backend/internal/platform/envutil"
	"github.com/neurobridge/support-backend/internal/platform/logger"
	"github.com/neurobridge/support-backend/internal/realtime/bridge"
)

type Config struct {
	QueueTimeout time.Duration
	RoomTTL      time.Duration
	Selector     SelectorConfig
}

func ResolveConfigFromEnv() Config {
	return Config{
		QueueTimeout: time.Duration(envutil.Int("QUEUE_TIMEOUT_MS", 10*60*1000)) * time.Millisecond,
		RoomTTL:      time.Duration(envutil.Int("ROOM_INACTIVITY_TTL_MS", 7*24*60*60*1000)) * time.Millisecond,
		Selector: SelectorConfig{
			PreferLocal:       envutil.Int("PREFER_LOCAL_AGENTS", 1) != 0,
			SkillBasedRouting: envutil.Int("SKILL_BASED_ROUTING", 0) != 0,
		},
	}
}

// Service wires the local + external directories, the selector, and the
// wait queue behind a single entry point the Conversation Core calls.
type Service struct {
	log      *logger.Logger
	local    Source
	external Source
	queue    supportrepo.QueueRepo
	rooms    supportrepo.RoomRepo
	messages supportrepo.MessageRepo
	agents   supportrepo.AgentRepo
	bridge   *bridge.Client
	cfg      Config
	cron     *cron.Cron
	roomCron *cron.Cron
}

func New(
	log *logger.Logger,
	local, external Source,
	queue supportrepo.QueueRepo,
	rooms supportrepo.RoomRepo,
	messages supportrepo.MessageRepo,
	agentRepo supportrepo.AgentRepo,
	bridgeClient *bridge.Client,
	cfg Config,
) *Service {
	return &Service{
		log:      log.With("service", "AgentDirectory"),
		local:    local,
		external: external,
		queue:    queue,
		rooms:    rooms,
		messages: messages,
		agents:   agentRepo,
		bridge:   bridgeClient,
		cfg:      cfg,
	}
}

// StartQueueSweep registers the periodic dead-entry sweep on a cron
// scheduler, run every minute; entries older than QueueTimeout are dropped.
func (s *Service) StartQueueSweep(ctx context.Context) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc("@every 1m", func() {
		cutoff := time.Now().Add(-s.cfg.QueueTimeout)
		n, err := s.queue.DeleteOlderThan(dbctx.Context{Ctx: ctx}, cutoff)
		if err != nil {
			s.log.Warn("queue sweep failed", "error", err)
			return
		}
		if n > 0 {
			s.log.Info("queue sweep removed stale entries", "count", n)
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	s.cron = c
	return c, nil
}

// StartRoomTTLSweep registers the periodic inactivity closure sweep, run
// every 10 minutes: rooms still active with no activity since RoomTTL ago
// are closed, releasing any assigned agent's load the same way an explicit
// closeSession would.
func (s *Service) StartRoomTTLSweep(ctx context.Context) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc("@every 10m", func() {
		cutoff := time.Now().Add(-s.cfg.RoomTTL)
		stale, err := s.rooms.ListStaleActive(dbctx.Context{Ctx: ctx}, cutoff, 200)
		if err != nil {
			s.log.Warn("room ttl sweep failed to list stale rooms", "error", err)
			return
		}
		for _, room := range stale {
			if err := s.closeExpiredRoom(ctx, room); err != nil {
				s.log.Warn("room ttl sweep failed to close room", "room_id", room.ID, "error", err)
			}
		}
		if len(stale) > 0 {
			s.log.Info("room ttl sweep closed inactive rooms", "count", len(stale))
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	s.roomCron = c
	return c, nil
}

func (s *Service) closeExpiredRoom(ctx context.Context, room *domain.Room) error {
	now := time.Now().UTC()
	if err := s.rooms.UpdateFields(dbctx.Context{Ctx: ctx}, room.ID, map[string]interface{}{
		"status":    domain.RoomStatusClosed,
		"closed_at": now,
	}); err != nil {
		return fmt.Errorf("close stale room: %w", err)
	}
	return s.Release(ctx, room.TenantID, room.ID)
}

func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.roomCron != nil {
		s.roomCron.Stop()
	}
}

// candidates unions local and (if enabled) external directory results.
func (s *Service) candidates(ctx context.Context, tenantID string, filters Filters) ([]Record, error) {
	local, err := s.local.List(ctx, tenantID, filters)
	if err != nil {
		return nil, fmt.Errorf("list local agents: %w", err)
	}
	if s.external == nil {
		return local, nil
	}
	external, err := s.external.List(ctx, tenantID, filters)
	if err != nil {
		s.log.Warn("external agent source unavailable, continuing with local only", "error", err)
		return local, nil
	}
	return append(local, external...), nil
}

// Assign selects an agent for roomID and, on success, increments the
// agent's load, persists the "You are now connected with <name>" system
// message, and updates the Room's assignment columns. Returns (nil, nil)
// when no agent currently qualifies — the caller is expected to enqueue.
func (s *Service) Assign(ctx context.Context, tenantID string, roomID uuid.UUID, filters Filters) (*AssignmentResult, error) {
	records, err := s.candidates(ctx, tenantID, filters)
	if err != nil {
		return nil, err
	}
	chosen, ok := Select(records, filters.Department, filters.RequiredSkills, s.cfg.Selector)
	if !ok {
		return nil, nil
	}

	src := s.local
	if chosen.Source == "external" {
		src = s.external
	}
	if err := src.Update(ctx, tenantID, chosen.ID, Update{LoadDelta: 1}); err != nil {
		return nil, fmt.Errorf("increment agent load: %w", err)
	}

	agentSource := domain.AgentSourceLocal
	if chosen.Source == "external" {
		agentSource = domain.AgentSourceExternal
	}
	agentUUID, err := s.resolveAssignableAgentID(ctx, tenantID, chosen)
	if err != nil {
		return nil, fmt.Errorf("resolve assigned agent id: %w", err)
	}
	updates := map[string]interface{}{
		"assigned_agent_id": agentUUID,
		"agent_source":      agentSource,
		"takeover":          true,
	}
	if chosen.Source == "external" {
		updates["external_agent_ref"] = chosen.ID
	}
	if err := s.rooms.UpdateFields(dbctx.Context{Ctx: ctx}, roomID, updates); err != nil {
		return nil, fmt.Errorf("update room assignment: %w", err)
	}

	message := fmt.Sprintf("You are now connected with %s. How can they help you today?", chosen.Name)
	if s.messages != nil {
		if _, err := s.messages.Create(dbctx.Context{Ctx: ctx}, &domain.Message{
			RoomID:     roomID,
			TenantID:   tenantID,
			SenderType: domain.SenderTypeSystem,
			Content:    message,
		}); err != nil {
			s.log.Warn("failed to persist assignment system message", "error", err)
		}
	}

	if s.bridge != nil && s.bridge.Enabled() {
		if err := s.bridge.SendAgentAssigned(bridge.AgentAssignedPayload{
			AgentEmail: chosen.Email,
			AgentName:  chosen.Name,
			RoomID:     roomID.String(),
			ClientID:   tenantID,
		}); err != nil {
			s.log.Warn("failed to notify external bridge of assignment", "error", err)
		}
	}

	return &AssignmentResult{Agent: chosen, Message: message}, nil
}

// resolveAssignableAgentID returns the UUID to write into
// Room.assigned_agent_id. Local agents already have one (chosen.ID is the
// users row's own primary key). External agents don't: their directory's ID
// is an arbitrary external primary key with no guarantee of being a valid
// UUID or of having a matching users row, so FK-constrained assignment
// instead keys a local row off the external agent's email, creating it on
// first assignment.
func (s *Service) resolveAssignableAgentID(ctx context.Context, tenantID string, chosen Record) (uuid.UUID, error) {
	if chosen.Source != "external" {
		return uuid.Parse(chosen.ID)
	}
	if s.agents == nil {
		return uuid.Nil, fmt.Errorf("no local agent repo configured to mirror external agent %q", chosen.ID)
	}
	row, err := s.agents.GetOrCreateExternal(dbctx.Context{Ctx: ctx}, tenantID, chosen.Email, chosen.Name)
	if err != nil {
		return uuid.Nil, err
	}
	return row.ID, nil
}

// Enqueue waitlists roomID when no agent currently qualifies.
func (s *Service) Enqueue(ctx context.Context, tenantID string, roomID uuid.UUID, priority domain.QueuePriority, department string) error {
	var dept *string
	if department != "" {
		dept = &department
	}
	_, err := s.queue.Enqueue(dbctx.Context{Ctx: ctx}, &domain.QueueEntry{
		TenantID:   tenantID,
		RoomID:     roomID,
		Priority:   priority,
		Department: dept,
		EnqueuedAt: time.Now(),
	})
	return err
}

// Release removes roomID from the wait queue and, if an agent was assigned
// to it, decrements that agent's current_load — the mirror of the
// increment Assign makes, so a freed agent becomes eligible again instead
// of permanently accumulating load across the room's lifetime. Called on
// room close.
func (s *Service) Release(ctx context.Context, tenantID string, roomID uuid.UUID) error {
	if err := s.queue.RemoveByRoom(dbctx.Context{Ctx: ctx}, roomID); err != nil {
		return err
	}

	room, err := s.rooms.GetByID(dbctx.Context{Ctx: ctx}, tenantID, roomID)
	if err != nil {
		return fmt.Errorf("load room for release: %w", err)
	}
	if room.AssignedAgentID == nil || room.AgentSource == nil {
		return nil
	}

	agentID := room.AssignedAgentID.String()
	src := s.local
	if *room.AgentSource == domain.AgentSourceExternal {
		src = s.external
		if room.ExternalAgentRef != nil {
			agentID = *room.ExternalAgentRef
		}
	}
	if src == nil {
		return nil
	}
	if err := src.Update(ctx, tenantID, agentID, Update{LoadDelta: -1}); err != nil {
		return fmt.Errorf("decrement agent load: %w", err)
	}
	return nil
}

// Position computes a room's 1-based position and a naive ETA (2 minutes per
// room ahead of it) in O(n) over the tenant's queue.
func (s *Service) Position(ctx context.Context, tenantID string, roomID uuid.UUID) (QueuePosition, bool, error) {
	entries, err := s.queue.ListByTenant(dbctx.Context{Ctx: ctx}, tenantID)
	if err != nil {
		return QueuePosition{}, false, err
	}
	for i, e := range entries {
		if e.RoomID == roomID {
			return QueuePosition{Position: i + 1, ETA: time.Duration(i) * 2 * time.Minute}, true, nil
		}
	}
	return QueuePosition{}, false, nil
}
