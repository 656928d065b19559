// Package agents implements the Agent Directory & Queue: a capability-based
// union of local (Postgres) and external (REST or SQL) agent sources, a
// deterministic selector, assignment, and a wait queue with a periodic
// timeout sweep. Grounded on SPEC_FULL.md §9's "heterogeneous agent
// sources" redesign — the selector depends only on AgentSource, never on a
// concrete directory implementation.
package agents

import (
	"context"
	"time"
)

// Record is the common shape every AgentSource normalizes its candidates
// into before they reach the selector.
type Record struct {
	ID            string
	Source        string // "local" | "external"
	Name          string
	Email         string
	CurrentLoad   int
	MaxConcurrent int
	Department    string
	Skills        []string
}

// Filters narrows a List call to agents that could plausibly handle a room.
type Filters struct {
	Department     string
	RequiredSkills []string
}

// Update is a partial mutation applied to one agent's load after assignment.
type Update struct {
	LoadDelta int
}

// Source is the small capability set SPEC_FULL.md calls for: list candidates,
// and update one after assignment. Local and external directories both
// implement it; the selector and assignment logic depend on nothing else.
type Source interface {
	List(ctx context.Context, tenantID string, filters Filters) ([]Record, error)
	Update(ctx context.Context, tenantID, agentID string, upd Update) error
}

// AssignmentResult is returned on a successful selection + assignment.
type AssignmentResult struct {
	Agent   Record
	Message string
}

// QueuePosition reports where a room sits in its tenant's wait queue.
type QueuePosition struct {
	Position int
	ETA      time.Duration
}
