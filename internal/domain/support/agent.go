package support

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AgentStatus string

const (
	AgentStatusOnline  AgentStatus = "online"
	AgentStatusOffline AgentStatus = "offline"
	AgentStatusBusy    AgentStatus = "busy"
	AgentStatusAway    AgentStatus = "away"
)

// Agent is a human support agent, local to this tenant or mirrored from an
// external directory. External agents are mirrored into this table on first
// assignment (agents.Service, via AgentRepo.GetOrCreateExternal), keyed by
// email, so Room.assigned_agent_id's FK always resolves.
type Agent struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID      string         `gorm:"type:varchar(100);not null;index" json:"tenant_id"`
	Source        AgentSource    `gorm:"type:varchar(16);not null" json:"source"`
	ExternalID    *string        `gorm:"type:varchar(128);index" json:"external_id,omitempty"`
	Name          string         `gorm:"type:varchar(256);not null" json:"name"`
	Email         string         `gorm:"type:varchar(256);not null;uniqueIndex:uq_agents_tenant_email" json:"email"`
	Status        AgentStatus    `gorm:"type:varchar(16);not null;default:offline" json:"status"`
	MaxConcurrent int            `gorm:"not null;default:5" json:"max_concurrent"`
	CurrentLoad   int            `gorm:"not null;default:0" json:"current_load"`
	Department    *string        `gorm:"type:varchar(128)" json:"department,omitempty"`
	Skills        datatypes.JSON `gorm:"type:jsonb" json:"skills,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Agent) TableName() string { return "users" }

// QueueEntry is a waiting-room ticket for a room that had no qualifying
// agent at handover time. Ordered by Priority DESC then EnqueuedAt ASC.
type QueueEntry struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID        string         `gorm:"type:varchar(100);not null;index:idx_queue_tenant" json:"tenant_id"`
	RoomID          uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uq_queue_room" json:"room_id"`
	Priority        QueuePriority  `gorm:"type:varchar(16);not null;default:NORMAL" json:"priority"`
	Department      *string        `gorm:"type:varchar(128)" json:"department,omitempty"`
	RequiredSkills  datatypes.JSON `gorm:"type:jsonb" json:"required_skills,omitempty"`
	EnqueuedAt      time.Time      `gorm:"not null" json:"enqueued_at"`
	CustomerInfo    datatypes.JSON `gorm:"type:jsonb" json:"customer_info,omitempty"`
}

func (QueueEntry) TableName() string { return "queue_entries" }

type QueuePriority string

const (
	QueuePriorityLow    QueuePriority = "LOW"
	QueuePriorityNormal QueuePriority = "NORMAL"
	QueuePriorityHigh   QueuePriority = "HIGH"
	QueuePriorityVIP    QueuePriority = "VIP"
)

func (p QueuePriority) rank() int {
	switch p {
	case QueuePriorityVIP:
		return 3
	case QueuePriorityHigh:
		return 2
	case QueuePriorityNormal:
		return 1
	default:
		return 0
	}
}

// Less orders queue entries priority DESC, then enqueued_at ASC — the
// contract §4.5 requires for position/ETA computation.
func (e QueueEntry) Less(other QueueEntry) bool {
	if e.Priority.rank() != other.Priority.rank() {
		return e.Priority.rank() > other.Priority.rank()
	}
	return e.EnqueuedAt.Before(other.EnqueuedAt)
}
