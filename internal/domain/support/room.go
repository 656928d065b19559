package support

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RoomStatus string

const (
	RoomStatusActive RoomStatus = "active"
	RoomStatusClosed RoomStatus = "closed"
)

type AgentSource string

const (
	AgentSourceLocal    AgentSource = "local"
	AgentSourceExternal AgentSource = "external"
)

// Room is a single customer conversation. session_token resolves to at most
// one active room per (tenant_id, visitor_id); enforced by the unique index
// below plus an application-level check before insert.
type Room struct {
	ID             uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID       string      `gorm:"type:varchar(100);not null;index:idx_chat_rooms_tenant_visitor" json:"tenant_id"`
	SessionToken   string      `gorm:"type:varchar(128);not null;uniqueIndex:uq_chat_rooms_session_token" json:"session_token"`
	VisitorID      string      `gorm:"type:varchar(128);not null;index:idx_chat_rooms_tenant_visitor" json:"visitor_id"`
	Status         RoomStatus  `gorm:"type:varchar(16);not null;default:active" json:"status"`
	AssignedAgentID *uuid.UUID `gorm:"type:uuid" json:"assigned_agent_id,omitempty"`
	AgentSource    *AgentSource `gorm:"type:varchar(16)" json:"agent_source,omitempty"`
	// ExternalAgentRef holds the external directory's own agent ID when
	// AgentSource is external — distinct from AssignedAgentID, which is the
	// local users row mirrored for FK purposes. Source.Update on the
	// external source must be called with this ID, not the mirrored one.
	ExternalAgentRef *string `gorm:"type:varchar(128)" json:"external_agent_ref,omitempty"`
	Takeover       bool        `gorm:"not null;default:false" json:"takeover"`
	CustomerEmail  *string     `gorm:"type:varchar(256)" json:"customer_email,omitempty"`
	CustomerName   *string     `gorm:"type:varchar(256)" json:"customer_name,omitempty"`
	CreatedAt      time.Time   `gorm:"not null" json:"created_at"`
	LastActivityAt time.Time   `gorm:"not null" json:"last_activity_at"`
	ClosedAt       *time.Time  `json:"closed_at,omitempty"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Room) TableName() string { return "chat_rooms" }
