package support

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SessionContext is one-to-one with a Room. CollectedEntities is monotonic
// across a session: keys are added or overwritten, never silently dropped,
// with the exception of the internal pendingHandover/handoverReason flags
// which are cleared once a handover resolves.
type SessionContext struct {
	RoomID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"room_id"`
	TenantID          string         `gorm:"type:varchar(100);not null;uniqueIndex:uq_session_contexts_room_tenant" json:"tenant_id"`
	CollectedEntities datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'" json:"collected_entities"`
	CurrentWorkflow   *string        `gorm:"type:varchar(64)" json:"current_workflow,omitempty"`
	WorkflowState     datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'" json:"workflow_state"`
	UpdatedAt         time.Time      `gorm:"not null" json:"updated_at"`
}

func (SessionContext) TableName() string { return "session_contexts" }

const (
	EntityPendingHandover = "pendingHandover"
	EntityHandoverReason  = "handoverReason"
	EntityEmail           = "email"
	EntityName            = "name"
	EntityPhone           = "phone"
)

func (s *SessionContext) DecodeEntities() (map[string]any, error) {
	out := map[string]any{}
	if len(s.CollectedEntities) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(s.CollectedEntities, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SessionContext) EncodeEntities(entities map[string]any) error {
	raw, err := json.Marshal(entities)
	if err != nil {
		return err
	}
	s.CollectedEntities = raw
	return nil
}
