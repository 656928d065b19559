package support

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SenderType string

const (
	SenderTypeCustomer SenderType = "customer"
	SenderTypeAI       SenderType = "ai"
	SenderTypeAgent    SenderType = "agent"
	SenderTypeSystem   SenderType = "system"
)

// MessageMetadata carries the optional, sender-dependent fields a message
// accumulates: retrieval sources for AI answers, extracted intent/confidence,
// and anything the handover/query pipeline wants echoed back to clients.
type MessageMetadata struct {
	Sources       []string `json:"sources,omitempty"`
	Intent        string   `json:"intent,omitempty"`
	Confidence    *float64 `json:"confidence,omitempty"`
	QueryDuration *int64   `json:"queryDuration,omitempty"`
}

// Message is strictly ordered within a room by (created_at, id).
type Message struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RoomID     uuid.UUID      `gorm:"type:uuid;not null;index:idx_messages_room_created" json:"room_id"`
	TenantID   string         `gorm:"type:varchar(100);not null;index" json:"tenant_id"`
	SenderType SenderType     `gorm:"type:varchar(16);not null" json:"sender_type"`
	SenderID   *uuid.UUID     `gorm:"type:uuid" json:"sender_id,omitempty"`
	Content    string         `gorm:"type:text;not null" json:"content"`
	Metadata   datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;index:idx_messages_room_created" json:"created_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Message) TableName() string { return "messages" }

// DecodeMetadata unmarshals Metadata into MessageMetadata, returning the
// zero value if Metadata is empty.
func (m *Message) DecodeMetadata() (MessageMetadata, error) {
	var out MessageMetadata
	if len(m.Metadata) == 0 {
		return out, nil
	}
	err := json.Unmarshal(m.Metadata, &out)
	return out, err
}

// EncodeMetadata marshals meta into Metadata.
func (m *Message) EncodeMetadata(meta MessageMetadata) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	m.Metadata = raw
	return nil
}
