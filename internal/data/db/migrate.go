package db

import (
	"fmt"

	types "github.com/neurobridge/support-backend/internal/domain/support"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// =========================
		// Conversation core
		// =========================
		&types.Room{},
		&types.Message{},
		&types.SessionContext{},

		// =========================
		// Agents + handover queue
		// =========================
		&types.Agent{},
		&types.QueueEntry{},
	)
}

func EnsureSupportIndexes(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return fmt.Errorf("enable uuid-ossp: %w", err)
	}

	// Fast message pagination per room.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_messages_room_created
		ON messages (room_id, created_at DESC, id DESC)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_messages_room_created: %w", err)
	}

	// Visitor resume lookup: one active room per (tenant, visitor).
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_chat_rooms_tenant_visitor_status
		ON chat_rooms (tenant_id, visitor_id, status, created_at DESC)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_chat_rooms_tenant_visitor_status: %w", err)
	}

	// Stale-room sweep (auto-close after inactivity).
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_chat_rooms_status_last_activity
		ON chat_rooms (status, last_activity_at)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_chat_rooms_status_last_activity: %w", err)
	}

	// Agent selection scans online agents with spare capacity.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_users_tenant_status_load
		ON users (tenant_id, status, current_load)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_users_tenant_status_load: %w", err)
	}

	// Queue position/ETA ordering: priority DESC, enqueued_at ASC.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_queue_entries_tenant_priority_enqueued
		ON queue_entries (tenant_id, priority, enqueued_at);
	`).Error; err != nil {
		return fmt.Errorf("create idx_queue_entries_tenant_priority_enqueued: %w", err)
	}

	return nil
}

// AutoMigrateAll creates/updates the tables backing the support domain and
// then ensures the support indexes. Agent maps onto "users" and Room onto
// "chat_rooms" (see their TableName overrides).
func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureSupportIndexes(s.db); err != nil {
		s.log.Error("Support index migration failed", "error", err)
		return err
	}
	return nil
}
