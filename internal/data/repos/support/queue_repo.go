package support

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/neurobridge/support-backend/internal/domain/support"
	"github.com/neurobridge/support-backend/internal/pkg/dbctx"
	"github.com/neurobridge/support-backend/internal/platform/logger"
)

type QueueRepo interface {
	Enqueue(dbc dbctx.Context, entry *domain.QueueEntry) (*domain.QueueEntry, error)
	ListByTenant(dbc dbctx.Context, tenantID string) ([]*domain.QueueEntry, error)
	RemoveByRoom(dbc dbctx.Context, roomID uuid.UUID) error
	DeleteOlderThan(dbc dbctx.Context, cutoff time.Time) (int64, error)
}

type queueRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQueueRepo(db *gorm.DB, log *logger.Logger) QueueRepo {
	return &queueRepo{db: db, log: log.With("repo", "QueueRepo")}
}

func (r *queueRepo) Enqueue(dbc dbctx.Context, entry *domain.QueueEntry) (*domain.QueueEntry, error) {
	if entry == nil || entry.RoomID == uuid.Nil {
		return nil, fmt.Errorf("missing queue entry room id")
	}
	txx := tx(dbc, r.db)
	if err := txx.WithContext(dbc.Ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// ListByTenant returns queued rooms priority DESC then enqueued_at ASC, the
// order §4.5 requires for position/ETA computation.
func (r *queueRepo) ListByTenant(dbc dbctx.Context, tenantID string) ([]*domain.QueueEntry, error) {
	txx := tx(dbc, r.db)
	var out []*domain.QueueEntry
	if err := txx.WithContext(dbc.Ctx).
		Where("tenant_id = ?", tenantID).
		Order("CASE priority WHEN 'VIP' THEN 3 WHEN 'HIGH' THEN 2 WHEN 'NORMAL' THEN 1 ELSE 0 END DESC, enqueued_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *queueRepo) RemoveByRoom(dbc dbctx.Context, roomID uuid.UUID) error {
	if roomID == uuid.Nil {
		return nil
	}
	txx := tx(dbc, r.db)
	return txx.WithContext(dbc.Ctx).Where("room_id = ?", roomID).Delete(&domain.QueueEntry{}).Error
}

func (r *queueRepo) DeleteOlderThan(dbc dbctx.Context, cutoff time.Time) (int64, error) {
	txx := tx(dbc, r.db)
	res := txx.WithContext(dbc.Ctx).Where("enqueued_at < ?", cutoff).Delete(&domain.QueueEntry{})
	return res.RowsAffected, res.Error
}
