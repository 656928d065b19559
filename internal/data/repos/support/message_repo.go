package support

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/neurobridge/support-backend/internal/domain/support"
	"github.com/neurobridge/support-backend/internal/pkg/dbctx"
	"github.com/neurobridge/support-backend/internal/platform/logger"
)

type MessageRepo interface {
	Create(dbc dbctx.Context, msg *domain.Message) (*domain.Message, error)
	ListRecent(dbc dbctx.Context, roomID uuid.UUID, limit int) ([]*domain.Message, error)
	ListAscending(dbc dbctx.Context, roomID uuid.UUID, limit int) ([]*domain.Message, error)
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, log *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: log.With("repo", "MessageRepo")}
}

func (r *messageRepo) Create(dbc dbctx.Context, msg *domain.Message) (*domain.Message, error) {
	txx := tx(dbc, r.db)
	if err := txx.WithContext(dbc.Ctx).Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

// ListRecent returns the most recent messages in a room, newest first — the
// shape the conversation turn algorithm wants for "last 10 messages".
func (r *messageRepo) ListRecent(dbc dbctx.Context, roomID uuid.UUID, limit int) ([]*domain.Message, error) {
	if roomID == uuid.Nil {
		return nil, fmt.Errorf("missing room id")
	}
	if limit <= 0 || limit > 200 {
		limit = 10
	}
	txx := tx(dbc, r.db)
	var out []*domain.Message
	if err := txx.WithContext(dbc.Ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListAscending returns chat history oldest-first, the shape the public
// GET /chat/history endpoint returns.
func (r *messageRepo) ListAscending(dbc dbctx.Context, roomID uuid.UUID, limit int) ([]*domain.Message, error) {
	recent, err := r.ListRecent(dbc, roomID, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}
	return recent, nil
}
