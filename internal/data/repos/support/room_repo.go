package support

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/neurobridge/support-backend/internal/domain/support"
	"github.com/neurobridge/support-backend/internal/pkg/dbctx"
	"github.com/neurobridge/support-backend/internal/platform/logger"
)

type RoomRepo interface {
	Create(dbc dbctx.Context, room *domain.Room) (*domain.Room, error)
	GetByID(dbc dbctx.Context, tenantID string, id uuid.UUID) (*domain.Room, error)
	GetBySessionToken(dbc dbctx.Context, tenantID, token string) (*domain.Room, error)
	GetActiveByVisitor(dbc dbctx.Context, tenantID, visitorID string) (*domain.Room, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*domain.Room, error)
	ListByClient(dbc dbctx.Context, tenantID string, visitorID string, limit int) ([]*domain.Room, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	ListStaleActive(dbc dbctx.Context, olderThan time.Time, limit int) ([]*domain.Room, error)
}

type roomRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoomRepo(db *gorm.DB, log *logger.Logger) RoomRepo {
	return &roomRepo{db: db, log: log.With("repo", "RoomRepo")}
}

func (r *roomRepo) Create(dbc dbctx.Context, room *domain.Room) (*domain.Room, error) {
	txx := tx(dbc, r.db)
	if err := txx.WithContext(dbc.Ctx).Create(room).Error; err != nil {
		return nil, err
	}
	return room, nil
}

func (r *roomRepo) GetByID(dbc dbctx.Context, tenantID string, id uuid.UUID) (*domain.Room, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing room id")
	}
	txx := tx(dbc, r.db)
	var out domain.Room
	if err := txx.WithContext(dbc.Ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *roomRepo) GetBySessionToken(dbc dbctx.Context, tenantID, token string) (*domain.Room, error) {
	if token == "" {
		return nil, fmt.Errorf("missing session token")
	}
	txx := tx(dbc, r.db)
	var out domain.Room
	if err := txx.WithContext(dbc.Ctx).
		Where("tenant_id = ? AND session_token = ?", tenantID, token).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *roomRepo) GetActiveByVisitor(dbc dbctx.Context, tenantID, visitorID string) (*domain.Room, error) {
	if visitorID == "" {
		return nil, fmt.Errorf("missing visitor id")
	}
	txx := tx(dbc, r.db)
	var out domain.Room
	if err := txx.WithContext(dbc.Ctx).
		Where("tenant_id = ? AND visitor_id = ? AND status = ?", tenantID, visitorID, domain.RoomStatusActive).
		Order("created_at DESC").
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *roomRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*domain.Room, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing room id")
	}
	if dbc.Tx == nil {
		return nil, fmt.Errorf("LockByID requires dbc.Tx")
	}
	var out domain.Room
	if err := dbc.Tx.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *roomRepo) ListByClient(dbc dbctx.Context, tenantID string, visitorID string, limit int) ([]*domain.Room, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	txx := tx(dbc, r.db)
	q := txx.WithContext(dbc.Ctx).Where("tenant_id = ?", tenantID)
	if visitorID != "" {
		q = q.Where("visitor_id = ?", visitorID)
	}
	var out []*domain.Room
	if err := q.Order("last_activity_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *roomRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing room id")
	}
	txx := tx(dbc, r.db)
	return txx.WithContext(dbc.Ctx).Model(&domain.Room{}).Where("id = ?", id).Updates(updates).Error
}

func (r *roomRepo) ListStaleActive(dbc dbctx.Context, olderThan time.Time, limit int) ([]*domain.Room, error) {
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	txx := tx(dbc, r.db)
	var out []*domain.Room
	if err := txx.WithContext(dbc.Ctx).
		Where("status = ? AND last_activity_at < ?", domain.RoomStatusActive, olderThan).
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func tx(dbc dbctx.Context, fallback *gorm.DB) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return fallback
}
