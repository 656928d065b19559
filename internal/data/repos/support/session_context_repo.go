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

type SessionContextRepo interface {
	GetOrCreate(dbc dbctx.Context, tenantID string, roomID uuid.UUID) (*domain.SessionContext, error)
	LockByRoomID(dbc dbctx.Context, roomID uuid.UUID) (*domain.SessionContext, error)
	Save(dbc dbctx.Context, sc *domain.SessionContext) error
}

type sessionContextRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionContextRepo(db *gorm.DB, log *logger.Logger) SessionContextRepo {
	return &sessionContextRepo{db: db, log: log.With("repo", "SessionContextRepo")}
}

func (r *sessionContextRepo) GetOrCreate(dbc dbctx.Context, tenantID string, roomID uuid.UUID) (*domain.SessionContext, error) {
	if roomID == uuid.Nil {
		return nil, fmt.Errorf("missing room id")
	}
	txx := tx(dbc, r.db)
	var out domain.SessionContext
	err := txx.WithContext(dbc.Ctx).Where("room_id = ?", roomID).Take(&out).Error
	if err == nil {
		return &out, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	out = domain.SessionContext{
		RoomID:            roomID,
		TenantID:          tenantID,
		CollectedEntities: []byte("{}"),
		WorkflowState:     []byte("{}"),
		UpdatedAt:         time.Now().UTC(),
	}
	if err := txx.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "room_id"}}, DoNothing: true}).
		Create(&out).Error; err != nil {
		return nil, err
	}
	if err := txx.WithContext(dbc.Ctx).Where("room_id = ?", roomID).Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *sessionContextRepo) LockByRoomID(dbc dbctx.Context, roomID uuid.UUID) (*domain.SessionContext, error) {
	if roomID == uuid.Nil {
		return nil, fmt.Errorf("missing room id")
	}
	if dbc.Tx == nil {
		return nil, fmt.Errorf("LockByRoomID requires dbc.Tx")
	}
	var out domain.SessionContext
	if err := dbc.Tx.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("room_id = ?", roomID).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *sessionContextRepo) Save(dbc dbctx.Context, sc *domain.SessionContext) error {
	if sc == nil || sc.RoomID == uuid.Nil {
		return fmt.Errorf("missing session context")
	}
	sc.UpdatedAt = time.Now().UTC()
	txx := tx(dbc, r.db)
	return txx.WithContext(dbc.Ctx).Save(sc).Error
}
