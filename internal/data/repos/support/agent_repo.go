package support

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/neurobridge/support-backend/internal/domain/support"
	"github.com/neurobridge/support-backend/internal/pkg/dbctx"
	"github.com/neurobridge/support-backend/internal/platform/logger"
)

type AgentRepo interface {
	ListOnline(dbc dbctx.Context, tenantID string) ([]*domain.Agent, error)
	GetByEmail(dbc dbctx.Context, tenantID, email string) (*domain.Agent, error)
	GetOrCreateExternal(dbc dbctx.Context, tenantID, email, name string) (*domain.Agent, error)
	IncrementLoad(dbc dbctx.Context, id uuid.UUID, delta int) error
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type agentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAgentRepo(db *gorm.DB, log *logger.Logger) AgentRepo {
	return &agentRepo{db: db, log: log.With("repo", "AgentRepo")}
}

func (r *agentRepo) ListOnline(dbc dbctx.Context, tenantID string) ([]*domain.Agent, error) {
	txx := tx(dbc, r.db)
	var out []*domain.Agent
	if err := txx.WithContext(dbc.Ctx).
		Where("tenant_id = ? AND status = ? AND current_load < max_concurrent", tenantID, domain.AgentStatusOnline).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *agentRepo) GetByEmail(dbc dbctx.Context, tenantID, email string) (*domain.Agent, error) {
	if email == "" {
		return nil, fmt.Errorf("missing email")
	}
	txx := tx(dbc, r.db)
	var out domain.Agent
	if err := txx.WithContext(dbc.Ctx).
		Where("tenant_id = ? AND email = ?", tenantID, email).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrCreateExternal materializes an external-directory agent as a local
// row keyed by email, so Room.assigned_agent_id's FK always resolves.
func (r *agentRepo) GetOrCreateExternal(dbc dbctx.Context, tenantID, email, name string) (*domain.Agent, error) {
	existing, err := r.GetByEmail(dbc, tenantID, email)
	if err == nil {
		return existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	row := &domain.Agent{
		TenantID:      tenantID,
		Source:        domain.AgentSourceExternal,
		Name:          name,
		Email:         email,
		Status:        domain.AgentStatusOnline,
		MaxConcurrent: 5,
	}
	txx := tx(dbc, r.db)
	if err := txx.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(row).Error; err != nil {
		return nil, err
	}
	return r.GetByEmail(dbc, tenantID, email)
}

func (r *agentRepo) IncrementLoad(dbc dbctx.Context, id uuid.UUID, delta int) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing agent id")
	}
	txx := tx(dbc, r.db)
	return txx.WithContext(dbc.Ctx).
		Model(&domain.Agent{}).
		Where("id = ?", id).
		UpdateColumn("current_load", gorm.Expr("GREATEST(current_load + ?, 0)", delta)).Error
}

func (r *agentRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing agent id")
	}
	txx := tx(dbc, r.db)
	return txx.WithContext(dbc.Ctx).Model(&domain.Agent{}).Where("id = ?", id).Updates(updates).Error
}
