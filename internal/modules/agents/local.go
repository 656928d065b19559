package agents

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	supportrepo "github.com/neurobridge/support-backend/internal/data/repos/support"
	domain "github.com/neurobridge/support-backend/internal/domain/support"
	"github.com/neurobridge/support-backend/internal/pkg/dbctx"
)

// localAgentSource reads/writes the tenant's own agent directory via the
// existing GORM-backed AgentRepo.
type localAgentSource struct {
	repo supportrepo.AgentRepo
}

func NewLocalSource(repo supportrepo.AgentRepo) Source {
	return &localAgentSource{repo: repo}
}

func (s *localAgentSource) List(ctx context.Context, tenantID string, filters Filters) ([]Record, error) {
	rows, err := s.repo.ListOnline(dbctx.Context{Ctx: ctx}, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows))
	for _, a := range rows {
		dept := ""
		if a.Department != nil {
			dept = *a.Department
		}
		if filters.Department != "" && dept != filters.Department {
			continue
		}
		skills := decodeSkills(a.Skills)
		if len(filters.RequiredSkills) > 0 && !hasAnySkill(skills, filters.RequiredSkills) {
			continue
		}
		out = append(out, Record{
			ID:            a.ID.String(),
			Source:        string(domain.AgentSourceLocal),
			Name:          a.Name,
			Email:         a.Email,
			CurrentLoad:   a.CurrentLoad,
			MaxConcurrent: a.MaxConcurrent,
			Department:    dept,
			Skills:        skills,
		})
	}
	return out, nil
}

func (s *localAgentSource) Update(ctx context.Context, tenantID, agentID string, upd Update) error {
	id, err := uuid.Parse(agentID)
	if err != nil {
		return err
	}
	return s.repo.IncrementLoad(dbctx.Context{Ctx: ctx}, id, upd.LoadDelta)
}

func decodeSkills(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func hasAnySkill(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, s := range have {
		set[s] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}
