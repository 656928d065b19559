package agents

import "sort"

// SelectorConfig carries the PREFER_LOCAL_AGENTS / SKILL_BASED_ROUTING knobs.
type SelectorConfig struct {
	PreferLocal       bool
	SkillBasedRouting bool
}

// score implements §4.5's formula exactly:
//
//	score = (1 − load/max)·100 + skill_matches·20 + (department match ? 30 : 0) + (PREFER_LOCAL && local ? 10 : 0)
func score(r Record, wantDepartment string, wantSkills []string, cfg SelectorConfig) float64 {
	max := r.MaxConcurrent
	if max <= 0 {
		max = 1
	}
	loadRatio := float64(r.CurrentLoad) / float64(max)
	if loadRatio > 1 {
		loadRatio = 1
	}
	s := (1 - loadRatio) * 100

	if cfg.SkillBasedRouting {
		s += float64(countMatchingSkills(r.Skills, wantSkills)) * 20
	}
	if wantDepartment != "" && r.Department == wantDepartment {
		s += 30
	}
	if cfg.PreferLocal && r.Source == "local" {
		s += 10
	}
	return s
}

func countMatchingSkills(have, want []string) int {
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[h] = struct{}{}
	}
	count := 0
	for _, w := range want {
		if _, ok := set[w]; ok {
			count++
		}
	}
	return count
}

// Select picks the highest-scoring candidate able to take another room
// (current_load < max_concurrent), breaking ties by lowest current_load
// then deterministically by agent ID. Returns false if no candidate
// qualifies.
func Select(candidates []Record, wantDepartment string, wantSkills []string, cfg SelectorConfig) (Record, bool) {
	eligible := make([]Record, 0, len(candidates))
	for _, c := range candidates {
		if c.MaxConcurrent <= 0 || c.CurrentLoad < c.MaxConcurrent {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return Record{}, false
	}

	type scored struct {
		rec   Record
		score float64
	}
	ranked := make([]scored, 0, len(eligible))
	for _, c := range eligible {
		ranked = append(ranked, scored{rec: c, score: score(c, wantDepartment, wantSkills, cfg)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		if ranked[i].rec.CurrentLoad != ranked[j].rec.CurrentLoad {
			return ranked[i].rec.CurrentLoad < ranked[j].rec.CurrentLoad
		}
		return ranked[i].rec.ID < ranked[j].rec.ID
	})
	return ranked[0].rec, true
}
