package agents

import "testing"

func TestSelect_PrefersLowerLoad(t *testing.T) {
	candidates := []Record{
		{ID: "a", Source: "local", CurrentLoad: 4, MaxConcurrent: 5},
		{ID: "b", Source: "local", CurrentLoad: 1, MaxConcurrent: 5},
	}
	chosen, ok := Select(candidates, "", nil, SelectorConfig{})
	if !ok || chosen.ID != "b" {
		t.Fatalf("expected agent b to win on lower load, got %+v", chosen)
	}
}

func TestSelect_DepartmentMatchBreaksTie(t *testing.T) {
	candidates := []Record{
		{ID: "a", Source: "local", CurrentLoad: 2, MaxConcurrent: 5, Department: "billing"},
		{ID: "b", Source: "local", CurrentLoad: 2, MaxConcurrent: 5, Department: "sales"},
	}
	chosen, ok := Select(candidates, "billing", nil, SelectorConfig{})
	if !ok || chosen.ID != "a" {
		t.Fatalf("expected department match to win, got %+v", chosen)
	}
}

func TestSelect_DeterministicTieBreakByID(t *testing.T) {
	candidates := []Record{
		{ID: "zeta", Source: "local", CurrentLoad: 1, MaxConcurrent: 5},
		{ID: "alpha", Source: "local", CurrentLoad: 1, MaxConcurrent: 5},
	}
	chosen, ok := Select(candidates, "", nil, SelectorConfig{})
	if !ok || chosen.ID != "alpha" {
		t.Fatalf("expected lowest agent_id to win tie, got %+v", chosen)
	}
}

func TestSelect_NoQualifyingAgentReturnsFalse(t *testing.T) {
	candidates := []Record{
		{ID: "a", Source: "local", CurrentLoad: 5, MaxConcurrent: 5},
	}
	_, ok := Select(candidates, "", nil, SelectorConfig{})
	if ok {
		t.Fatalf("expected no qualifying agent")
	}
}

func TestSelect_PreferLocalBreaksScoreTie(t *testing.T) {
	candidates := []Record{
		{ID: "a", Source: "external", CurrentLoad: 1, MaxConcurrent: 5},
		{ID: "b", Source: "local", CurrentLoad: 1, MaxConcurrent: 5},
	}
	chosen, ok := Select(candidates, "", nil, SelectorConfig{PreferLocal: true})
	if !ok || chosen.ID != "b" {
		t.Fatalf("expected PREFER_LOCAL to favor local agent, got %+v", chosen)
	}
}
