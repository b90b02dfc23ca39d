package app

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/maxent-labs/gisstore/internal/domain"
)

func TestBuildSnapshot_SharesPatterns(t *testing.T) {
	outcomes := []string{"O", "PER", "LOC"}
	features := map[string]map[string]float64{
		"w=Paris": {"LOC": 3, "O": -0.5},
		"w=John":  {"PER": 2.5, "O": -1},
		"w=Smith": {"O": -0.75, "PER": 1.25},
		"w=the":   {},
	}

	s, err := BuildSnapshot(3, 0.1, outcomes, features)
	if err != nil {
		t.Fatalf("BuildSnapshot() error: %v", err)
	}

	want := &domain.Snapshot{
		CorrectionConstant:  3,
		CorrectionParameter: 0.1,
		OutcomeLabels:       outcomes,
		Patterns: []domain.OutcomePattern{
			// w=John is the first label, so it creates pattern 0.
			{OutcomeIDs: []int{2, 0, 1}, Weights: []float64{-1, 2.5}},
			{OutcomeIDs: []int{2, 0, 2}, Weights: []float64{-0.5, 3}},
		},
		Predicates: []domain.Predicate{
			{Label: "w=John", PatternIndex: 0, ParameterCount: 2, Parameters: []float64{-1, 2.5}},
			{Label: "w=Smith", PatternIndex: 0, ParameterCount: 2, Parameters: []float64{-0.75, 1.25}},
			{Label: "w=Paris", PatternIndex: 1, ParameterCount: 2, Parameters: []float64{-0.5, 3}},
		},
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("BuildSnapshot() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSnapshot_Deterministic(t *testing.T) {
	features := map[string]map[string]float64{
		"a": {"x": 1}, "b": {"y": 2}, "c": {"x": 3, "y": 4}, "d": {"y": 5},
	}
	first, err := BuildSnapshot(1, 1, []string{"x", "y"}, features)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		again, err := BuildSnapshot(1, 1, []string{"x", "y"}, features)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("run %d differs:\n%s", i, diff)
		}
	}
}

func TestBuildSnapshot_Errors(t *testing.T) {
	_, err := BuildSnapshot(1, 1, []string{"A", "A"}, nil)
	if !errors.Is(err, domain.ErrInvalidSnapshot) {
		t.Errorf("duplicate outcome: error = %v", err)
	}

	_, err = BuildSnapshot(1, 1, []string{"A"}, map[string]map[string]float64{"f": {"B": 1}})
	if !errors.Is(err, domain.ErrInvalidSnapshot) {
		t.Errorf("unknown outcome: error = %v", err)
	}
}

func TestBuildSnapshot_ExpandsBack(t *testing.T) {
	outcomes := []string{"A", "B", "C"}
	features := map[string]map[string]float64{
		"f1": {"A": 0.5, "C": -0.25},
		"f2": {"B": 1},
		"f3": {"C": 2, "A": 4},
	}
	s, err := BuildSnapshot(1, 1, outcomes, features)
	if err != nil {
		t.Fatal(err)
	}

	for _, p := range s.Predicates {
		pattern := s.Patterns[p.PatternIndex]
		for i := 0; i < p.ParameterCount; i++ {
			id, _ := pattern.OutcomeID(i)
			if got, want := p.Parameters[i], features[p.Label][outcomes[id]]; got != want {
				t.Errorf("%s/%s = %v, want %v", p.Label, outcomes[id], got, want)
			}
		}
	}
}
