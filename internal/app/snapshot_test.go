package app

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maxent-labs/gisstore/internal/domain"
)

func TestParseSnapshot_Compressed(t *testing.T) {
	input := `
correction_constant: 2
correction_parameter: 0.75
outcomes: [A, B]
patterns:
  - outcomes: [2, 0, 1]
    weights: [0.5, -0.3]
predicates:
  - label: feat1
    pattern: 0
    count: 2
    parameters: [0.5, -0.3]
  - label: feat2
    pattern: 0
    parameters: [1.5]
`
	s, err := ParseSnapshot(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseSnapshot() error: %v", err)
	}

	if s.CorrectionConstant != 2 || s.CorrectionParameter != 0.75 {
		t.Errorf("correction = (%d, %v), want (2, 0.75)", s.CorrectionConstant, s.CorrectionParameter)
	}
	if len(s.OutcomeLabels) != 2 || s.OutcomeLabels[1] != "B" {
		t.Errorf("OutcomeLabels = %v", s.OutcomeLabels)
	}
	if len(s.Patterns) != 1 || s.Patterns[0].Size() != 2 {
		t.Fatalf("Patterns = %+v", s.Patterns)
	}
	if len(s.Predicates) != 2 {
		t.Fatalf("Predicates = %d, want 2", len(s.Predicates))
	}
	if p := s.Predicates[0]; p.Label != "feat1" || p.ParameterCount != 2 || p.Parameters[1] != -0.3 {
		t.Errorf("Predicates[0] = %+v", p)
	}
	// count defaults to the number of stored parameters
	if p := s.Predicates[1]; p.ParameterCount != 1 {
		t.Errorf("Predicates[1].ParameterCount = %d, want 1", p.ParameterCount)
	}
}

func TestParseSnapshot_JSON(t *testing.T) {
	input := `{
  "correction_constant": 1,
  "correction_parameter": 0.5,
  "outcomes": ["yes", "no"],
  "patterns": [{"outcomes": [1, 1]}],
  "predicates": [{"label": "bias", "pattern": 0, "count": 1, "parameters": [0.25]}]
}`
	s, err := ParseSnapshot(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseSnapshot() error: %v", err)
	}
	if len(s.Predicates) != 1 || s.Predicates[0].Parameters[0] != 0.25 {
		t.Errorf("Predicates = %+v", s.Predicates)
	}
	if id, ok := s.Patterns[0].OutcomeID(0); !ok || id != 1 {
		t.Errorf("Patterns[0].OutcomeID(0) = (%d, %v), want (1, true)", id, ok)
	}
}

func TestParseSnapshot_Features(t *testing.T) {
	input := `
correction_constant: 3
correction_parameter: 0.1
outcomes: [O, PER, LOC]
features:
  w=John: {PER: 2.5, O: -1}
  w=Paris: {LOC: 3, O: -0.5}
  w=Smith: {O: -0.75, PER: 1.25}
`
	s, err := ParseSnapshot(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseSnapshot() error: %v", err)
	}
	if len(s.Patterns) != 2 {
		t.Fatalf("Patterns = %d, want 2", len(s.Patterns))
	}
	if len(s.Predicates) != 3 {
		t.Fatalf("Predicates = %d, want 3", len(s.Predicates))
	}
}

func TestParseSnapshot_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ``},
		{"malformed", `outcomes: [A, B`},
		{"unknown field", "outcomes: [A]\nweights: [1]\n"},
		{"missing label", "outcomes: [A]\npatterns: [{outcomes: [1, 0]}]\npredicates: [{pattern: 0, parameters: [1]}]\n"},
		{"features and predicates", "outcomes: [A]\nfeatures: {f: {A: 1}}\npredicates: [{label: g, parameters: [1]}]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSnapshot(strings.NewReader(tt.input))
			if !errors.Is(err, domain.ErrInvalidSnapshot) {
				t.Errorf("ParseSnapshot() error = %v, want ErrInvalidSnapshot", err)
			}
		})
	}
}

func TestLoadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")
	body := "correction_constant: 1\noutcomes: [A]\nfeatures: {bias: {A: 0.5}}\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot() error: %v", err)
	}
	if len(s.Predicates) != 1 || s.Predicates[0].Label != "bias" {
		t.Errorf("Predicates = %+v", s.Predicates)
	}
}

func TestLoadSnapshot_Missing(t *testing.T) {
	_, err := LoadSnapshot(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("LoadSnapshot() should fail for a missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want os.ErrNotExist", err)
	}
}
