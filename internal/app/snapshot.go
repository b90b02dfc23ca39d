// Package app provides application-layer orchestration services.
// It wires domain logic with infrastructure, never the reverse.
package app

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/maxent-labs/gisstore/internal/domain"
)

// snapshotDoc is the on-disk form of a model snapshot. It is either
// compressed (patterns + predicates) or uncompressed (features).
// JSON documents decode through the same YAML decoder.
type snapshotDoc struct {
	CorrectionConstant  int                           `yaml:"correction_constant"`
	CorrectionParameter float64                       `yaml:"correction_parameter"`
	Outcomes            []string                      `yaml:"outcomes"`
	Patterns            []domain.OutcomePattern       `yaml:"patterns"`
	Predicates          []predicateDoc                `yaml:"predicates"`
	Features            map[string]map[string]float64 `yaml:"features"`
}

type predicateDoc struct {
	Label      string    `yaml:"label"`
	Pattern    int       `yaml:"pattern"`
	Count      *int      `yaml:"count"`
	Parameters []float64 `yaml:"parameters"`
}

// LoadSnapshot reads a snapshot document from path.
func LoadSnapshot(path string) (*domain.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	s, err := ParseSnapshot(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseSnapshot decodes a YAML or JSON snapshot document.
// Unknown fields are rejected. A predicate without a count declares
// len(parameters) parameters.
func ParseSnapshot(r io.Reader) (*domain.Snapshot, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc snapshotDoc
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", domain.ErrInvalidSnapshot)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSnapshot, err)
	}

	if doc.Features != nil {
		if len(doc.Patterns) > 0 || len(doc.Predicates) > 0 {
			return nil, fmt.Errorf("%w: features cannot be combined with patterns or predicates", domain.ErrInvalidSnapshot)
		}
		return BuildSnapshot(doc.CorrectionConstant, doc.CorrectionParameter, doc.Outcomes, doc.Features)
	}

	s := &domain.Snapshot{
		CorrectionConstant:  doc.CorrectionConstant,
		CorrectionParameter: doc.CorrectionParameter,
		OutcomeLabels:       doc.Outcomes,
		Patterns:            doc.Patterns,
		Predicates:          make([]domain.Predicate, 0, len(doc.Predicates)),
	}
	for i, p := range doc.Predicates {
		if p.Label == "" {
			return nil, fmt.Errorf("%w: predicate %d has no label", domain.ErrInvalidSnapshot, i)
		}
		count := len(p.Parameters)
		if p.Count != nil {
			count = *p.Count
		}
		s.Predicates = append(s.Predicates, domain.Predicate{
			Label:          p.Label,
			PatternIndex:   p.Pattern,
			ParameterCount: count,
			Parameters:     p.Parameters,
		})
	}
	return s, nil
}
