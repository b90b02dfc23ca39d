package sqlite

import (
	"fmt"

	"github.com/maxent-labs/gisstore/internal/domain"
)

// Expand flattens the pattern-compressed parameters of model into one
// PredicateParameter per declared parameter, in predicate order, and passes
// each to emit. Predicate ids are positions in model.Predicates.
//
// Every predicate is bounds-checked before any of its rows are emitted; a
// defect is reported as an integrity violation naming the predicate. An error
// from emit stops the expansion and is returned unchanged.
func Expand(model *domain.Snapshot, emit func(domain.PredicateParameter) error) error {
	outcomes := len(model.OutcomeLabels)

	for id, p := range model.Predicates {
		pattern, err := resolvePattern(model, id, p, outcomes)
		if err != nil {
			return err
		}

		for i := 0; i < p.ParameterCount; i++ {
			// Slot 0 of the pattern is its size marker.
			row := domain.PredicateParameter{
				PredicateID: id,
				OutcomeID:   pattern.OutcomeIDs[i+1],
				Weight:      p.Parameters[i],
			}
			if err := emit(row); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolvePattern returns the pattern for predicate p after checking that all
// of its ParameterCount slots can be read.
func resolvePattern(model *domain.Snapshot, id int, p domain.Predicate, outcomes int) (domain.OutcomePattern, error) {
	const op = "expand predicate parameters"

	pattern, ok := model.Pattern(p.PatternIndex)
	if !ok {
		return pattern, domain.NewIntegrityError(op, id, p.Label,
			fmt.Errorf("pattern index %d out of range [0,%d)", p.PatternIndex, len(model.Patterns)))
	}
	if p.ParameterCount < 0 {
		return pattern, domain.NewIntegrityError(op, id, p.Label,
			fmt.Errorf("negative parameter count %d", p.ParameterCount))
	}
	if p.ParameterCount > pattern.Size() {
		return pattern, domain.NewIntegrityError(op, id, p.Label,
			fmt.Errorf("parameter count %d exceeds pattern %d size %d", p.ParameterCount, p.PatternIndex, pattern.Size()))
	}
	if p.ParameterCount > len(p.Parameters) {
		return pattern, domain.NewIntegrityError(op, id, p.Label,
			fmt.Errorf("parameter count %d exceeds %d stored parameters", p.ParameterCount, len(p.Parameters)))
	}
	for i := 0; i < p.ParameterCount; i++ {
		if oid := pattern.OutcomeIDs[i+1]; oid < 0 || oid >= outcomes {
			return pattern, domain.NewIntegrityError(op, id, p.Label,
				fmt.Errorf("outcome id %d out of range [0,%d)", oid, outcomes))
		}
	}
	return pattern, nil
}
