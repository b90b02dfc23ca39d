package app

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/maxent-labs/gisstore/internal/domain"
)

// BuildSnapshot compresses an uncompressed feature table (predicate label →
// outcome label → weight) into a pattern-compressed snapshot.
//
// Outcome ids follow the order of outcomes. Predicates whose outcome sets are
// identical share one pattern; a pattern's weights are those of the first
// predicate (by label) that produced it. Predicates are ordered by pattern
// index, then label, which fixes their persisted ids. Features without any
// outcomes are dropped.
func BuildSnapshot(constant int, parameter float64, outcomes []string, features map[string]map[string]float64) (*domain.Snapshot, error) {
	outcomeIDs := make(map[string]int, len(outcomes))
	for i, label := range outcomes {
		if _, dup := outcomeIDs[label]; dup {
			return nil, fmt.Errorf("%w: duplicate outcome %q", domain.ErrInvalidSnapshot, label)
		}
		outcomeIDs[label] = i
	}

	labels := make([]string, 0, len(features))
	for label := range features {
		labels = append(labels, label)
	}
	slices.Sort(labels)

	s := &domain.Snapshot{
		CorrectionConstant:  constant,
		CorrectionParameter: parameter,
		OutcomeLabels:       outcomes,
	}
	patternIndex := make(map[string]int)

	for _, label := range labels {
		weights := features[label]
		if len(weights) == 0 {
			continue
		}

		ids := make([]int, 0, len(weights))
		for outcome := range weights {
			id, ok := outcomeIDs[outcome]
			if !ok {
				return nil, fmt.Errorf("%w: feature %q references unknown outcome %q", domain.ErrInvalidSnapshot, label, outcome)
			}
			ids = append(ids, id)
		}
		slices.Sort(ids)

		params := make([]float64, len(ids))
		for i, id := range ids {
			params[i] = weights[outcomes[id]]
		}

		key := patternKey(ids)
		idx, ok := patternIndex[key]
		if !ok {
			idx = len(s.Patterns)
			patternIndex[key] = idx
			s.Patterns = append(s.Patterns, domain.OutcomePattern{
				OutcomeIDs: append([]int{len(ids)}, ids...),
				Weights:    params,
			})
		}

		s.Predicates = append(s.Predicates, domain.Predicate{
			Label:          label,
			PatternIndex:   idx,
			ParameterCount: len(params),
			Parameters:     params,
		})
	}

	slices.SortStableFunc(s.Predicates, func(a, b domain.Predicate) int {
		return cmp.Or(cmp.Compare(a.PatternIndex, b.PatternIndex), strings.Compare(a.Label, b.Label))
	})
	return s, nil
}

func patternKey(ids []int) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(id))
	}
	return b.String()
}
