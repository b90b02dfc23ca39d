// Package domain holds the pure types of a persisted GIS (maximum-entropy) model.
// Nothing here touches storage; infrastructure packages consume these types.
package domain

// ─── Snapshot ───────────────────────────────────────────────────────────────

// OutcomePattern describes which outcomes a group of predicates carries
// weights for. OutcomeIDs[0] is the pattern size marker; OutcomeIDs[1:] are
// outcome ids aligned positionally with Weights.
type OutcomePattern struct {
	OutcomeIDs []int     `json:"outcomes" yaml:"outcomes"`
	Weights    []float64 `json:"weights,omitempty" yaml:"weights,omitempty"`
}

// Size returns the number of outcome slots after the size marker.
func (p OutcomePattern) Size() int {
	if len(p.OutcomeIDs) == 0 {
		return 0
	}
	return len(p.OutcomeIDs) - 1
}

// OutcomeID returns the outcome id of slot i (0-based, marker excluded).
func (p OutcomePattern) OutcomeID(i int) (int, bool) {
	if i < 0 || i+1 >= len(p.OutcomeIDs) {
		return 0, false
	}
	return p.OutcomeIDs[i+1], true
}

// Predicate is a feature of the classifier. Its parameters are its own learned
// weights; the pattern it points at only fixes which outcomes they belong to.
type Predicate struct {
	Label          string    `json:"label" yaml:"label"`
	PatternIndex   int       `json:"pattern" yaml:"pattern"`
	ParameterCount int       `json:"count" yaml:"count"`
	Parameters     []float64 `json:"parameters" yaml:"parameters"`
}

// Parameter returns the predicate's i-th weight.
func (p Predicate) Parameter(i int) (float64, bool) {
	if i < 0 || i >= len(p.Parameters) {
		return 0, false
	}
	return p.Parameters[i], true
}

// Snapshot is the read-only view of a trained model handed to a writer.
// Patterns is an arena; predicates refer to it by index.
type Snapshot struct {
	CorrectionConstant  int              `json:"correction_constant" yaml:"correction_constant"`
	CorrectionParameter float64          `json:"correction_parameter" yaml:"correction_parameter"`
	OutcomeLabels       []string         `json:"outcomes" yaml:"outcomes"`
	Patterns            []OutcomePattern `json:"patterns" yaml:"patterns"`
	Predicates          []Predicate      `json:"predicates" yaml:"predicates"`
}

// Metadata returns the singleton model row.
func (s *Snapshot) Metadata() ModelMetadata {
	return ModelMetadata{
		CorrectionConstant:  s.CorrectionConstant,
		CorrectionParameter: s.CorrectionParameter,
	}
}

// Pattern resolves an index into the pattern arena.
func (s *Snapshot) Pattern(i int) (OutcomePattern, bool) {
	if i < 0 || i >= len(s.Patterns) {
		return OutcomePattern{}, false
	}
	return s.Patterns[i], true
}

// ParameterTotal is the number of PredicateParameter rows the snapshot expands to.
func (s *Snapshot) ParameterTotal() int {
	n := 0
	for _, p := range s.Predicates {
		if p.ParameterCount > 0 {
			n += p.ParameterCount
		}
	}
	return n
}

// ─── Persisted rows ─────────────────────────────────────────────────────────

// ModelMetadata is the single Model row.
type ModelMetadata struct {
	CorrectionConstant  int     `json:"correction_constant"`
	CorrectionParameter float64 `json:"correction_parameter"`
}

// PredicateParameter is one expanded cell of the sparse parameter matrix.
type PredicateParameter struct {
	PredicateID int     `json:"predicate_id"`
	OutcomeID   int     `json:"outcome_id"`
	Weight      float64 `json:"weight"`
}

// ─── Results ────────────────────────────────────────────────────────────────

// TableCounts holds row counts for the four persisted tables.
type TableCounts struct {
	Models     int `json:"models"`
	Outcomes   int `json:"outcomes"`
	Predicates int `json:"predicates"`
	Parameters int `json:"parameters"`
}

// PersistResult describes a committed artifact.
type PersistResult struct {
	RunID       string      `json:"run_id"`
	Destination string      `json:"destination"`
	Rows        TableCounts `json:"rows"`
}

// ArtifactStats is what verifying a persisted artifact reports.
type ArtifactStats struct {
	Path          string        `json:"path"`
	SchemaVersion int           `json:"schema_version"`
	Metadata      ModelMetadata `json:"metadata"`
	Rows          TableCounts   `json:"rows"`
}
