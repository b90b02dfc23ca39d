package domain

import "context"

// ─── Writer Interfaces ──────────────────────────────────────────────────────
// A model writer is either a streaming scalar backend (a flat token stream of
// strings, ints and doubles) or a structural backend that persists the whole
// model in one call. Callers pick one; a backend need not offer both.

// ScalarWriter streams a model as individual scalar values.
type ScalarWriter interface {
	WriteString(data string) error
	WriteInt32(data int32) error
	WriteDouble(data float64) error
	Close() error
}

// StructuralWriter persists a complete model snapshot to a destination,
// replacing anything already there.
type StructuralWriter interface {
	Persist(ctx context.Context, model *Snapshot, destination string) (PersistResult, error)
}

// ArtifactVerifier checks a persisted artifact without loading it for inference.
type ArtifactVerifier interface {
	Verify(ctx context.Context, path string) (ArtifactStats, error)
}
