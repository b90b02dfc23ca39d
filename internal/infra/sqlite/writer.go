package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/maxent-labs/gisstore/internal/domain"
	"github.com/maxent-labs/gisstore/internal/infra/metrics"
)

var (
	_ domain.StructuralWriter = (*Writer)(nil)
	_ domain.ScalarWriter     = (*Writer)(nil)
	_ domain.ArtifactVerifier = (*Writer)(nil)
)

// Writer persists model snapshots as SQLite artifacts.
//
// Persist builds the artifact in a temporary file beside the destination and
// renames it over the destination only after the transaction commits, so a
// failed call leaves the destination exactly as it found it.
type Writer struct {
	opts   Options
	logger *zap.Logger
}

// NewWriter creates a Writer. A nil logger disables logging.
func NewWriter(opts Options, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{opts: opts, logger: logger.Named("sqlite")}
}

// Persist writes model to destination, replacing any artifact already there.
func (w *Writer) Persist(ctx context.Context, model *domain.Snapshot, destination string) (domain.PersistResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := w.logger.With(zap.String("run_id", runID), zap.String("destination", destination))

	metrics.PersistActive.Inc()
	defer metrics.PersistActive.Dec()

	result := domain.PersistResult{RunID: runID, Destination: destination}
	rows, err := w.persist(ctx, model, destination, runID)
	metrics.PersistDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		kind := domain.ErrorKind(err)
		metrics.PersistTotal.WithLabelValues("failed").Inc()
		metrics.PersistFailures.WithLabelValues(kind).Inc()
		log.Error("persist failed", zap.String("kind", kind), zap.Error(err))
		return result, err
	}

	result.Rows = rows
	metrics.PersistTotal.WithLabelValues("committed").Inc()
	metrics.RowsWritten.WithLabelValues(TableModel).Add(float64(rows.Models))
	metrics.RowsWritten.WithLabelValues(TableOutcome).Add(float64(rows.Outcomes))
	metrics.RowsWritten.WithLabelValues(TablePredicate).Add(float64(rows.Predicates))
	metrics.RowsWritten.WithLabelValues(TablePredicateParameter).Add(float64(rows.Parameters))
	log.Info("model persisted",
		zap.Int("outcomes", rows.Outcomes),
		zap.Int("predicates", rows.Predicates),
		zap.Int("parameters", rows.Parameters),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

func (w *Writer) persist(ctx context.Context, model *domain.Snapshot, destination, runID string) (domain.TableCounts, error) {
	if model == nil {
		return domain.TableCounts{}, domain.NewPersistError(domain.ErrIntegrityViolation, "persist", errors.New("nil model"))
	}

	tmp, err := prepareDestination(destination, runID)
	if err != nil {
		return domain.TableCounts{}, err
	}

	defer trackInFlight(tmp)()

	rows, err := w.writeArtifact(ctx, model, tmp)
	if err != nil {
		if rmErr := removeArtifact(tmp); rmErr != nil {
			w.logger.Warn("remove temporary artifact", zap.String("path", tmp), zap.Error(rmErr))
		}
		return domain.TableCounts{}, err
	}

	if err := os.Rename(tmp, destination); err != nil {
		_ = removeArtifact(tmp)
		return domain.TableCounts{}, domain.NewPersistError(domain.ErrDestinationUnavailable, "replace destination", err)
	}
	return rows, nil
}

// prepareDestination checks the destination can be replaced and returns the
// temporary path the artifact is built at.
func prepareDestination(destination, runID string) (string, error) {
	const op = "prepare destination"

	if destination == "" {
		return "", domain.NewPersistError(domain.ErrDestinationUnavailable, op, errors.New("empty path"))
	}
	if info, err := os.Stat(destination); err == nil && info.IsDir() {
		return "", domain.NewPersistError(domain.ErrDestinationUnavailable, op,
			fmt.Errorf("%s is a directory", destination))
	}
	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return "", domain.NewPersistError(domain.ErrDestinationUnavailable, op, err)
	}
	return TempPath(destination, runID), nil
}

// TempPath is where an in-flight artifact for destination is built.
func TempPath(destination, runID string) string {
	return destination + "." + runID + TempSuffix
}

// TempSuffix marks in-flight artifacts; leftovers are safe to delete.
const TempSuffix = ".tmp"

// writeArtifact creates the database at path and fills it in one transaction.
// The connection is closed before it returns, on every path.
func (w *Writer) writeArtifact(ctx context.Context, model *domain.Snapshot, path string) (rows domain.TableCounts, err error) {
	db, err := openStore(ctx, path, w.opts)
	if err != nil {
		return rows, domain.NewPersistError(domain.ErrDestinationUnavailable, "open store", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = domain.NewPersistError(domain.ErrTransactionFailure, "close store", cerr)
		}
	}()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return rows, domain.NewPersistError(domain.ErrTransactionFailure, "begin transaction", err)
	}
	defer tx.Rollback() // No-op after commit

	if err := CreateSchema(ctx, tx); err != nil {
		return rows, err
	}

	if rows.Models, err = insertModel(ctx, tx, model.Metadata()); err != nil {
		return rows, err
	}
	if rows.Outcomes, err = insertOutcomes(ctx, tx, model.OutcomeLabels); err != nil {
		return rows, err
	}
	if rows.Predicates, err = insertPredicates(ctx, tx, model.Predicates); err != nil {
		return rows, err
	}
	if rows.Parameters, err = insertPredicateParameters(ctx, tx, model); err != nil {
		return rows, err
	}

	if err := tx.Commit(); err != nil {
		return rows, domain.NewPersistError(domain.ErrTransactionFailure, "commit", err)
	}
	w.logger.Debug("artifact committed", zap.String("path", path))
	return rows, nil
}

// ─── Insert passes ──────────────────────────────────────────────────────────
// Passes run in this order: later passes reference ids assigned by earlier ones.

func insertModel(ctx context.Context, tx *sql.Tx, md domain.ModelMetadata) (int, error) {
	_, err := tx.ExecContext(ctx, `INSERT INTO Model VALUES (?, ?)`,
		md.CorrectionConstant, md.CorrectionParameter)
	if err != nil {
		if isConstraint(err) {
			// NaN binds as NULL and trips NOT NULL, as it does for weights.
			return 0, domain.NewPersistError(domain.ErrIntegrityViolation, "insert model", err)
		}
		return 0, domain.NewPersistError(domain.ErrTransactionFailure, "insert model", err)
	}
	return 1, nil
}

func insertOutcomes(ctx context.Context, tx *sql.Tx, labels []string) (int, error) {
	const op = "insert outcomes"

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO Outcome VALUES (?, ?)`)
	if err != nil {
		return 0, domain.NewPersistError(domain.ErrTransactionFailure, op, err)
	}
	defer stmt.Close()

	for id, label := range labels {
		if _, err := stmt.ExecContext(ctx, id, label); err != nil {
			return id, domain.NewPersistError(domain.ErrTransactionFailure, op,
				fmt.Errorf("outcome %d %q: %w", id, label, err))
		}
	}
	return len(labels), nil
}

func insertPredicates(ctx context.Context, tx *sql.Tx, predicates []domain.Predicate) (int, error) {
	const op = "insert predicates"

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO Predicate VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, domain.NewPersistError(domain.ErrTransactionFailure, op, err)
	}
	defer stmt.Close()

	for id, p := range predicates {
		if _, err := stmt.ExecContext(ctx, id, p.Label, p.PatternIndex, p.ParameterCount); err != nil {
			if isConstraint(err) {
				return id, domain.NewIntegrityError(op, id, p.Label, err)
			}
			return id, domain.NewPersistError(domain.ErrTransactionFailure, op, err)
		}
	}
	return len(predicates), nil
}

func insertPredicateParameters(ctx context.Context, tx *sql.Tx, model *domain.Snapshot) (int, error) {
	const op = "insert predicate parameters"

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO PredicateParameter VALUES (?, ?, ?)`)
	if err != nil {
		return 0, domain.NewPersistError(domain.ErrTransactionFailure, op, err)
	}
	defer stmt.Close()

	n := 0
	err = Expand(model, func(pp domain.PredicateParameter) error {
		if _, err := stmt.ExecContext(ctx, pp.PredicateID, pp.OutcomeID, pp.Weight); err != nil {
			if isConstraint(err) {
				return domain.NewIntegrityError(op, pp.PredicateID, model.Predicates[pp.PredicateID].Label,
					fmt.Errorf("outcome %d: %w", pp.OutcomeID, err))
			}
			return domain.NewPersistError(domain.ErrTransactionFailure, op, err)
		}
		n++
		return nil
	})
	return n, err
}

// isConstraint reports whether err is a SQLite constraint violation
// (unique index, primary key, NOT NULL).
func isConstraint(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

// ─── Scalar primitives ──────────────────────────────────────────────────────
// The relational backend persists structurally; scalar streaming is refused.

// WriteString always fails with ErrUnsupportedOperation.
func (w *Writer) WriteString(string) error {
	return domain.NewPersistError(domain.ErrUnsupportedOperation, "write string", nil)
}

// WriteInt32 always fails with ErrUnsupportedOperation.
func (w *Writer) WriteInt32(int32) error {
	return domain.NewPersistError(domain.ErrUnsupportedOperation, "write int32", nil)
}

// WriteDouble always fails with ErrUnsupportedOperation.
func (w *Writer) WriteDouble(float64) error {
	return domain.NewPersistError(domain.ErrUnsupportedOperation, "write double", nil)
}

// Close is a no-op: Persist releases its resources before returning.
func (w *Writer) Close() error { return nil }
