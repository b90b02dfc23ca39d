package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/maxent-labs/gisstore/internal/domain"
	"github.com/maxent-labs/gisstore/internal/infra/metrics"
)

// Verify opens the artifact at path read-only and checks it is complete and
// internally consistent: one Model row, dense 0-based outcome and predicate
// ids, unique predicate labels, no dangling parameter rows, and exactly
// ParameterCount parameter rows per predicate.
func Verify(ctx context.Context, path string) (domain.ArtifactStats, error) {
	stats, err := verify(ctx, path)
	if err != nil {
		metrics.VerifyTotal.WithLabelValues("failed").Inc()
		return stats, err
	}
	metrics.VerifyTotal.WithLabelValues("ok").Inc()
	return stats, nil
}

// Verify implements domain.ArtifactVerifier.
func (w *Writer) Verify(ctx context.Context, path string) (domain.ArtifactStats, error) {
	return Verify(ctx, path)
}

func verify(ctx context.Context, path string) (stats domain.ArtifactStats, err error) {
	const op = "verify artifact"
	stats.Path = path

	db, err := openReadOnly(ctx, path)
	if err != nil {
		return stats, domain.NewPersistError(domain.ErrDestinationUnavailable, op, err)
	}
	defer db.Close()

	invalid := func(format string, args ...any) error {
		return domain.NewPersistError(domain.ErrIntegrityViolation, op, fmt.Errorf(format, args...))
	}

	if err := db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&stats.SchemaVersion); err != nil {
		return stats, invalid("read schema version: %w", err)
	}
	if stats.SchemaVersion != SchemaVersion {
		return stats, invalid("schema version %d, want %d", stats.SchemaVersion, SchemaVersion)
	}

	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM Model`).Scan(&stats.Rows.Models); err != nil {
		return stats, invalid("count model rows: %w", err)
	}
	if stats.Rows.Models != 1 {
		return stats, invalid("%d model rows, want 1", stats.Rows.Models)
	}
	err = db.QueryRowContext(ctx, `SELECT CorrectionConstant, CorrectionParameter FROM Model`).
		Scan(&stats.Metadata.CorrectionConstant, &stats.Metadata.CorrectionParameter)
	if err != nil {
		return stats, invalid("read model row: %w", err)
	}

	if stats.Rows.Outcomes, err = denseCount(ctx, db, TableOutcome, "OutcomeID"); err != nil {
		return stats, invalid("%w", err)
	}
	if stats.Rows.Predicates, err = denseCount(ctx, db, TablePredicate, "PredicateID"); err != nil {
		return stats, invalid("%w", err)
	}
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM PredicateParameter`).Scan(&stats.Rows.Parameters); err != nil {
		return stats, invalid("count parameter rows: %w", err)
	}

	var label string
	err = db.QueryRowContext(ctx, `
		SELECT PredicateLabel FROM Predicate
		GROUP BY PredicateLabel HAVING COUNT(*) > 1 LIMIT 1`).Scan(&label)
	if err == nil {
		return stats, invalid("duplicate predicate label %q", label)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return stats, invalid("check predicate labels: %w", err)
	}

	var orphans int
	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM PredicateParameter pp
		LEFT JOIN Outcome o ON o.OutcomeID = pp.OutcomeID
		LEFT JOIN Predicate p ON p.PredicateID = pp.PredicateID
		WHERE o.OutcomeID IS NULL OR p.PredicateID IS NULL`).Scan(&orphans)
	if err != nil {
		return stats, invalid("check parameter references: %w", err)
	}
	if orphans > 0 {
		return stats, invalid("%d parameter rows reference missing outcomes or predicates", orphans)
	}

	var (
		predicateID   int
		declared, got int
	)
	err = db.QueryRowContext(ctx, `
		SELECT p.PredicateID, p.PredicateLabel, p.ParameterCount, COALESCE(c.n, 0)
		FROM Predicate p
		LEFT JOIN (
			SELECT PredicateID, COUNT(*) AS n FROM PredicateParameter GROUP BY PredicateID
		) c ON c.PredicateID = p.PredicateID
		WHERE COALESCE(c.n, 0) != p.ParameterCount
		ORDER BY p.PredicateID LIMIT 1`).Scan(&predicateID, &label, &declared, &got)
	if err == nil {
		return stats, domain.NewIntegrityError(op, predicateID, label,
			fmt.Errorf("%d parameter rows, declared %d", got, declared))
	} else if !errors.Is(err, sql.ErrNoRows) {
		return stats, invalid("check parameter counts: %w", err)
	}

	return stats, nil
}

// denseCount returns the row count of table after checking its id column is
// exactly 0..n-1.
func denseCount(ctx context.Context, db *sql.DB, table, idColumn string) (int, error) {
	var n, lo, hi int
	q := fmt.Sprintf(`SELECT COUNT(*), COALESCE(MIN(%[2]s), 0), COALESCE(MAX(%[2]s), -1) FROM %[1]s`, table, idColumn)
	if err := db.QueryRowContext(ctx, q).Scan(&n, &lo, &hi); err != nil {
		return 0, fmt.Errorf("count %s rows: %w", table, err)
	}
	if n > 0 && (lo != 0 || hi != n-1) {
		return n, fmt.Errorf("%s ids span [%d,%d] for %d rows, want [0,%d]", table, lo, hi, n, n-1)
	}
	return n, nil
}
