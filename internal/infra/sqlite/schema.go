package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/maxent-labs/gisstore/internal/domain"
)

// SchemaVersion is written to PRAGMA user_version of every artifact.
const SchemaVersion = 1

// Table names, in the order they are populated.
const (
	TableModel              = "Model"
	TableOutcome            = "Outcome"
	TablePredicate          = "Predicate"
	TablePredicateParameter = "PredicateParameter"
)

// execer is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// schema is applied in order. Column order is part of the artifact format.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS Model (
		CorrectionConstant  INTEGER NOT NULL,
		CorrectionParameter FLOAT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS Outcome (
		OutcomeID    INTEGER NOT NULL PRIMARY KEY UNIQUE,
		OutcomeLabel VARCHAR(255) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS Predicate (
		PredicateID    INTEGER NOT NULL PRIMARY KEY UNIQUE,
		PredicateLabel VARCHAR(255) NOT NULL,
		OutcomePattern INTEGER NOT NULL,
		ParameterCount INTEGER NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS IX_PredicateLabel ON Predicate (PredicateLabel ASC)`,
	`CREATE TABLE IF NOT EXISTS PredicateParameter (
		PredicateID INTEGER NOT NULL,
		OutcomeID   INTEGER NOT NULL,
		Parameter   FLOAT NOT NULL,
		PRIMARY KEY (PredicateID, OutcomeID)
	)`,
	fmt.Sprintf(`PRAGMA user_version = %d`, SchemaVersion),
}

// CreateSchema defines the four artifact tables. It is idempotent.
func CreateSchema(ctx context.Context, db execer) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return domain.NewPersistError(domain.ErrSchemaCreation, "create schema",
				fmt.Errorf("%w\nSQL: %s", err, stmt))
		}
	}
	return nil
}
