package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Dialect captures the few SQL differences between supported databases.
type Dialect struct {
	Name string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
}

// SQLite uses positional question marks.
var SQLite = Dialect{Name: "sqlite", Placeholder: func(int) string { return "?" }}

// Postgres uses numbered dollar parameters.
var Postgres = Dialect{Name: "postgres", Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) }}

// Executor runs migrations and maintains the schema_migrations table.
type Executor struct {
	db      *sql.DB
	dialect Dialect
}

// NewExecutor creates an executor for db using the given dialect.
func NewExecutor(db *sql.DB, dialect Dialect) *Executor {
	if dialect.Placeholder == nil {
		dialect = SQLite
	}
	return &Executor{db: db, dialect: dialect}
}

func (e *Executor) bind(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(e.dialect.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// InitializeVersionTable creates schema_migrations if it does not exist.
func (e *Executor) InitializeVersionTable(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL,
		checksum TEXT NOT NULL DEFAULT '',
		execution_time_ms BIGINT NOT NULL DEFAULT 0
	)`
	if _, err := e.db.ExecContext(ctx, ddl); err != nil {
		return &DatabaseError{Operation: "create schema_migrations table", Err: err}
	}
	return nil
}

// Applied returns every recorded migration ordered by version.
func (e *Executor) Applied(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := e.db.QueryContext(ctx, `SELECT version, applied_at, checksum, execution_time_ms FROM schema_migrations ORDER BY version ASC`)
	if err != nil {
		return nil, &DatabaseError{Operation: "list applied migrations", Err: err}
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			row       AppliedMigration
			appliedAt string
			elapsedMs int64
		)
		if err := rows.Scan(&row.Version, &appliedAt, &row.Checksum, &elapsedMs); err != nil {
			return nil, &DatabaseError{Operation: "scan applied migration", Err: err}
		}
		if row.AppliedAt, err = time.Parse(time.RFC3339, appliedAt); err != nil {
			return nil, &DatabaseError{Version: row.Version, Operation: "parse applied_at", Err: err}
		}
		row.ExecutionTime = time.Duration(elapsedMs) * time.Millisecond
		applied = append(applied, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &DatabaseError{Operation: "iterate applied migrations", Err: err}
	}
	return applied, nil
}

// Execute runs m and records it in one transaction.
func (e *Executor) Execute(ctx context.Context, m Migration, appliedAt time.Time) (err error) {
	started := time.Now()

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return &DatabaseError{Version: m.Version, Operation: "begin transaction", Err: err}
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, m.SQL); err != nil {
		return &DatabaseError{Version: m.Version, Operation: "execute " + m.FileName, Err: err}
	}

	record := e.bind(`INSERT INTO schema_migrations (version, applied_at, checksum, execution_time_ms) VALUES (?, ?, ?, ?)`)
	if _, err = tx.ExecContext(ctx, record, m.Version, appliedAt.UTC().Format(time.RFC3339), m.Checksum, time.Since(started).Milliseconds()); err != nil {
		return &DatabaseError{Version: m.Version, Operation: "record migration", Err: err}
	}

	if err = tx.Commit(); err != nil {
		return &DatabaseError{Version: m.Version, Operation: "commit transaction", Err: err}
	}
	return nil
}
