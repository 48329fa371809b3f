package migration

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"time"
)

// Manager applies pending migrations in version order.
type Manager struct {
	executor *Executor
	fsys     fs.FS
	dir      string
	now      func() time.Time
	logger   *slog.Logger
}

// NewManager creates a manager that reads migrations from dir in fsys.
func NewManager(db *sql.DB, dialect Dialect, fsys fs.FS, dir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		executor: NewExecutor(db, dialect),
		fsys:     fsys,
		dir:      dir,
		now:      time.Now,
		logger:   logger.With("component", "migration", "dialect", dialect.Name),
	}
}

// Run applies every pending migration. Applied files whose checksum changed
// abort the run.
func (m *Manager) Run(ctx context.Context) error {
	started := time.Now()

	status, err := m.Status(ctx)
	if err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "schema version", "current_version", status.CurrentVersion, "pending", len(status.Pending))

	for i, migration := range status.Pending {
		m.logger.InfoContext(ctx, "applying migration",
			"version", migration.Version,
			"description", migration.Description,
			"file", migration.FileName,
			"step", fmt.Sprintf("%d/%d", i+1, len(status.Pending)),
		)
		if err := m.executor.Execute(ctx, migration, m.now()); err != nil {
			m.logger.ErrorContext(ctx, "migration failed", "version", migration.Version, "error", err)
			return &MigrationError{
				Version:   migration.Version,
				FileName:  migration.FileName,
				Operation: "execute migration",
				Err:       fmt.Errorf("%w: %w", ErrMigrationFailed, err),
			}
		}
	}

	if len(status.Pending) > 0 {
		m.logger.InfoContext(ctx, "migrations applied", "count", len(status.Pending), "duration", time.Since(started))
	}
	return nil
}

// Status compares the files in the source with the applied versions.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return Status{}, err
	}

	migrations, err := Scan(m.fsys, m.dir)
	if err != nil {
		return Status{}, err
	}

	applied, err := m.executor.Applied(ctx)
	if err != nil {
		return Status{}, err
	}

	byVersion := make(map[int]AppliedMigration, len(applied))
	status := Status{Applied: applied}
	for _, row := range applied {
		byVersion[row.Version] = row
		if row.Version > status.CurrentVersion {
			status.CurrentVersion = row.Version
		}
	}

	for _, migration := range migrations {
		row, done := byVersion[migration.Version]
		if !done {
			status.Pending = append(status.Pending, migration)
			continue
		}
		if row.Checksum != "" && row.Checksum != migration.Checksum {
			return Status{}, &MigrationError{
				Version:   migration.Version,
				FileName:  migration.FileName,
				Operation: "verify checksum",
				Err:       ErrChecksumMismatch,
			}
		}
	}
	return status, nil
}
