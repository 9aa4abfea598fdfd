package migration

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
)

// Manager applies pending migrations for one dialect.
type Manager struct {
	executor *Executor
	files    fs.FS
	dialect  Dialect
	logger   *slog.Logger
}

// NewManager wires a manager that reads migrations from the embedded FS.
func NewManager(db *sql.DB, dialect Dialect, logger *slog.Logger) *Manager {
	return NewManagerWithFS(db, dialect, FS, logger)
}

// NewManagerWithFS wires a manager reading migrations from files.
func NewManagerWithFS(db *sql.DB, dialect Dialect, files fs.FS, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		executor: NewExecutor(db, dialect),
		files:    files,
		dialect:  dialect,
		logger:   logger.With("component", "migration", "dialect", dialect.Name),
	}
}

// Run applies every pending migration in version order and stops at the first failure.
func (m *Manager) Run(ctx context.Context) error {
	status, err := m.Status(ctx)
	if err != nil {
		return err
	}

	if len(status.Pending) == 0 {
		m.logger.Info("schema up to date", "version", status.CurrentVersion)
		return nil
	}

	m.logger.Info("applying migrations", "current_version", status.CurrentVersion, "pending", len(status.Pending))
	for _, migration := range status.Pending {
		elapsed, err := m.executor.Apply(ctx, migration)
		if err != nil {
			m.logger.Error("migration failed", "version", migration.Version, "file", migration.FilePath, "error", err)
			return NewMigrationError(migration.Version, migration.FilePath, "execute migration", fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}
		m.logger.Info("migration applied", "version", migration.Version, "description", migration.Description, "duration", elapsed)
	}
	return nil
}

// Status reports applied and pending migrations. It fails when an applied
// migration's checksum no longer matches the embedded file.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return Status{}, err
	}

	available, err := Scan(m.files, m.dialect.Dir)
	if err != nil {
		return Status{}, err
	}

	applied, err := m.executor.Applied(ctx)
	if err != nil {
		return Status{}, err
	}

	appliedByVersion := make(map[string]AppliedMigration, len(applied))
	for _, record := range applied {
		appliedByVersion[record.Version] = record
	}

	status := Status{Applied: applied}
	if len(applied) > 0 {
		status.CurrentVersion = applied[len(applied)-1].Version
	}

	for _, migration := range available {
		record, ok := appliedByVersion[migration.Version]
		if !ok {
			status.Pending = append(status.Pending, migration)
			continue
		}
		if record.Checksum != "" && record.Checksum != migration.Checksum {
			return Status{}, NewMigrationError(migration.Version, migration.FilePath, "verify checksum", ErrChecksumMismatch)
		}
	}
	return status, nil
}
