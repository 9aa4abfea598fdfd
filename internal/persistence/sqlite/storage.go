package sqlite

import (
	"context"
	"log/slog"

	"github.com/example/interview-scheduler/internal/persistence/migration"
)

// Storage implements the persistence repositories on a SQLite database.
type Storage struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	logger *slog.Logger
}

// Open connects to the database at path using DefaultConfig.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Storage, error) {
	return OpenWithConfig(ctx, DefaultConfig(path), logger)
}

// OpenWithConfig connects using an explicit configuration.
func OpenWithConfig(ctx context.Context, config Config, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := NewConnectionPool(ctx, config)
	if err != nil {
		return nil, err
	}
	return &Storage{
		pool:   pool,
		mapper: NewErrorMapper(),
		logger: logger,
	}, nil
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Ping verifies the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending embedded migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	return migration.NewManager(s.pool.DB(), migration.SQLite, s.logger).Run(ctx)
}
