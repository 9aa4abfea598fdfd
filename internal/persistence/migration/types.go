package migration

import (
	"fmt"
	"strings"
	"time"
)

// Migration represents a versioned schema change and its metadata.
type Migration struct {
	Version     string
	Description string
	SQL         string
	FilePath    string
	Checksum    string
}

// AppliedMigration represents a migration recorded in schema_migrations.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// Status summarises the migration state of a database.
type Status struct {
	CurrentVersion string
	Applied        []AppliedMigration
	Pending        []Migration
}

// Dialect captures the differences between the supported databases.
type Dialect struct {
	Name string
	// Dir is the directory within FS holding the dialect's files.
	Dir string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
}

// SQLite uses positional question mark parameters.
var SQLite = Dialect{
	Name:        "sqlite",
	Dir:         "sqlite",
	Placeholder: func(int) string { return "?" },
}

// Postgres uses numbered dollar parameters.
var Postgres = Dialect{
	Name:        "postgres",
	Dir:         "postgres",
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
}

func (d Dialect) placeholders(count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = d.Placeholder(i + 1)
	}
	return strings.Join(parts, ", ")
}
