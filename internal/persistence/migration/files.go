package migration

import "embed"

// FS holds the migration files of every supported dialect.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
