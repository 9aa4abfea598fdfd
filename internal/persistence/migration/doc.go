// Package migration applies versioned SQL schema changes embedded in the
// binary.
//
// Migration files follow the naming convention {version}_{description}.sql
// (for example "001_create_interview_proposals.sql") and live in one
// directory per dialect. Applied versions are tracked in a schema_migrations
// table so each file runs exactly once, inside its own transaction.
//
// Example usage:
//
//	manager, err := migration.NewManager(db, migration.SQLite, logger)
//	if err != nil {
//		return err
//	}
//	if err := manager.Run(ctx); err != nil {
//		return err
//	}
package migration
