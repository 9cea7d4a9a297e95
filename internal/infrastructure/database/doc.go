// Package database provides the charge point's local SQLite store.
//
// It manages:
//   - Opening the file with WAL mode and a busy timeout
//   - Versioned schema migrations read from an fs.FS
//   - Health checks and transaction helpers
//
// The store holds the transition journal. Nothing in it is needed to
// charge; if the file cannot be opened the charger runs without a journal.
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
