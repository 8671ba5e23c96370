// Package database provides the SQLite connection used to cache known
// accessories between runs.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS, "."); err != nil {
//	    return err
//	}
//
// Migrations are additive: new columns are NULLABLE or have defaults, and
// every .up.sql has a matching .down.sql.
package database
