// Package database owns the SQLite file that backs the event log and
// macro run history.
//
// Open establishes the connection in WAL mode behind a single-writer
// pool, sets the file to owner-only permissions, and Migrate brings the
// schema up to date from the embedded migration files:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations ship in pairs (.up.sql / .down.sql) and stay additive: new
// columns are nullable or defaulted, and existing columns are never
// dropped or renamed, so an older binary can still read a newer file.
package database
