// Package migrations compiles the schema migration files into the
// binary, so deployments never depend on loose .sql files.
package migrations

import (
	"embed"

	"github.com/nerrad567/switchboard-core/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

// Importing this package for side effects points the database layer at
// the embedded files.
func init() {
	database.MigrationsFS = files
	database.MigrationsDir = "."
}
