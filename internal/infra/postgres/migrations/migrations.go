package migrations

import "github.com/uptrace/bun/migrate"

// Migrations collects the schema changes; each file registers itself from init.
var Migrations = migrate.NewMigrations()
