// Package migrations embeds the SQL schema for the sheets/nodes/
// connections/versions reference persistence layer and exposes it as a
// bun migrate.Migrations set.
package migrations

import (
	"embed"

	"github.com/uptrace/bun/migrate"
)

//go:embed *.sql
var FS embed.FS

// Migrations holds every discovered .up.sql/.down.sql pair, sorted by
// their numeric prefix.
var Migrations = migrate.NewMigrations()

func init() {
	if err := Migrations.Discover(FS); err != nil {
		panic(err)
	}
}
