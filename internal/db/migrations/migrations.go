// Package migrations embeds the goose SQL migration files consumed by
// db.RunMigrations. Keeping the embed.FS in its own leaf package lets
// migrate.go import it without dragging in the rest of internal/db.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
