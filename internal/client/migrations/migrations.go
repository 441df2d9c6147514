// Package migrations embeds the client's goose SQLite migrations.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
