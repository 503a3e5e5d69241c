// Package migrations embeds the SQL migration files for the local
// client database. They are applied with goose on startup.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
