// Package migrations embeds the goose SQL migrations for the Postgres
// stores.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
