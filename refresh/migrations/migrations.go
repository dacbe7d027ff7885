// Package migrations embeds the goose schema migrations for the
// PostgreSQL-backed refresh token store.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
