// Package migrations embeds the goose SQL migrations for the account tables
// and for the tracker tables that renames rewrite.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
