// Package migrations embeds the bridge's SQL schema migrations.
package migrations

import "embed"

// FS holds every *.sql file in this directory at its root; pass "." as the
// directory to database.DB.Migrate.
//
//go:embed *.sql
var FS embed.FS
