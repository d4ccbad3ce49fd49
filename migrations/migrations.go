// Package migrations embeds the PostgreSQL schema migrations so the
// migrate command and integration tests run the same files.
package migrations

import "embed"

// FS holds the numbered up and down SQL files.
//
//go:embed *.sql
var FS embed.FS
