package migrations

import "embed"

// FS contains embedded SQLite migrations for draft storage.
//
//go:embed *.sql
var FS embed.FS
