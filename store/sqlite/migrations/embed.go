package migrations

import "embed"

// FS contains embedded SQLite migrations for the play history.
//
//go:embed *.sql
var FS embed.FS
