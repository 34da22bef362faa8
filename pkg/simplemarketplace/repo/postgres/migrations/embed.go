package migrations

import "embed"

// Migrations holds the embedded schema migration scripts.
//
//go:embed *.sql
var Migrations embed.FS
