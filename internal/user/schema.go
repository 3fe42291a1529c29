package user

import _ "embed"

// Schema is the versioned DDL applied at startup via EnsureSchema.
//
//go:embed schema.sql
var Schema string
