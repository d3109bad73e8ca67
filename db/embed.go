// Package db embeds the menu catalog schema so the server and the seed
// command can apply migrations without shipping SQL files alongside the
// binary.
package db

import _ "embed"

// Schema holds the DDL for the menu_items and additions tables.
//
//go:embed migrations/001_schema.sql
var Schema string
