// Package migrations embeds the SQL schema for the relational event stores.
// PostgreSQL migrations live at the top level as *.up.sql / *.down.sql pairs;
// the SQLite schema lives under sqlite/.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

//go:embed sqlite/*.sql
var SQLiteFS embed.FS
