package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Table names the table that holds one entity type.
type Table struct {
	// Schema is optional; the search path applies when empty.
	Schema string
	Name   string
}

// Identifier returns the table as a pgx identifier.
func (t Table) Identifier() pgx.Identifier {
	if t.Schema == "" {
		return pgx.Identifier{t.Name}
	}
	return pgx.Identifier{t.Schema, t.Name}
}

// String returns the quoted, schema-qualified table name.
func (t Table) String() string {
	return t.Identifier().Sanitize()
}

func (t Table) index(suffix string) string {
	return pgx.Identifier{t.Name + "_" + suffix}.Sanitize()
}

// Schema returns the DDL that provisions table. Owned tables also get the
// ownership and visibility columns. Every statement is idempotent.
//
// Rows are live while soft_delete_date is NULL. The domain fields of an entity
// are stored as JSON in payload; the ownership columns mirror the payload so
// they can be filtered and indexed.
func Schema(table Table, owned bool) []string {
	var stmts []string
	if table.Schema != "" {
		stmts = append(stmts, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pgx.Identifier{table.Schema}.Sanitize()))
	}

	columns := `
			id UUID PRIMARY KEY,
			created_date TIMESTAMPTZ NOT NULL,
			last_modified_date TIMESTAMPTZ NOT NULL,
			soft_delete_date TIMESTAMPTZ,
			payload JSONB NOT NULL DEFAULT '{}'::jsonb`
	if owned {
		columns += `,
			owner_id UUID NOT NULL,
			is_publicly_readable BOOLEAN NOT NULL DEFAULT FALSE,
			is_discoverable BOOLEAN NOT NULL DEFAULT TRUE`
	}
	stmts = append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s\n\t\t)", table, columns))

	stmts = append(stmts, fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (id)", table.index("id_key"), table))
	if owned {
		stmts = append(stmts,
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (id, owner_id, is_publicly_readable)", table.index("owner_visibility_idx"), table),
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (owner_id) WHERE soft_delete_date IS NULL", table.index("owner_live_idx"), table),
		)
	}
	return stmts
}
