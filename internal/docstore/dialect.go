// Package docstore is the relational substrate described in spec §4.3: a
// per-namespace metadata table, a shared chunk table keyed by document
// id and part number, and a shared staging buffer for small payloads.
//
// Modeled on the teacher's SQLStore/SQLTaskStore pattern (see
// v2/ratelimit, v2/task in the retrieval pack): one code path against
// database/sql, with a small dialect switch for placeholder style and
// upsert syntax rather than an ORM or per-engine client.
package docstore

import (
	"fmt"
	"regexp"
)

// Dialect names the database/sql driver family a Store talks to. Only
// placeholder syntax and a handful of DDL/upsert clauses vary between
// dialects; the rest of the SQL text is shared.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
	DialectMySQL    Dialect = "mysql"
)

func (d Dialect) valid() bool {
	switch d {
	case DialectPostgres, DialectSQLite, DialectMySQL:
		return true
	default:
		return false
	}
}

// placeholder returns the nth (1-based) bind placeholder for the dialect.
func (d Dialect) placeholder(n int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// autoIncrement returns the DDL fragment for an auto-incrementing bigint
// primary key column, used only by the job table (internal/indexing).
func (d Dialect) autoIncrement() string {
	switch d {
	case DialectPostgres:
		return "BIGSERIAL PRIMARY KEY"
	case DialectMySQL:
		return "BIGINT PRIMARY KEY AUTO_INCREMENT"
	default: // sqlite
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
}

// timestampType returns the DDL column type used for created_at/updated_at.
func (d Dialect) timestampType() string {
	if d == DialectPostgres {
		return "TIMESTAMPTZ"
	}
	return "TIMESTAMP"
}

// now returns the SQL fragment producing the current timestamp.
func (d Dialect) now() string {
	if d == DialectSQLite {
		return "CURRENT_TIMESTAMP"
	}
	return "now()"
}

// namespaceRe enforces the conservative identifier regex called out as a
// TODO in the source and mandated by spec §9's open-question resolution:
// letters/underscore first, then up to 62 further word characters.
var namespaceRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidateNamespace rejects any namespace name that is not safe to
// interpolate into a table identifier.
func ValidateNamespace(namespace string) error {
	if !namespaceRe.MatchString(namespace) {
		return fmt.Errorf("docstore: invalid namespace %q: must match %s", namespace, namespaceRe.String())
	}
	return nil
}

// metaTableName derives the per-namespace metadata table name.
func metaTableName(namespace string) string {
	return namespace + "_metadata"
}

// quoteIdent quotes a DDL identifier that has already passed
// ValidateNamespace, so it is not itself a SQL-injection vector; the
// quoting only avoids collisions with reserved words.
func quoteIdent(d Dialect, ident string) string {
	if d == DialectMySQL {
		return "`" + ident + "`"
	}
	return `"` + ident + `"`
}
