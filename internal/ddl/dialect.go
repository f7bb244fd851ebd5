package ddl

import (
	"fmt"
	"strings"

	"sparkify/internal/schema"
)

// Dialect selects identifier quoting, placeholders and type names.
type Dialect string

const (
	Postgres Dialect = "postgres"
	MSSQL    Dialect = "mssql"
	SQLite   Dialect = "sqlite"
	DuckDB   Dialect = "duckdb"
)

// Quote quotes a single identifier segment.
//
//	postgres, sqlite, duckdb:  time     -> "time"
//	mssql:                     weird]id -> [weird]]id]
func (d Dialect) Quote(id string) string {
	if d == MSSQL {
		return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
	}
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// QuoteFQN quotes a possibly schema-qualified name segment by segment.
func (d Dialect) QuoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, d.Quote(p))
	}
	return strings.Join(out, ".")
}

// Placeholder returns the bind marker for the n-th (1-based) parameter.
func (d Dialect) Placeholder(n int) string {
	switch d {
	case Postgres:
		return fmt.Sprintf("$%d", n)
	case MSSQL:
		return fmt.Sprintf("@p%d", n)
	default:
		return "?"
	}
}

// SQLType maps a column kind to the dialect's type. Indexed string columns
// get a bounded type on SQL Server, which cannot index NVARCHAR(MAX).
func (d Dialect) SQLType(k schema.Kind, indexed bool) string {
	switch d {
	case Postgres:
		switch k {
		case schema.Int64:
			return "BIGINT"
		case schema.Double:
			return "DOUBLE PRECISION"
		default:
			return "TEXT"
		}
	case MSSQL:
		switch k {
		case schema.Int64:
			return "BIGINT"
		case schema.Double:
			return "FLOAT"
		default:
			if indexed {
				return "NVARCHAR(450)"
			}
			return "NVARCHAR(MAX)"
		}
	case SQLite:
		switch k {
		case schema.Int64:
			return "INTEGER"
		case schema.Double:
			return "REAL"
		default:
			return "TEXT"
		}
	default:
		switch k {
		case schema.Int64:
			return "BIGINT"
		case schema.Double:
			return "DOUBLE"
		default:
			return "VARCHAR"
		}
	}
}

// FromSchema derives a TableDef for a star-schema table. Partition columns
// become the secondary index so SQL sinks keep the partition access path.
func FromSchema(t schema.Table, d Dialect) TableDef {
	indexed := make(map[string]bool, len(t.PartitionBy))
	for _, p := range t.PartitionBy {
		indexed[p] = true
	}
	cols := make([]ColumnDef, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = ColumnDef{
			Name:     c.Name,
			SQLType:  d.SQLType(c.Kind, indexed[c.Name]),
			Nullable: c.Nullable,
		}
	}
	return TableDef{
		FQN:     t.Name,
		Dialect: d,
		Columns: cols,
		Index:   append([]string(nil), t.PartitionBy...),
	}
}
