// Package ddl models SQL tables and renders the statements the SQL sinks run
// to replace a star-schema table: DROP, CREATE, INSERT and the partition
// index. Identifiers are always quoted for the target Dialect; Default is
// emitted as raw SQL.
package ddl

import (
	"fmt"
	"strings"
)

// BuildCreateTableSQL renders a CREATE TABLE statement from a TableDef.
//
// Rules:
//
//   - t.FQN must be non-empty; each dotted segment is quoted.
//
//   - Each column must have a non-empty Name and SQLType.
//
//   - A column is rendered as:
//
//     <"Name"> <SQLType> [NOT NULL] [DEFAULT <Default>]
//
//   - Columns with PrimaryKey == true are collected into a trailing
//     PRIMARY KEY (...) clause.
func BuildCreateTableSQL(t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	d := t.Dialect
	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", name)
		}

		var sb strings.Builder
		sb.WriteString(d.Quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)

		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}

		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}

		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, d.Quote(name))
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	return fmt.Sprintf(
		"CREATE TABLE %s (\n  %s\n);",
		d.QuoteFQN(fqn),
		strings.Join(cols, ",\n  "),
	), nil
}

// DropTableSQL renders DROP TABLE IF EXISTS for t.
func DropTableSQL(t TableDef) string {
	return "DROP TABLE IF EXISTS " + t.Dialect.QuoteFQN(t.FQN) + ";"
}

// IndexName derives the secondary index name, e.g. ix_songs_year_artist_id.
func IndexName(t TableDef) string {
	base := t.FQN
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		base = base[i+1:]
	}
	return "ix_" + base + "_" + strings.Join(t.Index, "_")
}

// CreateIndexSQL renders the secondary index over t.Index. ok is false when
// the table has no index columns.
func CreateIndexSQL(t TableDef) (stmt string, ok bool) {
	if len(t.Index) == 0 {
		return "", false
	}
	d := t.Dialect
	cols := make([]string, len(t.Index))
	for i, c := range t.Index {
		cols[i] = d.Quote(c)
	}
	return fmt.Sprintf("CREATE INDEX %s ON %s (%s);",
		d.Quote(IndexName(t)), d.QuoteFQN(t.FQN), strings.Join(cols, ", ")), true
}

// InsertSQL renders a single-row parameterized INSERT over every column.
func InsertSQL(t TableDef) string {
	d := t.Dialect
	names := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = d.Quote(c.Name)
		marks[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteFQN(t.FQN), strings.Join(names, ", "), strings.Join(marks, ", "))
}
