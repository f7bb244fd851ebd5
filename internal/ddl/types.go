package ddl

// ColumnDef describes a single column in a table definition.
//
// Fields:
//   - Name: logical column name (unquoted; quoting happens at render time)
//   - SQLType: target SQL type (e.g., TEXT, BIGINT, DOUBLE PRECISION)
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
//   - Default: raw default expression (e.g., 'anon', CURRENT_TIMESTAMP)
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef holds the table name, the dialect it is rendered for and an
// ordered list of columns. FQN may be schema-qualified ("public.songs");
// each dotted segment is quoted separately.
type TableDef struct {
	FQN     string
	Dialect Dialect
	Columns []ColumnDef

	// Index lists the columns of a secondary, non-unique index created after
	// the table is loaded. Empty means no index.
	Index []string
}
