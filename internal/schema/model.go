// Package schema describes the star-schema tables produced by a run: their
// columns, column kinds and partition columns. Sinks render files or DDL from
// these descriptions; builders emit rows in Columns order.
package schema

import "fmt"

// TimestampLayout formats time.start_time and songplays.start_time.
const TimestampLayout = "2006-01-02 15:04:05"

// Kind is the storage type of a column value.
type Kind int

const (
	String Kind = iota // Go string
	Int64              // Go int64
	Double             // Go float64
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Int64:
		return "int64"
	case Double:
		return "double"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Column is one output column. Nullable columns carry nil for missing values.
type Column struct {
	Name     string
	Kind     Kind
	Nullable bool
}

// Table is one output table.
type Table struct {
	Name        string
	Columns     []Column
	PartitionBy []string
}

// ColumnNames returns all column names in row order.
func (t Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Index returns the position of the named column, or -1.
func (t Table) Index(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// PartitionIndexes returns the row positions of PartitionBy, in order.
func (t Table) PartitionIndexes() []int {
	out := make([]int, 0, len(t.PartitionBy))
	for _, p := range t.PartitionBy {
		out = append(out, t.Index(p))
	}
	return out
}

// DataColumns returns the columns that are not partition columns. Hive-style
// layouts store partition values in directory names only.
func (t Table) DataColumns() []Column {
	part := make(map[string]bool, len(t.PartitionBy))
	for _, p := range t.PartitionBy {
		part[p] = true
	}
	out := make([]Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		if !part[c.Name] {
			out = append(out, c)
		}
	}
	return out
}

// Validate checks that the table is well formed.
func (t Table) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("schema: table name is empty")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("schema: table %s has no columns", t.Name)
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == "" {
			return fmt.Errorf("schema: table %s has a column with empty name", t.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("schema: table %s has duplicate column %s", t.Name, c.Name)
		}
		seen[c.Name] = true
	}
	for _, p := range t.PartitionBy {
		if !seen[p] {
			return fmt.Errorf("schema: table %s partitions by unknown column %s", t.Name, p)
		}
	}
	if len(t.PartitionBy) > 0 && len(t.PartitionBy) == len(t.Columns) {
		return fmt.Errorf("schema: table %s has no data columns", t.Name)
	}
	return nil
}

// The star schema.
var (
	Songs = Table{
		Name: "songs",
		Columns: []Column{
			{Name: "song_id", Kind: String},
			{Name: "title", Kind: String},
			{Name: "artist_id", Kind: String},
			{Name: "year", Kind: Int64},
			{Name: "duration", Kind: Double, Nullable: true},
		},
		PartitionBy: []string{"year", "artist_id"},
	}

	Artists = Table{
		Name: "artists",
		Columns: []Column{
			{Name: "artist_id", Kind: String},
			{Name: "artist_name", Kind: String},
			{Name: "artist_location", Kind: String},
			{Name: "artist_latitude", Kind: Double, Nullable: true},
			{Name: "artist_longitude", Kind: Double, Nullable: true},
		},
	}

	Users = Table{
		Name: "users",
		Columns: []Column{
			{Name: "userId", Kind: String},
			{Name: "firstName", Kind: String},
			{Name: "lastName", Kind: String},
			{Name: "gender", Kind: String},
			{Name: "level", Kind: String},
		},
	}

	Time = Table{
		Name: "time",
		Columns: []Column{
			{Name: "start_time", Kind: String},
			{Name: "hour", Kind: Int64},
			{Name: "day", Kind: Int64},
			{Name: "week", Kind: Int64},
			{Name: "month", Kind: Int64},
			{Name: "year", Kind: Int64},
			{Name: "weekday", Kind: String},
		},
		PartitionBy: []string{"year", "month"},
	}

	Songplays = Table{
		Name: "songplays",
		Columns: []Column{
			{Name: "songplay_id", Kind: Int64},
			{Name: "start_time", Kind: String},
			{Name: "user_id", Kind: String},
			{Name: "level", Kind: String},
			{Name: "song_id", Kind: String, Nullable: true},
			{Name: "artist_id", Kind: String, Nullable: true},
			{Name: "session_id", Kind: Int64},
			{Name: "location", Kind: String},
			{Name: "user_agent", Kind: String},
			{Name: "year", Kind: Int64},
			{Name: "month", Kind: Int64},
		},
		PartitionBy: []string{"year", "month"},
	}
)

// StarTables returns every output table in write order.
func StarTables() []Table {
	return []Table{Songs, Artists, Users, Time, Songplays}
}
