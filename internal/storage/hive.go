package storage

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"sparkify/internal/schema"
)

// DefaultPartition names the directory for null or empty partition values,
// as Hive and Spark do.
const DefaultPartition = "__HIVE_DEFAULT_PARTITION__"

// Partition is one leaf directory of a Hive-style layout.
type Partition struct {
	// Dir is the slash-separated relative directory, e.g.
	// "year=2018/month=11"; "" for unpartitioned tables.
	Dir string
	// Rows hold the data columns only (table.DataColumns order).
	Rows [][]any
}

// SplitPartitions groups rows by their partition values. Partitions appear
// in first-seen order and rows keep their relative order inside each
// partition. An unpartitioned table yields a single partition with Dir "",
// even when rows is empty.
func SplitPartitions(table schema.Table, rows [][]any) []Partition {
	if len(table.PartitionBy) == 0 {
		return []Partition{{Rows: rows}}
	}

	partIdx := table.PartitionIndexes()
	isPart := make([]bool, len(table.Columns))
	for _, i := range partIdx {
		isPart[i] = true
	}

	var out []Partition
	pos := map[string]int{}
	for _, r := range rows {
		segs := make([]string, len(partIdx))
		for j, i := range partIdx {
			segs[j] = table.PartitionBy[j] + "=" + FormatPartitionValue(r[i])
		}
		dir := path.Join(segs...)

		data := make([]any, 0, len(r)-len(partIdx))
		for i, v := range r {
			if !isPart[i] {
				data = append(data, v)
			}
		}

		k, ok := pos[dir]
		if !ok {
			k = len(out)
			pos[dir] = k
			out = append(out, Partition{Dir: dir})
		}
		out[k].Rows = append(out[k].Rows, data)
	}
	return out
}

// FormatPartitionValue renders a partition value as a directory name
// component.
func FormatPartitionValue(v any) string {
	switch t := v.(type) {
	case nil:
		return DefaultPartition
	case string:
		if t == "" {
			return DefaultPartition
		}
		return EscapePathName(t)
	case *string:
		if t == nil {
			return DefaultPartition
		}
		return FormatPartitionValue(*t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return EscapePathName(fmt.Sprint(t))
	}
}

// EscapePathName percent-encodes the characters Hive refuses in partition
// directory names.
func EscapePathName(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if needsEscape(c) {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func needsEscape(c byte) bool {
	if c < 0x20 || c == 0x7f {
		return true
	}
	switch c {
	case '"', '#', '%', '\'', '*', '/', ':', '=', '?', '\\', '{', '[', ']', '^':
		return true
	}
	return false
}

// PartFileName names the single data file written into each partition.
func PartFileName(n int, ext string) string {
	return fmt.Sprintf("part-%05d%s", n, ext)
}

// PartitionCount returns how many partition directories rows fall into.
func PartitionCount(table schema.Table, rows [][]any) int {
	if len(table.PartitionBy) == 0 {
		return 1
	}
	partIdx := table.PartitionIndexes()
	seen := map[string]struct{}{}
	var b strings.Builder
	for _, r := range rows {
		b.Reset()
		for _, i := range partIdx {
			b.WriteString(FormatPartitionValue(r[i]))
			b.WriteByte('/')
		}
		seen[b.String()] = struct{}{}
	}
	return len(seen)
}
