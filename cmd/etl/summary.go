package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"sparkify/internal/warehouse"
)

// printSummary writes a human-readable run summary.
func printSummary(w io.Writer, sum warehouse.Summary) {
	fmt.Fprintf(w, "run %s (%s): %s in %s\n", sum.RunID, sum.Job, sum.Status, sum.Duration.Truncate(time.Millisecond))
	fmt.Fprintf(w, "catalog: %s records from %s files, %s skipped\n",
		humanize.Comma(int64(sum.Catalog.Records)), humanize.Comma(int64(sum.Catalog.Files)),
		humanize.Comma(int64(sum.Catalog.SkippedFiles)))
	fmt.Fprintf(w, "logs:    %s records from %s files, %s skipped\n",
		humanize.Comma(int64(sum.Logs.Records)), humanize.Comma(int64(sum.Logs.Files)),
		humanize.Comma(int64(sum.Logs.SkippedFiles)))
	fmt.Fprintf(w, "plays:   %s, %s unmatched, %s ambiguous\n",
		humanize.Comma(int64(sum.PlayEvents)), humanize.Comma(int64(sum.Unmatched)),
		humanize.Comma(int64(sum.Ambiguous)))

	if len(sum.Tables) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TABLE\tROWS\tPARTITIONS\tTIME")
		for _, t := range sum.Tables {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Name, humanize.Comma(t.Rows),
				humanize.Comma(int64(t.Partitions)), t.Duration.Truncate(time.Microsecond))
		}
		_ = tw.Flush()
	}
	if sum.Error != "" {
		fmt.Fprintf(w, "error: %s\n", sum.Error)
	}
}
