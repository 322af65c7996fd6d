package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

type reporter struct {
	out io.Writer
}

func (r reporter) Section(heading string) {
	fmt.Fprintf(r.out, "=== %s ===\n", heading)
}

func (r reporter) Table(columns []string, rows [][]string) {
	w := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(columns, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
}

func (r reporter) Line(format string, args ...any) {
	fmt.Fprintf(r.out, format+"\n", args...)
}
