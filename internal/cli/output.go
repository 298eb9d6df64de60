package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
)

// Printer renders results either as indented JSON or as aligned text.
type Printer struct {
	format string
	w      io.Writer
}

func NewPrinter(format string, w io.Writer) *Printer {
	return &Printer{format: format, w: w}
}

func (p *Printer) IsJSON() bool {
	return p.format == "json"
}

func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table writes header then rows, tab-aligned.
func (p *Printer) Table(header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	writeRow(tw, header)
	for _, row := range rows {
		writeRow(tw, row)
	}
	return tw.Flush()
}

// KV writes one "key: value" line per pair.
func (p *Printer) KV(pairs [][2]string) error {
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	for _, pair := range pairs {
		fmt.Fprintf(tw, "%s:\t%s\n", pair[0], pair[1])
	}
	return tw.Flush()
}

func writeRow(w io.Writer, cols []string) {
	for i, c := range cols {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, c)
	}
	fmt.Fprintln(w)
}
