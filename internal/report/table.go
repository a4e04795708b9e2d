package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Table writes aligned columns with a dashed separator under the header
type Table struct {
	w       *tabwriter.Writer
	headers []string
	rows    int
}

func NewTable(w io.Writer, headers ...string) *Table {
	return &Table{
		w:       tabwriter.NewWriter(w, 0, 0, 2, ' ', 0),
		headers: headers,
	}
}

// AddRow appends a row; missing cells are left blank and extra ones dropped
func (t *Table) AddRow(values ...string) {
	if t.rows == 0 {
		t.writeLine(t.headers)
		separator := make([]string, len(t.headers))
		for i, h := range t.headers {
			separator[i] = strings.Repeat("-", len(h))
		}
		t.writeLine(separator)
	}
	t.rows++

	cells := make([]string, len(t.headers))
	copy(cells, values)
	t.writeLine(cells)
}

// Render flushes buffered rows. A table without rows renders nothing.
func (t *Table) Render() error {
	return t.w.Flush()
}

func (t *Table) writeLine(cells []string) {
	fmt.Fprintln(t.w, strings.Join(cells, "\t"))
}
