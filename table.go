package tablefeat

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"
)

// Table is a column-major sequence of rows. Column order is the order in
// which columns were added and never changes afterwards. A nil cell means
// the value is not yet available.
type Table struct {
	cols  []column
	index map[string]int
	rows  int
}

type column struct {
	name   string
	values []any
}

// NewTable returns an empty table with the given columns.
func NewTable(columns ...string) *Table {
	t := &Table{index: make(map[string]int, len(columns))}
	for _, c := range columns {
		t.AddColumn(c)
	}
	return t
}

func (t *Table) Len() int { return t.rows }

func (t *Table) Columns() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.name
	}
	return names
}

func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// AddColumn appends a column filled with nil. It is a no-op if the column
// already exists.
func (t *Table) AddColumn(name string) {
	if _, ok := t.index[name]; ok {
		return
	}
	t.index[name] = len(t.cols)
	t.cols = append(t.cols, column{name: name, values: make([]any, t.rows)})
}

// Set writes a single cell. The column must exist and row must be in range.
func (t *Table) Set(name string, row int, v any) error {
	i, ok := t.index[name]
	if !ok {
		return fmt.Errorf("tablefeat: unknown column %q", name)
	}
	if row < 0 || row >= t.rows {
		return fmt.Errorf("tablefeat: row %d out of range [0, %d)", row, t.rows)
	}
	t.cols[i].values[row] = v
	return nil
}

func (t *Table) Value(name string, row int) (any, bool) {
	i, ok := t.index[name]
	if !ok || row < 0 || row >= t.rows {
		return nil, false
	}
	return t.cols[i].values[row], true
}

// Float returns a cell as float64. It reports false for missing cells,
// unavailable values and non-numeric values.
func (t *Table) Float(name string, row int) (float64, bool) {
	v, ok := t.Value(name, row)
	if !ok {
		return 0, false
	}
	return toFloat64(v)
}

func (t *Table) Column(name string) []any {
	i, ok := t.index[name]
	if !ok {
		return nil
	}
	return slices.Clone(t.cols[i].values)
}

func (t *Table) Row(row int) Record {
	if row < 0 || row >= t.rows {
		return nil
	}
	rec := make(Record, len(t.cols))
	for _, c := range t.cols {
		rec[c.name] = c.values[row]
	}
	return rec
}

// Window returns a read-only view over rows [start, end).
func (t *Table) Window(start, end int) Window {
	start = max(start, 0)
	end = min(end, t.rows)
	if start > end {
		start = end
	}
	return Window{t: t, start: start, end: end}
}

// Tail returns a copy holding the last k rows. k <= 0 or k >= Len copies
// the whole table.
func (t *Table) Tail(k int) *Table {
	if k <= 0 || k >= t.rows {
		return t.Clone()
	}
	out := &Table{index: make(map[string]int, len(t.cols)), rows: k}
	for _, c := range t.cols {
		out.index[c.name] = len(out.cols)
		out.cols = append(out.cols, column{name: c.name, values: slices.Clone(c.values[t.rows-k:])})
	}
	return out
}

func (t *Table) Clone() *Table {
	out := &Table{index: make(map[string]int, len(t.cols)), rows: t.rows}
	for _, c := range t.cols {
		out.index[c.name] = len(out.cols)
		out.cols = append(out.cols, column{name: c.name, values: slices.Clone(c.values)})
	}
	return out
}

// AppendRow adds a row at the end. Columns absent from values get nil;
// keys that are not columns are ignored.
func (t *Table) AppendRow(values Record) {
	t.insertRow(t.rows, values)
}

// insertRow places values at position at, shifting later rows down.
// Columns absent from values get nil.
func (t *Table) insertRow(at int, values map[string]any) {
	for i := range t.cols {
		t.cols[i].values = slices.Insert(t.cols[i].values, at, values[t.cols[i].name])
	}
	t.rows++
}

func (t *Table) removeRow(at int) {
	for i := range t.cols {
		t.cols[i].values = slices.Delete(t.cols[i].values, at, at+1)
	}
	t.rows--
}

// WriteCSV renders the table with a header row. Unavailable values are
// written as empty cells and timestamps as RFC 3339.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return err
	}
	line := make([]string, len(t.cols))
	for r := 0; r < t.rows; r++ {
		for i, c := range t.cols {
			line[i] = formatCell(c.values[r])
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}

// Window is a read-only view over a contiguous run of table rows.
type Window struct {
	t          *Table
	start, end int
}

func (w Window) Len() int { return w.end - w.start }

func (w Window) Has(name string) bool { return w.t.HasColumn(name) }

// Start is the table index of the first row in the window.
func (w Window) Start() int { return w.start }

// Value returns the cell at window-relative row i.
func (w Window) Value(name string, i int) any {
	v, _ := w.t.Value(name, w.start+i)
	return v
}

func (w Window) Last(name string) any {
	if w.Len() == 0 {
		return nil
	}
	return w.Value(name, w.Len()-1)
}

func (w Window) Values(name string) []any {
	i, ok := w.t.index[name]
	if !ok {
		return nil
	}
	return slices.Clone(w.t.cols[i].values[w.start:w.end])
}

// Floats returns the column as float64 values. It reports false if any
// value in the window is unavailable or not numeric.
func (w Window) Floats(name string) ([]float64, bool) {
	i, ok := w.t.index[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, 0, w.Len())
	for _, v := range w.t.cols[i].values[w.start:w.end] {
		f, ok := toFloat64(v)
		if !ok {
			return nil, false
		}
		out = append(out, f)
	}
	return out, true
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}
