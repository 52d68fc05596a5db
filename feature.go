package tablefeat

import (
	"errors"
	"fmt"
)

// Mode selects how a feature pass treats existing rows.
type Mode int

const (
	// Full recomputes the feature for every row.
	Full Mode = iota
	// Incremental computes the feature for the newest row only.
	Incremental
)

func (m Mode) String() string {
	switch m {
	case Full:
		return "full"
	case Incremental:
		return "incremental"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Computation derives one or more columns from table data.
//
// Implementations must keep both paths consistent: the value
// ComputeIncremental writes into the newest row equals the value
// ComputeFull writes into that row.
type Computation interface {
	Name() string
	// Columns lists the output columns the computation writes.
	Columns() []string
	// RequiredPeriods is the trailing window size needed for one value.
	// Zero means the whole history up to the row.
	RequiredPeriods() int
	ComputeFull(t *Table) error
	ComputeIncremental(t *Table) error
}

// TransformFunc computes a single value from a window that ends at the
// target row. Returning nil marks the value as not available.
type TransformFunc func(w Window, args ...any) (any, error)

// Blueprint is a named windowed transform writing one column named after it.
//
// Row i is computed from rows [i-RequiredPeriods+1, i]. When fewer than
// RequiredPeriods rows exist up to i, the row gets nil and Func is not
// called. With RequiredPeriods == 0 the window is [0, i].
type Blueprint struct {
	name      string
	fn        TransformFunc
	arguments []any
	periods   int
}

func NewBlueprint(name string, periods int, fn TransformFunc, arguments ...any) (*Blueprint, error) {
	if name == "" {
		return nil, errors.New("tablefeat: feature name required")
	}
	if fn == nil {
		return nil, errors.New("tablefeat: feature func required")
	}
	if periods < 0 {
		return nil, fmt.Errorf("tablefeat: feature %q: negative required periods %d", name, periods)
	}
	return &Blueprint{
		name:      name,
		fn:        fn,
		arguments: append([]any(nil), arguments...),
		periods:   periods,
	}, nil
}

func (b *Blueprint) Name() string         { return b.name }
func (b *Blueprint) Columns() []string    { return []string{b.name} }
func (b *Blueprint) RequiredPeriods() int { return b.periods }
func (b *Blueprint) Arguments() []any     { return append([]any(nil), b.arguments...) }

func (b *Blueprint) ComputeFull(t *Table) error {
	t.AddColumn(b.name)
	for row := 0; row < t.Len(); row++ {
		if err := b.computeRow(t, row); err != nil {
			return err
		}
	}
	return nil
}

func (b *Blueprint) ComputeIncremental(t *Table) error {
	t.AddColumn(b.name)
	if t.Len() == 0 {
		return nil
	}
	return b.computeRow(t, t.Len()-1)
}

func (b *Blueprint) computeRow(t *Table, row int) error {
	var v any
	if row+1 >= b.periods {
		start := 0
		if b.periods > 0 {
			start = row - b.periods + 1
		}
		var err error
		v, err = b.fn(t.Window(start, row+1), b.arguments...)
		if err != nil {
			return fmt.Errorf("feature %q row %d: %w", b.name, row, err)
		}
	}
	return t.Set(b.name, row, v)
}
