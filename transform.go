package tablefeat

import "fmt"

// Diff writes field[i] - field[i-lag] into name.
func Diff(name, field string, lag int) (Computation, error) {
	return lagged(name, field, lag, diffFunc)
}

// PctChange writes the relative change field[i]/field[i-lag] - 1 into
// name. A zero base value produces nil.
func PctChange(name, field string, lag int) (Computation, error) {
	return lagged(name, field, lag, pctChangeFunc)
}

// MustDiff is like Diff but panics on error.
func MustDiff(name, field string, lag int) Computation {
	return must(Diff(name, field, lag))
}

// MustPctChange is like PctChange but panics on error.
func MustPctChange(name, field string, lag int) Computation {
	return must(PctChange(name, field, lag))
}

func lagged(name, field string, lag int, fn TransformFunc) (Computation, error) {
	if lag < 1 {
		return nil, fmt.Errorf("tablefeat: feature %q: lag must be positive, got %d", name, lag)
	}
	if field == "" {
		return nil, fmt.Errorf("tablefeat: feature %q: field required", name)
	}
	b, err := NewBlueprint(name, lag+1, fn, field)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func must(c Computation, err error) Computation {
	if err != nil {
		panic(err)
	}
	return c
}

func endpoints(w Window, args []any) (first, last float64, ok bool, err error) {
	field, _ := args[0].(string)
	if !w.Has(field) {
		return 0, 0, false, fmt.Errorf("unknown column %q", field)
	}
	first, okFirst := toFloat64(w.Value(field, 0))
	last, okLast := toFloat64(w.Last(field))
	return first, last, okFirst && okLast, nil
}

func diffFunc(w Window, args ...any) (any, error) {
	first, last, ok, err := endpoints(w, args)
	if !ok {
		return nil, err
	}
	return last - first, nil
}

func pctChangeFunc(w Window, args ...any) (any, error) {
	first, last, ok, err := endpoints(w, args)
	if !ok || first == 0 {
		return nil, err
	}
	return last/first - 1, nil
}
