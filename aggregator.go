package tablefeat

import (
	"fmt"
	"math"
	"sort"
)

// Aggregator computes a value from a sequence of inputs.
type Aggregator interface {
	Add(v any)
	Result() any
}

// AggregatorFactory creates new Aggregator instances.
type AggregatorFactory = func() Aggregator

// Rolling returns a feature that aggregates the trailing periods values of
// field into a column called name. periods == 0 aggregates the whole
// history up to each row. A window containing an unavailable value
// produces nil.
func Rolling(name, field string, periods int, agg AggregatorFactory) (Computation, error) {
	if field == "" {
		return nil, fmt.Errorf("tablefeat: feature %q: field required", name)
	}
	if agg == nil {
		return nil, fmt.Errorf("tablefeat: feature %q: aggregator required", name)
	}
	b, err := NewBlueprint(name, periods, rollingFunc, field, agg)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// MustRolling is like Rolling but panics on error.
func MustRolling(name, field string, periods int, agg AggregatorFactory) Computation {
	c, err := Rolling(name, field, periods, agg)
	if err != nil {
		panic(err)
	}
	return c
}

func rollingFunc(w Window, args ...any) (any, error) {
	field, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("rolling: field argument is %T, want string", args[0])
	}
	factory, ok := args[1].(AggregatorFactory)
	if !ok || factory == nil {
		return nil, fmt.Errorf("rolling: aggregator argument is %T", args[1])
	}
	if !w.Has(field) {
		return nil, fmt.Errorf("rolling: unknown column %q", field)
	}
	agg := factory()
	for _, v := range w.Values(field) {
		if v == nil {
			return nil, nil
		}
		agg.Add(v)
	}
	return agg.Result(), nil
}

// Count counts the number of values.
func Count() Aggregator { return &countAgg{} }

type countAgg struct{ n int64 }

func (a *countAgg) Add(any)     { a.n++ }
func (a *countAgg) Result() any { return a.n }

// Sum computes the sum of numeric values.
func Sum() Aggregator { return &sumAgg{} }

type sumAgg struct{ sum float64 }

func (a *sumAgg) Add(v any) {
	if f, ok := toFloat64(v); ok {
		a.sum += f
	}
}
func (a *sumAgg) Result() any { return a.sum }

// Mean computes the average of numeric values.
func Mean() Aggregator { return &meanAgg{} }

type meanAgg struct {
	sum   float64
	count int
}

func (a *meanAgg) Add(v any) {
	if f, ok := toFloat64(v); ok {
		a.sum += f
		a.count++
	}
}

func (a *meanAgg) Result() any {
	if a.count == 0 {
		return nil
	}
	return a.sum / float64(a.count)
}

// Min computes the minimum numeric value.
func Min() Aggregator { return &minAgg{} }

type minAgg struct {
	min   float64
	valid bool
}

func (a *minAgg) Add(v any) {
	f, ok := toFloat64(v)
	if !ok {
		return
	}
	if !a.valid || f < a.min {
		a.min = f
		a.valid = true
	}
}

func (a *minAgg) Result() any {
	if !a.valid {
		return nil
	}
	return a.min
}

// Max computes the maximum numeric value.
func Max() Aggregator { return &maxAgg{} }

type maxAgg struct {
	max   float64
	valid bool
}

func (a *maxAgg) Add(v any) {
	f, ok := toFloat64(v)
	if !ok {
		return
	}
	if !a.valid || f > a.max {
		a.max = f
		a.valid = true
	}
}

func (a *maxAgg) Result() any {
	if !a.valid {
		return nil
	}
	return a.max
}

// StdDev computes the population standard deviation of numeric values.
func StdDev() Aggregator { return &stdDevAgg{} }

type stdDevAgg struct{ values []float64 }

func (a *stdDevAgg) Add(v any) {
	if f, ok := toFloat64(v); ok {
		a.values = append(a.values, f)
	}
}

func (a *stdDevAgg) Result() any {
	if len(a.values) == 0 {
		return nil
	}

	var sum float64
	for _, v := range a.values {
		sum += v
	}
	mean := sum / float64(len(a.values))

	var variance float64
	for _, v := range a.values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(a.values))

	return math.Sqrt(variance)
}

// Percentile returns the value at index floor((n-1)*p) of the sorted
// inputs, with p between 0.0 and 1.0.
func Percentile(p float64) AggregatorFactory {
	return func() Aggregator {
		return &percentileAgg{p: p}
	}
}

type percentileAgg struct {
	p      float64
	values []float64
}

func (a *percentileAgg) Add(v any) {
	if f, ok := toFloat64(v); ok {
		a.values = append(a.values, f)
	}
}

func (a *percentileAgg) Result() any {
	if len(a.values) == 0 {
		return nil
	}

	sorted := make([]float64, len(a.values))
	copy(sorted, a.values)
	sort.Float64s(sorted)

	index := int(float64(len(sorted)-1) * a.p)
	index = max(index, 0)
	index = min(index, len(sorted)-1)

	return sorted[index]
}

// Last returns the last value.
func Last() Aggregator { return &lastAgg{} }

type lastAgg struct{ last any }

func (a *lastAgg) Add(v any)   { a.last = v }
func (a *lastAgg) Result() any { return a.last }

// CountDistinct counts unique values.
func CountDistinct() Aggregator {
	return &countDistinctAgg{seen: make(map[any]struct{})}
}

type countDistinctAgg struct {
	seen map[any]struct{}
}

func (a *countDistinctAgg) Add(v any) {
	a.seen[v] = struct{}{}
}
func (a *countDistinctAgg) Result() any { return int64(len(a.seen)) }
