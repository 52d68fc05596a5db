package tablefeat_test

import (
	"math"
	"testing"

	"github.com/w0rng/tablefeat"
)

func TestCountAggregator(t *testing.T) {
	agg := tablefeat.Count()

	if result := agg.Result(); result != int64(0) {
		t.Errorf("initial count: got %v, want 0", result)
	}

	agg.Add(1.0)
	agg.Add("x")
	agg.Add(true)

	if result := agg.Result(); result != int64(3) {
		t.Errorf("count after 3 adds: got %v, want 3", result)
	}
}

func TestSumAggregator(t *testing.T) {
	agg := tablefeat.Sum()

	if result := agg.Result(); result != 0.0 {
		t.Errorf("initial sum: got %v, want 0.0", result)
	}

	agg.Add(100.0)
	agg.Add(50.5)
	agg.Add(25.25)

	if result := agg.Result(); result != 175.75 {
		t.Errorf("sum: got %v, want 175.75", result)
	}
}

func TestSumAggregator_TypeConversions(t *testing.T) {
	agg := tablefeat.Sum()

	// Test different numeric types
	agg.Add(float64(100.0))
	agg.Add(float32(50.0))
	agg.Add(int(25))
	agg.Add(int64(10))
	agg.Add(int32(5))

	if result := agg.Result().(float64); result != 190.0 {
		t.Errorf("sum with mixed types: got %v, want 190", result)
	}
}

func TestSumAggregator_InvalidTypes(t *testing.T) {
	agg := tablefeat.Sum()

	agg.Add(100.0)
	agg.Add("invalid") // ignored
	agg.Add(50.0)

	if result := agg.Result().(float64); result != 150.0 {
		t.Errorf("sum ignoring invalid types: got %v, want 150.0", result)
	}
}

func TestMeanAggregator(t *testing.T) {
	agg := tablefeat.Mean()

	if result := agg.Result(); result != nil {
		t.Errorf("empty mean: got %v, want nil", result)
	}

	agg.Add(10.0)
	agg.Add(15.0)

	if result := agg.Result(); result != 12.5 {
		t.Errorf("mean: got %v, want 12.5", result)
	}
}

func TestMinMaxAggregator(t *testing.T) {
	tests := []struct {
		name    string
		factory tablefeat.AggregatorFactory
		values  []any
		want    any
	}{
		{name: "min empty", factory: tablefeat.Min, want: nil},
		{name: "max empty", factory: tablefeat.Max, want: nil},
		{name: "min", factory: tablefeat.Min, values: []any{100.0, 50.0, 75.0, 25.0}, want: 25.0},
		{name: "max", factory: tablefeat.Max, values: []any{100.0, 50.0, 175.0, 25.0}, want: 175.0},
		{name: "min negative", factory: tablefeat.Min, values: []any{100.0, -50.0, 0.0}, want: -50.0},
		{name: "max negative", factory: tablefeat.Max, values: []any{-100.0, -50.0, -75.0}, want: -50.0},
		{name: "min ignores strings", factory: tablefeat.Min, values: []any{"a", 3.0}, want: 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := tt.factory()
			for _, v := range tt.values {
				agg.Add(v)
			}
			if result := agg.Result(); result != tt.want {
				t.Errorf("got %v, want %v", result, tt.want)
			}
		})
	}
}

func TestStdDevAggregator(t *testing.T) {
	agg := tablefeat.StdDev()
	if result := agg.Result(); result != nil {
		t.Errorf("empty stddev: got %v, want nil", result)
	}

	agg.Add(5.0)
	if result := agg.Result(); result != 0.0 {
		t.Errorf("single value stddev: got %v, want 0", result)
	}

	agg.Add(1.0)
	got := agg.Result().(float64)
	if math.Abs(got-2.0) > 1e-9 {
		t.Errorf("stddev: got %v, want 2", got)
	}
}

func TestPercentileAggregator(t *testing.T) {
	values := []any{10.0, 20.0, 30.0, 50.0, 75.0, 100.0, 150.0, 200.0, 500.0, 1000.0}

	tests := []struct {
		p    float64
		want float64
	}{
		{p: 0, want: 10.0},
		{p: 0.5, want: 75.0},
		{p: 0.9, want: 500.0},
		{p: 1, want: 1000.0},
	}

	for _, tt := range tests {
		agg := tablefeat.Percentile(tt.p)()
		for _, v := range values {
			agg.Add(v)
		}
		if result := agg.Result(); result != tt.want {
			t.Errorf("p%v: got %v, want %v", tt.p, result, tt.want)
		}
	}

	if result := tablefeat.Percentile(0.5)().Result(); result != nil {
		t.Errorf("empty percentile: got %v, want nil", result)
	}
}

func TestLastAggregator(t *testing.T) {
	agg := tablefeat.Last()

	if result := agg.Result(); result != nil {
		t.Errorf("initial last: got %v, want nil", result)
	}

	agg.Add("US")
	agg.Add("CA")
	agg.Add("MX")

	if result := agg.Result(); result != "MX" {
		t.Errorf("last: got %v, want MX", result)
	}
}

func TestCountDistinctAggregator(t *testing.T) {
	agg := tablefeat.CountDistinct()

	if result := agg.Result(); result != int64(0) {
		t.Errorf("initial count distinct: got %v, want 0", result)
	}

	agg.Add("US")
	agg.Add("CA")
	agg.Add("US")
	agg.Add("MX")
	agg.Add("CA")

	if result := agg.Result(); result != int64(3) {
		t.Errorf("count distinct: got %v, want 3", result)
	}
}

func TestRolling_UnknownColumn(t *testing.T) {
	c := tablefeat.MustRolling("sum", "missing", 1, tablefeat.Sum)
	if err := c.ComputeFull(valueTable(1.0)); err == nil {
		t.Error("expected error for unknown column")
	}
}
