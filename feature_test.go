package tablefeat_test

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/w0rng/tablefeat"
)

func valueTable(values ...any) *tablefeat.Table {
	tbl := tablefeat.NewTable("value")
	for _, v := range values {
		tbl.AppendRow(tablefeat.Record{"value": v})
	}
	return tbl
}

func builtins() []tablefeat.Computation {
	return []tablefeat.Computation{
		tablefeat.MustRolling("count_3", "value", 3, tablefeat.Count),
		tablefeat.MustRolling("sum_3", "value", 3, tablefeat.Sum),
		tablefeat.MustRolling("mean_2", "value", 2, tablefeat.Mean),
		tablefeat.MustRolling("mean_all", "value", 0, tablefeat.Mean),
		tablefeat.MustRolling("min_4", "value", 4, tablefeat.Min),
		tablefeat.MustRolling("max_4", "value", 4, tablefeat.Max),
		tablefeat.MustRolling("std_5", "value", 5, tablefeat.StdDev),
		tablefeat.MustRolling("p90_5", "value", 5, tablefeat.Percentile(0.9)),
		tablefeat.MustRolling("last_2", "value", 2, tablefeat.Last),
		tablefeat.MustRolling("distinct_all", "value", 0, tablefeat.CountDistinct),
		tablefeat.MustDiff("diff_1", "value", 1),
		tablefeat.MustDiff("diff_3", "value", 3),
		tablefeat.MustPctChange("pct_1", "value", 1),
	}
}

// The value written into the newest row must not depend on the mode.
func TestComputation_FullIncrementalConsistency(t *testing.T) {
	series := []any{10.0, 15.0, 15.0, 20.0, 22.5, -3.0, 0.0, 7.25, 7.25, 100.0, nil, 4.0, 1e-3, 8.0}

	for _, c := range builtins() {
		t.Run(c.Name(), func(t *testing.T) {
			for n := 1; n <= len(series); n++ {
				base := valueTable(series[:n]...)

				full := base.Clone()
				if err := c.ComputeFull(full); err != nil {
					t.Fatalf("ComputeFull(n=%d) failed: %v", n, err)
				}
				inc := base.Clone()
				if err := c.ComputeIncremental(inc); err != nil {
					t.Fatalf("ComputeIncremental(n=%d) failed: %v", n, err)
				}

				for _, col := range c.Columns() {
					want, _ := full.Value(col, n-1)
					got, _ := inc.Value(col, n-1)
					if !reflect.DeepEqual(got, want) {
						t.Errorf("n=%d column %s: incremental %v, full %v", n, col, got, want)
					}
				}
			}
		})
	}
}

func TestComputation_IncrementalTouchesOnlyNewestRow(t *testing.T) {
	tbl := valueTable(1.0, 2.0, 3.0)
	c := tablefeat.MustRolling("sum_2", "value", 2, tablefeat.Sum)
	tbl.AddColumn("sum_2")
	for i := 0; i < 2; i++ {
		_ = tbl.Set("sum_2", i, "sentinel")
	}

	if err := c.ComputeIncremental(tbl); err != nil {
		t.Fatalf("ComputeIncremental failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if v, _ := tbl.Value("sum_2", i); v != "sentinel" {
			t.Errorf("row %d overwritten: %v", i, v)
		}
	}
	if v, _ := tbl.Float("sum_2", 2); v != 5.0 {
		t.Errorf("newest row: got %v, want 5", v)
	}
}

func TestComputation_NotEnoughRows(t *testing.T) {
	tbl := valueTable(1.0, 2.0)
	c := tablefeat.MustRolling("mean_3", "value", 3, tablefeat.Mean)

	if err := c.ComputeFull(tbl); err != nil {
		t.Fatalf("ComputeFull failed: %v", err)
	}
	for i := 0; i < tbl.Len(); i++ {
		if v, ok := tbl.Value("mean_3", i); !ok || v != nil {
			t.Errorf("row %d: got %v (present %v), want nil", i, v, ok)
		}
	}

	empty := valueTable()
	if err := c.ComputeIncremental(empty); err != nil {
		t.Fatalf("ComputeIncremental on empty table failed: %v", err)
	}
	if !empty.HasColumn("mean_3") {
		t.Error("output column not created on empty table")
	}
}

func TestDiffAndPctChange(t *testing.T) {
	tbl := valueTable(10.0, 15.0, 0.0, 20.0)
	p := tablefeat.NewPipeline()
	_ = p.Register(tablefeat.MustDiff("diff", "value", 1))
	_ = p.Register(tablefeat.MustPctChange("pct", "value", 1))

	if err := p.Apply(tbl, tablefeat.Full); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	wantDiff := []any{nil, 5.0, -15.0, 20.0}
	wantPct := []any{nil, 0.5, -1.0, nil} // zero base has no relative change
	for i := range wantDiff {
		if v, _ := tbl.Value("diff", i); v != wantDiff[i] {
			t.Errorf("diff row %d: got %v, want %v", i, v, wantDiff[i])
		}
		if v, _ := tbl.Value("pct", i); v != wantPct[i] {
			t.Errorf("pct row %d: got %v, want %v", i, v, wantPct[i])
		}
	}
}

func TestRolling_StdDev(t *testing.T) {
	tbl := valueTable(2.0, 4.0, 4.0, 4.0, 5.0, 5.0, 7.0, 9.0)
	c := tablefeat.MustRolling("std", "value", 0, tablefeat.StdDev)
	if err := c.ComputeFull(tbl); err != nil {
		t.Fatalf("ComputeFull failed: %v", err)
	}
	got, _ := tbl.Float("std", 7)
	if math.Abs(got-2.0) > 1e-9 {
		t.Errorf("std: got %v, want 2", got)
	}
}

func TestNewBlueprint(t *testing.T) {
	scale := func(w tablefeat.Window, args ...any) (any, error) {
		f, _ := w.Last("value").(float64)
		return f * args[0].(float64), nil
	}

	b, err := tablefeat.NewBlueprint("scaled", 1, scale, 3.0)
	if err != nil {
		t.Fatalf("NewBlueprint failed: %v", err)
	}
	if !reflect.DeepEqual(b.Arguments(), []any{3.0}) {
		t.Errorf("arguments: got %v", b.Arguments())
	}

	tbl := valueTable(1.0, 2.0)
	if err := b.ComputeFull(tbl); err != nil {
		t.Fatalf("ComputeFull failed: %v", err)
	}
	if v, _ := tbl.Float("scaled", 1); v != 6.0 {
		t.Errorf("scaled: got %v, want 6", v)
	}

	if _, err := tablefeat.NewBlueprint("", 1, scale); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := tablefeat.NewBlueprint("x", 1, nil); err == nil {
		t.Error("expected error for nil func")
	}
	if _, err := tablefeat.NewBlueprint("x", -1, scale); err == nil {
		t.Error("expected error for negative periods")
	}
}

func TestPipeline_FeedsForwardInOrder(t *testing.T) {
	series := []any{10.0, 15.0, 15.0, 20.0, 22.5, 30.0}

	p := tablefeat.NewPipeline()
	_ = p.Register(tablefeat.MustDiff("diff", "value", 1))
	_ = p.Register(tablefeat.MustRolling("mean_diff", "diff", 2, tablefeat.Mean))

	tbl := valueTable(series...)
	if err := p.Apply(tbl, tablefeat.Full); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	// diff: nil, 5, 0, 5, 2.5, 7.5; the first mean needs two diffs.
	want := []any{nil, nil, 2.5, 2.5, 3.75, 5.0}
	for i, w := range want {
		if v, _ := tbl.Value("mean_diff", i); v != w {
			t.Errorf("row %d: got %v, want %v", i, v, w)
		}
	}
	if !reflect.DeepEqual(p.Names(), []string{"diff", "mean_diff"}) {
		t.Errorf("names: got %v", p.Names())
	}
}

func TestPipeline_IncrementalMatchesFullOverStream(t *testing.T) {
	series := []float64{10, 15, 15, 20, 22.5, 30, 29, 31.5, 40}

	newPipeline := func() *tablefeat.Pipeline {
		p := tablefeat.NewPipeline()
		_ = p.Register(tablefeat.MustDiff("diff", "value", 1))
		_ = p.Register(tablefeat.MustRolling("mean_diff", "diff", 3, tablefeat.Mean))
		_ = p.Register(tablefeat.MustRolling("max_value", "value", 2, tablefeat.Max))
		return p
	}

	streamed := tablefeat.NewTable("value")
	p := newPipeline()
	for _, v := range series {
		streamed.AppendRow(tablefeat.Record{"value": v})
		if err := p.Apply(streamed, tablefeat.Incremental); err != nil {
			t.Fatalf("incremental Apply failed: %v", err)
		}
	}

	batch := tablefeat.NewTable("value")
	for _, v := range series {
		batch.AppendRow(tablefeat.Record{"value": v})
	}
	if err := newPipeline().Apply(batch, tablefeat.Full); err != nil {
		t.Fatalf("full Apply failed: %v", err)
	}

	if !reflect.DeepEqual(streamed, batch) {
		t.Error("incremental stream diverged from full recompute")
	}
}

func TestPipeline_Register(t *testing.T) {
	p := tablefeat.NewPipeline()
	if err := p.Register(nil); err == nil {
		t.Error("expected error for nil computation")
	}
	if err := p.Register(tablefeat.MustDiff("d", "value", 1)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := p.Register(tablefeat.MustDiff("d", "value", 2)); err == nil {
		t.Error("expected error for duplicate name")
	}
	if p.Len() != 1 {
		t.Errorf("len: got %d, want 1", p.Len())
	}
}

func TestPipeline_UnknownMode(t *testing.T) {
	p := tablefeat.NewPipeline()
	_ = p.Register(tablefeat.MustDiff("d", "value", 1))
	err := p.Apply(valueTable(1.0), tablefeat.Mode(42))
	if err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if errors.Is(err, tablefeat.ErrIntegrity) {
		t.Error("unknown mode must not look like an integrity error")
	}
}

// Mean of the last two values over a growing table of names and values.
func TestScenario_MeanOfLastTwo(t *testing.T) {
	store := newTestStore(t, initialRecords()...)
	if err := store.RegisterFeature(tablefeat.MustRolling("mean_value", "value", 2, tablefeat.Mean)); err != nil {
		t.Fatalf("RegisterFeature failed: %v", err)
	}

	if err := store.ApplyFeatures(tablefeat.Full); err != nil {
		t.Fatalf("full ApplyFeatures failed: %v", err)
	}
	before := store.Snapshot()
	wantFull := []any{nil, 12.5, 15.0, 17.5}
	for i, w := range wantFull {
		if v, _ := before.Value("mean_value", i); v != w {
			t.Errorf("row %d: got %v, want %v", i, v, w)
		}
	}

	if err := store.Append(tablefeat.Record{"name": "e", "value": 22.5}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if store.Len() != 5 {
		t.Fatalf("rows: got %d, want 5", store.Len())
	}

	if err := store.ApplyFeatures(tablefeat.Incremental); err != nil {
		t.Fatalf("incremental ApplyFeatures failed: %v", err)
	}
	after := store.Snapshot()
	if v, _ := after.Float("mean_value", 4); v != 21.25 {
		t.Errorf("row 5 mean: got %v, want 21.25", v)
	}
	for i := 0; i < 4; i++ {
		if !reflect.DeepEqual(before.Row(i), after.Row(i)) {
			t.Errorf("row %d changed: got %v, want %v", i, after.Row(i), before.Row(i))
		}
	}
}

func TestBuiltinConstructors_Errors(t *testing.T) {
	tests := []struct {
		name  string
		build func() (tablefeat.Computation, error)
	}{
		{name: "rolling negative periods", build: func() (tablefeat.Computation, error) {
			return tablefeat.Rolling("r", "value", -1, tablefeat.Sum)
		}},
		{name: "rolling empty name", build: func() (tablefeat.Computation, error) {
			return tablefeat.Rolling("", "value", 2, tablefeat.Sum)
		}},
		{name: "rolling empty field", build: func() (tablefeat.Computation, error) {
			return tablefeat.Rolling("r", "", 2, tablefeat.Sum)
		}},
		{name: "rolling nil aggregator", build: func() (tablefeat.Computation, error) {
			return tablefeat.Rolling("r", "value", 2, nil)
		}},
		{name: "diff zero lag", build: func() (tablefeat.Computation, error) {
			return tablefeat.Diff("d", "value", 0)
		}},
		{name: "pct change negative lag", build: func() (tablefeat.Computation, error) {
			return tablefeat.PctChange("p", "value", -3)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := tt.build()
			if err == nil {
				t.Fatal("expected error")
			}
			if c != nil {
				t.Errorf("expected nil computation, got %v", c)
			}
		})
	}
}

func TestBuiltinConstructors_Valid(t *testing.T) {
	c, err := tablefeat.Diff("d", "value", 2)
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if c.RequiredPeriods() != 3 {
		t.Errorf("required periods: got %d, want 3", c.RequiredPeriods())
	}

	defer func() {
		if recover() == nil {
			t.Error("MustDiff with zero lag did not panic")
		}
	}()
	tablefeat.MustDiff("d", "value", 0)
}
