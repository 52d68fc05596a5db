// Package tablefeat provides an embedded, incrementally growing table for
// streaming records, with windowed feature computation.
//
// It is designed for processes that receive one observation at a time
// (a sensor reading, a market tick) and need a consistent history plus
// derived features without recomputing the whole history on each arrival.
//
// Basic usage:
//
//	schema, err := tablefeat.NewSchema(
//	    tablefeat.Field{Name: "name", Kind: tablefeat.KindString},
//	    tablefeat.Field{Name: "value", Kind: tablefeat.KindFloat},
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store, err := tablefeat.New(tablefeat.Config{Schema: schema})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store.RegisterFeature(tablefeat.MustRolling("mean_value", "value", 2, tablefeat.Mean))
//
//	// Append records
//	store.Append(tablefeat.Record{"name": "a", "value": 10.0})
//	store.Append(tablefeat.Record{"name": "b", "value": 15.0})
//
//	// Derive features for the newest row only
//	store.ApplyFeatures(tablefeat.Incremental)
//
//	mean, _ := store.Snapshot().Float("mean_value", 1) // 12.5
//
// For time-keyed data use NewTimeSeries, which adds timestamp parsing,
// ordering and duplicate/gap policies on top of Store.
package tablefeat
