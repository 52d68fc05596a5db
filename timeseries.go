package tablefeat

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"time"
)

// TimeSeriesStore is a Store keyed by a timestamp field. Rows are kept in
// time order, timestamps are unique, and an optional nominal frequency is
// enforced according to the gap policy.
type TimeSeriesStore struct {
	*Store

	key        string
	layout     string
	loc        *time.Location
	freq       time.Duration
	policy     GapPolicy
	flagColumn string

	latest time.Time
}

// NewTimeSeries builds a time-series store. The time key must be declared
// as KindTimestamp in the schema; in records it may be given either as a
// string in the configured layout or as a time.Time.
//
// Initial records are sorted by time. Repeated timestamps fail with a
// DuplicateTimestampError, and with GapReject a break in cadence fails
// with a GapError.
func NewTimeSeries(cfg Config, tsc TimeSeriesConfig) (*TimeSeriesStore, error) {
	kind, ok := cfg.Schema.Kind(tsc.TimeKey)
	if !ok {
		return nil, fmt.Errorf("tablefeat: time key %q is not a schema field", tsc.TimeKey)
	}
	if kind != KindTimestamp {
		return nil, fmt.Errorf("tablefeat: time key %q has kind %s, want %s", tsc.TimeKey, kind, KindTimestamp)
	}
	if tsc.Frequency < 0 {
		return nil, errors.New("tablefeat: negative frequency")
	}
	if tsc.GapPolicy != GapReject && tsc.GapPolicy != GapFlag {
		return nil, fmt.Errorf("tablefeat: unknown gap policy %d", int(tsc.GapPolicy))
	}

	ts := &TimeSeriesStore{
		key:    tsc.TimeKey,
		layout: tsc.Layout,
		loc:    tsc.Location,
		freq:   tsc.Frequency,
		policy: tsc.GapPolicy,
	}
	if ts.layout == "" {
		ts.layout = DefaultLayout
	}
	if ts.loc == nil {
		ts.loc = time.UTC
	}

	var extra []string
	if ts.policy == GapFlag && ts.freq > 0 {
		ts.flagColumn = tsc.FlagColumn
		if ts.flagColumn == "" {
			ts.flagColumn = DefaultFlagColumn
		}
		if _, clash := cfg.Schema.Kind(ts.flagColumn); clash {
			return nil, fmt.Errorf("tablefeat: flag column %q clashes with a schema field", ts.flagColumn)
		}
		extra = append(extra, ts.flagColumn)
	}

	s, err := newStore(cfg, extra...)
	if err != nil {
		return nil, err
	}
	ts.Store = s
	s.admit = ts.admit
	s.committed = ts.committed

	if err := ts.seedInitial(cfg.Initial); err != nil {
		return nil, err
	}
	return ts, nil
}

func (ts *TimeSeriesStore) seedInitial(initial []Record) error {
	recs := make([]Record, 0, len(initial))
	for i, rec := range initial {
		parsed, err := ts.parseKey(rec)
		if err == nil {
			err = Validate(ts.schema, parsed)
		}
		if err != nil {
			return fmt.Errorf("invalid initial record %d: %w", i, err)
		}
		recs = append(recs, parsed)
	}
	slices.SortStableFunc(recs, func(a, b Record) int {
		return ts.keyTime(a).Compare(ts.keyTime(b))
	})

	for i, rec := range recs {
		t := ts.keyTime(rec)
		gapped := false
		if i > 0 {
			prev := ts.keyTime(recs[i-1])
			if t.Equal(prev) {
				return &DuplicateTimestampError{Timestamp: t}
			}
			if ts.freq > 0 && t.Sub(prev) != ts.freq {
				if ts.policy == GapReject {
					return &GapError{Latest: prev, Timestamp: t, Frequency: ts.freq}
				}
				gapped = true
			}
		}
		ts.Store.seed(rec, i, ts.flags(gapped))
		ts.latest = t
	}
	return ts.verify()
}

// parseKey returns a copy of rec with the time key parsed. A missing key
// is left for Validate to report.
func (ts *TimeSeriesStore) parseKey(rec Record) (Record, error) {
	v, ok := rec[ts.key]
	if !ok {
		return rec, nil
	}
	var t time.Time
	switch x := v.(type) {
	case time.Time:
		t = x
	case string:
		var err error
		t, err = time.ParseInLocation(ts.layout, x, ts.loc)
		if err != nil {
			return nil, &ParseError{Field: ts.key, Value: x, Layout: ts.layout, Err: err}
		}
	default:
		return nil, &ParseError{Field: ts.key, Value: v, Layout: ts.layout,
			Err: fmt.Errorf("expected string, got %s", typeName(v))}
	}
	out := maps.Clone(rec)
	out[ts.key] = t
	return out, nil
}

func (ts *TimeSeriesStore) keyTime(rec Record) time.Time {
	t, _ := rec[ts.key].(time.Time)
	return t
}

func (ts *TimeSeriesStore) flags(gapped bool) map[string]any {
	if ts.flagColumn == "" {
		return nil
	}
	return map[string]any{ts.flagColumn: gapped}
}

// search returns the insert position of t and whether t is already present.
func (ts *TimeSeriesStore) search(t time.Time) (int, bool) {
	col := ts.table.cols[ts.table.index[ts.key]].values
	i := sort.Search(len(col), func(i int) bool {
		return !col[i].(time.Time).Before(t)
	})
	return i, i < len(col) && col[i].(time.Time).Equal(t)
}

func (ts *TimeSeriesStore) admit(rec Record) (Record, int, map[string]any, error) {
	parsed, err := ts.parseKey(rec)
	if err != nil {
		return nil, 0, nil, err
	}
	if err := Validate(ts.schema, parsed); err != nil {
		return nil, 0, nil, err
	}

	t := ts.keyTime(parsed)
	at, dup := ts.search(t)
	if dup {
		return nil, 0, nil, &DuplicateTimestampError{Timestamp: t}
	}

	// Cadence is measured against the latest timestamp ever committed, so it
	// survives eviction of every row.
	gapped := false
	if ts.freq > 0 && !ts.latest.IsZero() && t.Sub(ts.latest) != ts.freq {
		if ts.policy == GapReject {
			return nil, 0, nil, &GapError{Latest: ts.latest, Timestamp: t, Frequency: ts.freq}
		}
		gapped = true
	}
	return parsed, at, ts.flags(gapped), nil
}

func (ts *TimeSeriesStore) committed(row Record, extra map[string]any) {
	t := ts.keyTime(row)
	if gapped, _ := extra[ts.flagColumn].(bool); gapped {
		ts.logger.Warn("timestamp breaks cadence",
			"timestamp", t, "latest", ts.latest, "frequency", ts.freq)
	}
	if ts.latest.IsZero() || t.After(ts.latest) {
		ts.latest = t
	}
}

// LatestTimestamp returns the newest committed timestamp. It reports
// false while the store has never held a row.
func (ts *TimeSeriesStore) LatestTimestamp() (time.Time, bool) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.latest, !ts.latest.IsZero()
}

func (ts *TimeSeriesStore) TimeKey() string          { return ts.key }
func (ts *TimeSeriesStore) Frequency() time.Duration { return ts.freq }
func (ts *TimeSeriesStore) GapPolicy() GapPolicy     { return ts.policy }

// FlagColumn returns the cadence flag column, or "" when rows are not
// flagged.
func (ts *TimeSeriesStore) FlagColumn() string { return ts.flagColumn }
