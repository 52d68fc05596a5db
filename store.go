package tablefeat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/google/uuid"
)

// State is the lifecycle state of a store.
type State int

const (
	StateEmpty State = iota
	StatePopulated
)

func (s State) String() string {
	if s == StatePopulated {
		return "populated"
	}
	return "empty"
}

// Stats reports the intactness counters of a store.
type Stats struct {
	Rows          int
	TotalAppended int
	ExpectedDrops int
	// Pending counts rows committed since the last feature pass.
	Pending int
}

// Store is a schema-validated, append-only table with its own feature
// pipeline. It is meant for a single writer; the internal lock only
// guarantees readers never see a half-applied mutation.
type Store struct {
	mu       sync.RWMutex
	id       string
	schema   Schema
	table    *Table
	pipeline *Pipeline
	sink     Sink
	logger   *slog.Logger

	totalAppended int
	expectedDrops int

	pending   int
	needsFull bool
	broken    bool

	// admit validates a record and picks its row position. committed runs
	// after a successful commit. Both are called with mu held.
	admit     func(rec Record) (row Record, at int, extra map[string]any, err error)
	committed func(row Record, extra map[string]any)
}

func New(cfg Config) (*Store, error) {
	s, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	for i, rec := range cfg.Initial {
		if err := Validate(s.schema, rec); err != nil {
			return nil, fmt.Errorf("invalid initial record %d: %w", i, err)
		}
		s.seed(rec, s.table.Len(), nil)
	}
	if err := s.verify(); err != nil {
		return nil, err
	}
	return s, nil
}

// newStore builds an empty store with its schema columns, any extra
// store-managed columns and the configured features.
func newStore(cfg Config, extra ...string) (*Store, error) {
	if cfg.Schema.Len() == 0 {
		return nil, errors.New("tablefeat: schema required")
	}

	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		id:       id,
		schema:   cfg.Schema,
		table:    NewTable(append(cfg.Schema.Names(), extra...)...),
		pipeline: NewPipeline(),
		sink:     cfg.Sink,
		logger:   logger.With("store_id", id),
	}
	s.admit = s.admitTail
	for _, c := range cfg.Features {
		if err := s.pipeline.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) ID() string     { return s.id }
func (s *Store) Schema() Schema { return s.schema }

// Append validates rec and commits it as the newest row. On any error the
// table is left unchanged.
func (s *Store) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.broken {
		return ErrStoreBroken
	}
	row, at, extra, err := s.admit(rec)
	if err != nil {
		return fmt.Errorf("append: %w", err)
	}
	if err := s.commit(row, at, extra); err != nil {
		return err
	}
	if s.committed != nil {
		s.committed(row, extra)
	}
	return nil
}

func (s *Store) admitTail(rec Record) (Record, int, map[string]any, error) {
	if err := Validate(s.schema, rec); err != nil {
		return nil, 0, nil, err
	}
	return rec, s.table.Len(), nil, nil
}

// AppendJSON decodes a JSON object with DecodeJSON and appends it.
func (s *Store) AppendJSON(data []byte) error {
	rec, err := DecodeJSON(data)
	if err != nil {
		return fmt.Errorf("append: %w", err)
	}
	return s.Append(rec)
}

// seed places an already validated record without journaling it.
func (s *Store) seed(rec Record, at int, extra map[string]any) {
	s.table.insertRow(at, s.rowValues(rec, extra))
	s.totalAppended++
	s.pending++
	if at != s.table.Len()-1 {
		s.needsFull = true
	}
}

func (s *Store) rowValues(rec Record, extra map[string]any) map[string]any {
	values := make(map[string]any, len(s.schema.fields)+len(extra))
	for _, f := range s.schema.fields {
		values[f.Name] = normalize(rec[f.Name])
	}
	maps.Copy(values, extra)
	return values
}

// commit inserts a validated record at position at, checks the intactness
// invariant and journals it. Any failure undoes the insert.
func (s *Store) commit(rec Record, at int, extra map[string]any) error {
	values := s.rowValues(rec, extra)
	s.table.insertRow(at, values)
	s.totalAppended++

	rollback := func() {
		s.table.removeRow(at)
		s.totalAppended--
	}

	if err := s.verify(); err != nil {
		rollback()
		s.broken = true
		s.logger.Error("integrity check failed", "error", err)
		return err
	}

	if s.sink != nil {
		data, err := s.schema.EncodeRecord(values)
		if err == nil {
			err = s.sink.Write(s.id, int64(s.totalAppended), data)
		}
		if err != nil {
			rollback()
			return fmt.Errorf("journal record: %w", err)
		}
	}

	s.pending++
	if at != s.table.Len()-1 {
		s.needsFull = true
	}
	s.logger.Debug("row committed", "row", at, "rows", s.table.Len())
	return nil
}

func (s *Store) verify() error {
	expected := s.totalAppended - s.expectedDrops
	if actual := s.table.Len(); actual != expected {
		return &IntegrityError{Expected: expected, Actual: actual}
	}
	return nil
}

// RegisterFeature adds c to this store's pipeline.
func (s *Store) RegisterFeature(c Computation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.pipeline.Register(c); err != nil {
		return err
	}
	if s.table.Len() > 0 {
		s.needsFull = true
	}
	return nil
}

func (s *Store) Features() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pipeline.Names()
}

// ApplyFeatures runs the pipeline over the table. An Incremental pass is
// promoted to Full when more than the newest row lacks features: several
// rows were committed since the last pass, a row was inserted before the
// tail, or a feature was registered after rows existed.
//
// If a computation fails, derived columns are restored to their state
// before the pass.
func (s *Store) ApplyFeatures(mode Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.broken {
		return ErrStoreBroken
	}
	if mode == Incremental && (s.needsFull || s.pending > 1) {
		s.logger.Debug("promoting incremental feature pass to full",
			"pending", s.pending, "reordered", s.needsFull)
		mode = Full
	}

	saved := s.saveDerived(mode)
	if err := s.pipeline.Apply(s.table, mode); err != nil {
		s.restoreDerived(saved)
		return err
	}

	s.pending = 0
	s.needsFull = false
	s.logger.Debug("features applied", "mode", mode.String(), "features", s.pipeline.Len())
	return nil
}

type derivedState struct {
	columns int
	from    int
	values  map[string][]any
}

// saveDerived copies the feature output cells a pass of the given mode may
// overwrite.
func (s *Store) saveDerived(mode Mode) derivedState {
	st := derivedState{columns: len(s.table.cols), values: make(map[string][]any)}
	if mode == Incremental {
		st.from = max(s.table.Len()-1, 0)
	}
	for _, name := range s.pipeline.Columns() {
		if i, ok := s.table.index[name]; ok {
			st.values[name] = append([]any(nil), s.table.cols[i].values[st.from:]...)
		}
	}
	return st
}

func (s *Store) restoreDerived(st derivedState) {
	for name, vals := range st.values {
		i := s.table.index[name]
		copy(s.table.cols[i].values[st.from:], vals)
	}
	for _, c := range s.table.cols[st.columns:] {
		delete(s.table.index, c.name)
	}
	s.table.cols = s.table.cols[:st.columns]
}

// Snapshot returns a copy of the table.
func (s *Store) Snapshot() *Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.Clone()
}

// Tail returns a copy of the last k rows.
func (s *Store) Tail(k int) *Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.Tail(k)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.Len()
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.table.Len() == 0 {
		return StateEmpty
	}
	return StatePopulated
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Rows:          s.table.Len(),
		TotalAppended: s.totalAppended,
		ExpectedDrops: s.expectedDrops,
		Pending:       s.pending,
	}
}

// Evict drops the oldest rows so that at most keep remain, and returns how
// many were dropped. Dropped rows are counted as expected drops.
func (s *Store) Evict(keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.broken {
		return 0, ErrStoreBroken
	}
	if keep < 0 {
		return 0, fmt.Errorf("tablefeat: evict: negative keep %d", keep)
	}
	n := s.table.Len() - keep
	if n <= 0 {
		return 0, nil
	}

	next := s.table.Tail(keep)
	if keep == 0 {
		next = NewTable(s.table.Columns()...)
	}
	if expected := s.totalAppended - s.expectedDrops - n; next.Len() != expected {
		s.broken = true
		err := &IntegrityError{Expected: expected, Actual: next.Len()}
		s.logger.Error("integrity check failed", "error", err)
		return 0, err
	}

	s.table = next
	s.expectedDrops += n
	s.pending = min(s.pending, keep)
	s.logger.Debug("rows evicted", "dropped", n, "rows", keep)
	return n, nil
}

// Predict hands the last lastK rows (all rows when lastK <= 0) to p.
func (s *Store) Predict(ctx context.Context, p Predictor, lastK int) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := p.Predict(ctx, s.Tail(lastK))
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	return out, nil
}

// Close closes the sink, if any.
func (s *Store) Close() error {
	if s.sink == nil {
		return nil
	}
	if err := s.sink.Close(); err != nil {
		return fmt.Errorf("error closing sink: %w", err)
	}
	return nil
}
