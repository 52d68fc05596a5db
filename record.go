package tablefeat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// DecodeJSON parses a JSON object into a Record. Numeric literals keep
// their written form: integral literals become int64, all others float64.
// Repeated keys are reported as a schema mismatch.
func DecodeJSON(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("tablefeat: decode record: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("tablefeat: decode record: expected object, got %v", tok)
	}

	rec := make(Record)
	var duplicate []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("tablefeat: decode record: %w", err)
		}
		key, _ := tok.(string)

		var raw any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("tablefeat: decode record field %q: %w", key, err)
		}
		if _, seen := rec[key]; seen {
			duplicate = append(duplicate, key)
			continue
		}
		rec[key] = literal(raw)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("tablefeat: decode record: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("tablefeat: decode record: trailing data after object")
	}

	if len(duplicate) > 0 {
		return nil, &SchemaMismatchError{Duplicate: duplicate}
	}
	return rec, nil
}

func literal(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if !strings.ContainsAny(n.String(), ".eE") {
		if i, err := n.Int64(); err == nil {
			return i
		}
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// EncodeRecord serializes the schema fields of rec as JSON. Timestamps are
// written as RFC 3339 with nanoseconds.
func (s Schema) EncodeRecord(rec Record) ([]byte, error) {
	out := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		v, ok := rec[f.Name]
		if !ok {
			return nil, &SchemaMismatchError{Missing: []string{f.Name}}
		}
		if t, ok := v.(time.Time); ok {
			v = t.Format(time.RFC3339Nano)
		}
		out[f.Name] = v
	}
	return json.Marshal(out)
}

// DecodeRecord is the inverse of EncodeRecord: values are converted to
// the kinds the schema declares, then validated.
func (s Schema) DecodeRecord(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("tablefeat: decode record: %w", err)
	}

	rec := make(Record, len(raw))
	for name, v := range raw {
		kind, ok := s.Kind(name)
		if !ok {
			rec[name] = v
			continue
		}
		conv, err := convert(kind, v)
		if err != nil {
			return nil, fmt.Errorf("tablefeat: decode field %q: %w", name, err)
		}
		rec[name] = conv
	}
	if err := Validate(s, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func convert(kind Kind, v any) (any, error) {
	switch kind {
	case KindFloat:
		if n, ok := v.(json.Number); ok {
			return n.Float64()
		}
	case KindInt:
		if n, ok := v.(json.Number); ok {
			return n.Int64()
		}
	case KindTimestamp:
		if str, ok := v.(string); ok {
			return time.Parse(time.RFC3339Nano, str)
		}
	}
	return v, nil
}
