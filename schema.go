package tablefeat

import "sort"

// Record is a single observation keyed by field name.
type Record map[string]any

// Validate checks rec against schema. It reports a field-set mismatch
// before any type check, then the first mistyped field in schema order.
func Validate(schema Schema, rec Record) error {
	var missing, extra []string
	for _, f := range schema.fields {
		if _, ok := rec[f.Name]; !ok {
			missing = append(missing, f.Name)
		}
	}
	for name := range rec {
		if _, ok := schema.index[name]; !ok {
			extra = append(extra, name)
		}
	}
	if len(missing) > 0 || len(extra) > 0 {
		sort.Strings(extra)
		return &SchemaMismatchError{Missing: missing, Extra: extra}
	}

	for _, f := range schema.fields {
		v := rec[f.Name]
		if kindOf(v) != f.Kind {
			return &TypeMismatchError{Field: f.Name, Want: f.Kind, Got: typeName(v)}
		}
	}
	return nil
}
