package tablefeat

import (
	"errors"
	"fmt"
	"time"
)

// Kind is the closed set of value types a schema field may declare.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindString
	KindFloat
	KindInt
	KindBool
	KindTimestamp
)

var kindNames = map[Kind]string{
	KindString:    "string",
	KindFloat:     "float",
	KindInt:       "int",
	KindBool:      "bool",
	KindTimestamp: "timestamp",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind maps a kind name ("string", "float", "int", "bool", "timestamp")
// to its Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindInvalid, fmt.Errorf("tablefeat: unknown kind %q", s)
}

// kindOf reports the Kind of a runtime value. Anything outside the
// recognized set is KindInvalid.
func kindOf(v any) Kind {
	switch v.(type) {
	case string:
		return KindString
	case float64:
		return KindFloat
	case int64, int:
		return KindInt
	case bool:
		return KindBool
	case time.Time:
		return KindTimestamp
	}
	return KindInvalid
}

// normalize converts accepted aliases to the canonical stored type.
func normalize(v any) any {
	if i, ok := v.(int); ok {
		return int64(i)
	}
	return v
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	if k := kindOf(v); k != KindInvalid {
		return k.String()
	}
	return fmt.Sprintf("%T", v)
}

type Field struct {
	Name string
	Kind Kind
}

// Schema is an ordered, immutable field description.
type Schema struct {
	fields []Field
	index  map[string]int
}

func NewSchema(fields ...Field) (Schema, error) {
	if len(fields) == 0 {
		return Schema{}, errors.New("tablefeat: schema requires at least one field")
	}
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return Schema{}, errors.New("tablefeat: schema field name required")
		}
		if _, ok := kindNames[f.Kind]; !ok {
			return Schema{}, fmt.Errorf("tablefeat: field %q has invalid kind %v", f.Name, f.Kind)
		}
		if _, dup := index[f.Name]; dup {
			return Schema{}, fmt.Errorf("tablefeat: duplicate schema field %q", f.Name)
		}
		index[f.Name] = i
	}
	return Schema{
		fields: append([]Field(nil), fields...),
		index:  index,
	}, nil
}

// MustSchema is like NewSchema but panics on error.
func MustSchema(fields ...Field) Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s Schema) Fields() []Field { return append([]Field(nil), s.fields...) }

func (s Schema) Len() int { return len(s.fields) }

func (s Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

func (s Schema) Kind(name string) (Kind, bool) {
	i, ok := s.index[name]
	if !ok {
		return KindInvalid, false
	}
	return s.fields[i].Kind, true
}
