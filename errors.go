package tablefeat

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors. Typed errors below match them via errors.Is.
var (
	ErrSchemaMismatch     = errors.New("tablefeat: record fields do not match schema")
	ErrTypeMismatch       = errors.New("tablefeat: field type mismatch")
	ErrParse              = errors.New("tablefeat: timestamp parse failed")
	ErrIntegrity          = errors.New("tablefeat: row count integrity violated")
	ErrDuplicateTimestamp = errors.New("tablefeat: duplicate timestamp")
	ErrGap                = errors.New("tablefeat: timestamp gap does not match frequency")

	// ErrStoreBroken is returned by every mutation after an IntegrityError.
	ErrStoreBroken = errors.New("tablefeat: store is broken after integrity failure")
)

type SchemaMismatchError struct {
	Missing   []string
	Extra     []string
	Duplicate []string
}

func (e *SchemaMismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Extra) > 0 {
		parts = append(parts, "unexpected "+strings.Join(e.Extra, ", "))
	}
	if len(e.Duplicate) > 0 {
		parts = append(parts, "repeated "+strings.Join(e.Duplicate, ", "))
	}
	return fmt.Sprintf("%v: %s", ErrSchemaMismatch, strings.Join(parts, "; "))
}

func (e *SchemaMismatchError) Is(target error) bool { return target == ErrSchemaMismatch }

type TypeMismatchError struct {
	Field string
	Want  Kind
	Got   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%v: %q is not of the expected type %s (got %s)", ErrTypeMismatch, e.Field, e.Want, e.Got)
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

type ParseError struct {
	Field  string
	Value  any
	Layout string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: field %q value %v with layout %q: %v", ErrParse, e.Field, e.Value, e.Layout, e.Err)
	}
	return fmt.Sprintf("%v: field %q value %v with layout %q", ErrParse, e.Field, e.Value, e.Layout)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }
func (e *ParseError) Unwrap() error        { return e.Err }

// IntegrityError signals a defect in the store itself, not bad input.
// A store that returned one refuses further mutations.
type IntegrityError struct {
	Expected int
	Actual   int
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%v: expected %d rows, have %d", ErrIntegrity, e.Expected, e.Actual)
}

func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrity }

type DuplicateTimestampError struct {
	Timestamp time.Time
}

func (e *DuplicateTimestampError) Error() string {
	return fmt.Sprintf("%v: %s", ErrDuplicateTimestamp, e.Timestamp.Format(time.RFC3339Nano))
}

func (e *DuplicateTimestampError) Is(target error) bool { return target == ErrDuplicateTimestamp }

type GapError struct {
	Latest    time.Time
	Timestamp time.Time
	Frequency time.Duration
}

func (e *GapError) Error() string {
	return fmt.Sprintf("%v: %s after %s is %s, want %s", ErrGap,
		e.Timestamp.Format(time.RFC3339), e.Latest.Format(time.RFC3339),
		e.Timestamp.Sub(e.Latest), e.Frequency)
}

func (e *GapError) Is(target error) bool { return target == ErrGap }
