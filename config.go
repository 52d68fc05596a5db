package tablefeat

import (
	"fmt"
	"log/slog"
	"time"
)

type Config struct {
	Schema   Schema
	Initial  []Record      // optional history, committed at construction
	Features []Computation // registered in order
	Sink     Sink          // optional journal for committed records
	Logger   *slog.Logger  // defaults to slog.Default()

	// ID names the store in logs and in the journal. A random UUID is used
	// when empty; set it to resume a journal restored with a sink's Load.
	ID string
}

// GapPolicy decides what happens when a timestamp breaks the cadence.
type GapPolicy int

const (
	// GapReject fails the append with a GapError.
	GapReject GapPolicy = iota
	// GapFlag accepts the row and marks it in the flag column.
	GapFlag
)

func (p GapPolicy) String() string {
	switch p {
	case GapReject:
		return "reject"
	case GapFlag:
		return "flag"
	}
	return fmt.Sprintf("GapPolicy(%d)", int(p))
}

// DefaultLayout matches "2024-01-24 13:45:00".
const DefaultLayout = "2006-01-02 15:04:05"

// DefaultFlagColumn is the cadence flag column used with GapFlag.
const DefaultFlagColumn = "out_of_cadence"

type TimeSeriesConfig struct {
	TimeKey   string
	Layout    string         // defaults to DefaultLayout
	Location  *time.Location // defaults to UTC
	Frequency time.Duration  // 0 disables the cadence check
	GapPolicy GapPolicy
	// FlagColumn is only used with GapFlag and defaults to DefaultFlagColumn.
	FlagColumn string
}
