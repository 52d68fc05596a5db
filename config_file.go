package tablefeat

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML form of a store definition:
//
//	schema:
//	  - {name: date, kind: timestamp}
//	  - {name: value, kind: float}
//	time_series:
//	  time_key: date
//	  layout: "2006-01-02"
//	  frequency: 24h
//	  gap_policy: reject
//	features:
//	  - {name: mean_value, type: rolling_mean, field: value, periods: 2}
type FileConfig struct {
	Schema     []FieldConfig   `yaml:"schema"`
	TimeSeries *TimeSeriesFile `yaml:"time_series"`
	Features   []FeatureConfig `yaml:"features"`
}

type FieldConfig struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
}

type TimeSeriesFile struct {
	TimeKey    string `yaml:"time_key"`
	Layout     string `yaml:"layout"`
	Location   string `yaml:"location"`
	Frequency  string `yaml:"frequency"`
	GapPolicy  string `yaml:"gap_policy"`
	FlagColumn string `yaml:"flag_column"`
}

type FeatureConfig struct {
	Name    string  `yaml:"name"`
	Type    string  `yaml:"type"`
	Field   string  `yaml:"field"`
	Periods int     `yaml:"periods"`
	Lag     int     `yaml:"lag"`
	P       float64 `yaml:"p"`
}

// LoadConfig reads and parses a YAML store definition. Unknown keys are
// rejected.
func LoadConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*FileConfig, error) {
	var fc FileConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&fc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(fc.Schema) == 0 {
		return nil, errors.New("invalid config: schema is required")
	}
	return &fc, nil
}

func (fc *FileConfig) SchemaDef() (Schema, error) {
	fields := make([]Field, 0, len(fc.Schema))
	for _, f := range fc.Schema {
		kind, err := ParseKind(f.Kind)
		if err != nil {
			return Schema{}, fmt.Errorf("field %q: %w", f.Name, err)
		}
		fields = append(fields, Field{Name: f.Name, Kind: kind})
	}
	return NewSchema(fields...)
}

// Computations builds the configured features in file order.
func (fc *FileConfig) Computations() ([]Computation, error) {
	out := make([]Computation, 0, len(fc.Features))
	for _, f := range fc.Features {
		c, err := f.build()
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", f.Name, err)
		}
		out = append(out, c)
	}
	return out, nil
}

var rollingAggregators = map[string]AggregatorFactory{
	"rolling_count":    Count,
	"rolling_sum":      Sum,
	"rolling_mean":     Mean,
	"rolling_min":      Min,
	"rolling_max":      Max,
	"rolling_std":      StdDev,
	"rolling_last":     Last,
	"rolling_distinct": CountDistinct,
}

func (f FeatureConfig) build() (Computation, error) {
	if f.Name == "" {
		return nil, errors.New("name is required")
	}
	if f.Field == "" {
		return nil, errors.New("field is required")
	}
	if f.Periods < 0 {
		return nil, fmt.Errorf("negative periods %d", f.Periods)
	}
	if agg, ok := rollingAggregators[f.Type]; ok {
		return Rolling(f.Name, f.Field, f.Periods, agg)
	}
	switch f.Type {
	case "rolling_percentile":
		if f.P < 0 || f.P > 1 {
			return nil, fmt.Errorf("percentile p %v out of [0, 1]", f.P)
		}
		return Rolling(f.Name, f.Field, f.Periods, Percentile(f.P))
	case "diff", "pct_change":
		lag := f.Lag
		if lag == 0 {
			lag = 1
		}
		if lag < 0 {
			return nil, fmt.Errorf("negative lag %d", lag)
		}
		if f.Type == "diff" {
			return Diff(f.Name, f.Field, lag)
		}
		return PctChange(f.Name, f.Field, lag)
	}
	return nil, fmt.Errorf("unknown feature type %q", f.Type)
}

// TimeSeriesDef converts the time_series section. It reports false when
// the section is absent.
func (fc *FileConfig) TimeSeriesDef() (TimeSeriesConfig, bool, error) {
	tf := fc.TimeSeries
	if tf == nil {
		return TimeSeriesConfig{}, false, nil
	}
	if tf.TimeKey == "" {
		return TimeSeriesConfig{}, true, errors.New("time_series.time_key is required")
	}

	tsc := TimeSeriesConfig{
		TimeKey:    tf.TimeKey,
		Layout:     tf.Layout,
		FlagColumn: tf.FlagColumn,
	}
	if tf.Location != "" {
		loc, err := time.LoadLocation(tf.Location)
		if err != nil {
			return TimeSeriesConfig{}, true, fmt.Errorf("time_series.location: %w", err)
		}
		tsc.Location = loc
	}
	if tf.Frequency != "" {
		d, err := time.ParseDuration(tf.Frequency)
		if err != nil {
			return TimeSeriesConfig{}, true, fmt.Errorf("time_series.frequency: %w", err)
		}
		tsc.Frequency = d
	}
	switch tf.GapPolicy {
	case "", "reject":
		tsc.GapPolicy = GapReject
	case "flag":
		tsc.GapPolicy = GapFlag
	default:
		return TimeSeriesConfig{}, true, fmt.Errorf("time_series.gap_policy: unknown policy %q", tf.GapPolicy)
	}
	return tsc, true, nil
}

// Config builds the store Config described by the file. Initial records,
// sink, logger and ID are left for the caller.
func (fc *FileConfig) Config() (Config, error) {
	schema, err := fc.SchemaDef()
	if err != nil {
		return Config{}, err
	}
	features, err := fc.Computations()
	if err != nil {
		return Config{}, err
	}
	return Config{Schema: schema, Features: features}, nil
}
