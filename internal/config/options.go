package config

import (
	"fmt"
	"maps"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Well-known pipeline option keys.
const (
	KeyDataDir          = "data_dir"
	KeyInputDirname     = "input_dirname"
	KeyFilePattern      = "website_data_file_pattern"
	KeyAttendeeFallback = "attendee_fallback"
	KeyLegacyCutoffYear = "legacy_cutoff_year"

	// KeyDataPreprocessed is written by the preprocessor.
	KeyDataPreprocessed = "data_preprocessed"
)

// Defaults applied when an option is absent.
const (
	DefaultAttendeeFallback = 10
	DefaultLegacyCutoffYear = 2014
)

// Options is the option mapping threaded through every pipeline stage.
//
// Stages read it and may return an updated copy; a stage never mutates the
// Options value it was given.
type Options map[string]any

// Clone returns a shallow copy of o. A nil Options clones to an empty map.
func (o Options) Clone() Options {
	out := make(Options, len(o)+1)
	maps.Copy(out, o)
	return out
}

// With returns a copy of o with key set to value.
func (o Options) With(key string, value any) Options {
	out := o.Clone()
	out[key] = value
	return out
}

// Merge returns a copy of o overlaid with every key of other.
func (o Options) Merge(other Options) Options {
	out := o.Clone()
	maps.Copy(out, other)
	return out
}

// String returns a text option. Non-string scalars are formatted.
func (o Options) String(key string) (string, bool) {
	v, ok := o[key]
	if !ok || v == nil {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case fmt.Stringer:
		return s.String(), true
	default:
		return fmt.Sprint(s), true
	}
}

// Int returns an integer option, or def when the key is absent or not a
// whole number. YAML and JSON decoders hand back int, int64 or float64
// depending on the source, so all of them are accepted.
func (o Options) Int(key string, def int) int {
	switch v := o[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case float64:
		if v == math.Trunc(v) {
			return int(v)
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return def
}

// Bool returns a boolean option; absent or unparseable values are false.
func (o Options) Bool(key string) bool {
	switch v := o[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	}
	return false
}

// AttendeeFallback returns the attendee count substituted for unparseable values.
func (o Options) AttendeeFallback() int {
	return o.Int(KeyAttendeeFallback, DefaultAttendeeFallback)
}

// LegacyCutoffYear returns the first year labeled CURRENT.
func (o Options) LegacyCutoffYear() int {
	return o.Int(KeyLegacyCutoffYear, DefaultLegacyCutoffYear)
}

// LoadOptionsFile reads a YAML mapping of pipeline options.
func LoadOptionsFile(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read options file: %w", err)
	}

	var opts Options
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return nil, fmt.Errorf("failed to parse options YAML: %w", err)
	}
	if opts == nil {
		opts = Options{}
	}

	return opts, nil
}
