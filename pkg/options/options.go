// Package options provides the functional-options configuration surface for
// the StateKeeper and EventLog engines: the storage directory, the segment
// size (records per segment, not bytes), and — for EventLog-mono — the base
// name segments are prefixed with. There is no compaction interval here: the
// spec's non-goals exclude compaction/GC of old segments entirely.
package options

import "strings"

// Options holds the configuration shared by both engines.
type Options struct {
	// DataDir is the directory segment files live in. Created if missing.
	DataDir string `json:"dataDir"`

	// SegmentSize is the number of records per segment file. Must be a
	// positive integer; segment index G for sequence S is floor(S / SegmentSize).
	SegmentSize uint64 `json:"segmentSize"`

	// BaseName is the fixed tag EventLog-mono stores every record under.
	// Unused by StateKeeper and EventLog-multi.
	BaseName string `json:"baseName"`
}

// OptionFunc modifies an Options value in place.
type OptionFunc func(*Options)

// WithDefaultOptions resets all fields to their defaults.
func WithDefaultOptions() OptionFunc {
	return func(o *Options) {
		defaults := NewDefaultOptions()
		o.DataDir = defaults.DataDir
		o.SegmentSize = defaults.SegmentSize
		o.BaseName = defaults.BaseName
	}
}

// WithDataDir sets the storage directory.
func WithDataDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.DataDir = directory
		}
	}
}

// WithSegmentSize sets the number of records stored per segment file.
// Values outside [MinSegmentSize, MaxSegmentSize] are ignored; construction
// code is responsible for rejecting non-positive sizes outright (BadArgument).
func WithSegmentSize(size uint64) OptionFunc {
	return func(o *Options) {
		if size >= MinSegmentSize && size <= MaxSegmentSize {
			o.SegmentSize = size
		}
	}
}

// WithBaseName sets the fixed tag an EventLog-mono instance stores records
// under.
func WithBaseName(name string) OptionFunc {
	return func(o *Options) {
		name = strings.TrimSpace(name)
		if name != "" {
			o.BaseName = name
		}
	}
}

// Apply builds an Options value from defaults plus the given overrides, in order.
func Apply(opts ...OptionFunc) Options {
	o := NewDefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
