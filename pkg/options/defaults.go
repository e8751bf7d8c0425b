package options

const (
	// DefaultDataDir is used when no directory is given at construction.
	DefaultDataDir = "./marasa-data"

	// DefaultSegmentSize matches the spec's default of 10,000 records per segment.
	DefaultSegmentSize uint64 = 10_000

	// MinSegmentSize is the smallest segment size this package will accept
	// through WithSegmentSize; 1 is also valid but rarely useful.
	MinSegmentSize uint64 = 1

	// MaxSegmentSize bounds segment size to keep segment indices and file
	// counts sane; there is no hard requirement for this in the spec, just
	// a sanity rail.
	MaxSegmentSize uint64 = 10_000_000

	// DefaultBaseName is the tag an EventLog-mono instance uses when the
	// caller doesn't supply one.
	DefaultBaseName = "log"
)

var defaultOptions = Options{
	DataDir:     DefaultDataDir,
	SegmentSize: DefaultSegmentSize,
	BaseName:    DefaultBaseName,
}

// NewDefaultOptions returns a copy of the package defaults.
func NewDefaultOptions() Options {
	return defaultOptions
}
