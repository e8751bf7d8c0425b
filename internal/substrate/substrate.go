// Package substrate implements the segmented log substrate shared by the
// StateKeeper and EventLog engines: segment index arithmetic, segment file
// naming and discovery, selection of the file to read as of a given
// sequence number, and line-by-line record reading.
//
// This mirrors the role ignite's internal/storage and pkg/seginfo play
// together, generalized from ignite's size-bounded binary segments to the
// spec's record-count-bounded, line-oriented text segments and from direct
// os.* calls to an injected afero.Fs so the substrate can be driven against
// an in-memory filesystem in tests.
package substrate

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/marasadb/marasa/internal/codec"
	marasaerrors "github.com/marasadb/marasa/pkg/errors"
	"github.com/marasadb/marasa/pkg/filesys"
)

// segmentFileMode is the permission segment files are created with;
// segmentDirMode is the one the storage directory is created with.
const segmentFileMode = 0644
const segmentDirMode = 0755

// segmentIndexWidth is the zero-padding width for segment indices in file
// names; this is part of the on-disk format, not merely cosmetic.
const segmentIndexWidth = 9

// Config holds the parameters needed to open a Substrate.
type Config struct {
	// Fs is the filesystem segment files are stored on. Defaults to
	// afero.NewOsFs() when nil.
	Fs afero.Fs

	// Dir is the storage directory. Created if missing.
	Dir string

	// SegmentSize is the number of records per segment; must be positive.
	SegmentSize uint64

	// Logger receives structured operational logs. Defaults to a no-op
	// logger when nil.
	Logger *zap.SugaredLogger
}

// Substrate locates, opens and iterates segment files for one storage
// directory. It owns a small cache of per-partition segment-index listings,
// invalidated whenever a write creates a new segment.
type Substrate struct {
	fs          afero.Fs
	dir         string
	segmentSize uint64
	log         *zap.SugaredLogger

	mu    sync.RWMutex
	cache map[string][]uint64 // partition -> sorted segment indices
}

// New validates the configuration, ensures the storage directory exists,
// and returns a ready-to-use Substrate.
func New(ctx context.Context, cfg Config) (*Substrate, error) {
	if cfg.SegmentSize == 0 {
		return nil, marasaerrors.NewSegmentSizeError(0)
	}
	fs := cfg.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	log.Infow("initializing segment substrate", "dir", cfg.Dir, "segmentSize", cfg.SegmentSize)
	if err := filesys.CreateDir(fs, cfg.Dir, segmentDirMode, true); err != nil {
		return nil, marasaerrors.ClassifyDirectoryCreationError(err, cfg.Dir)
	}

	return &Substrate{
		fs:          fs,
		dir:         cfg.Dir,
		segmentSize: cfg.SegmentSize,
		log:         log,
		cache:       make(map[string][]uint64),
	}, nil
}

// SegmentSize returns the configured records-per-segment size.
func (s *Substrate) SegmentSize() uint64 { return s.segmentSize }

// SegmentOf returns the segment index that contains sequence number seq:
// segment G holds the range [G*segmentSize, (G+1)*segmentSize - 1].
func (s *Substrate) SegmentOf(seq uint64) uint64 {
	return seq / s.segmentSize
}

// ValidatePartition rejects partition/tag labels the on-disk format can't
// represent: empty labels, and labels containing '.' (the segment-index
// separator) or whitespace (which would corrupt the multi-tag line format).
func ValidatePartition(name string) error {
	if name == "" {
		return marasaerrors.NewPartitionNameError(name, "required")
	}
	if strings.ContainsAny(name, ". \t\n") {
		return marasaerrors.NewPartitionNameError(name, "no_dot_or_whitespace")
	}
	return nil
}

// PathFor returns the fixed path for partition's segment seg.
func (s *Substrate) PathFor(partition string, seg uint64) string {
	return filesys.Join(s.dir, fmt.Sprintf("%s.%0*d", partition, segmentIndexWidth, seg))
}

// EnumeratePartitions returns every distinct partition/tag prefix present in
// the storage directory. Order is unspecified by the spec; this
// implementation returns them sorted for determinism in tests.
func (s *Substrate) EnumeratePartitions() ([]string, error) {
	names, err := filesys.ListDir(s.fs, s.dir)
	if err != nil {
		return nil, marasaerrors.NewSubstrateError(err, marasaerrors.ErrorCodeIO, "failed to list storage directory").WithPath(s.dir)
	}
	seen := make(map[string]struct{})
	for _, n := range names {
		idx := strings.LastIndex(n, ".")
		if idx <= 0 {
			continue
		}
		seen[n[:idx]] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

// SegmentsOf returns every segment index on disk for partition, sorted
// ascending. Results are memoized and re-enumerated after any AppendLine
// to that partition (see invalidate).
func (s *Substrate) SegmentsOf(partition string) ([]uint64, error) {
	s.mu.RLock()
	if cached, ok := s.cache[partition]; ok {
		out := make([]uint64, len(cached))
		copy(out, cached)
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	names, err := filesys.ListDir(s.fs, s.dir)
	if err != nil {
		return nil, marasaerrors.NewSubstrateError(err, marasaerrors.ErrorCodeIO, "failed to list storage directory").WithPath(s.dir)
	}
	prefix := partition + "."
	var segs []uint64
	for _, n := range names {
		if !strings.HasPrefix(n, prefix) {
			continue
		}
		suffix := n[len(prefix):]
		g, err := strconv.ParseUint(suffix, 10, 64)
		if err != nil {
			return nil, marasaerrors.NewSubstrateError(err, marasaerrors.ErrorCodeCorrupt, "segment file name has a non-numeric index").
				WithFileName(n).WithPartition(partition)
		}
		segs = append(segs, g)
	}
	sort.Slice(segs, func(i, j int) bool { return segs[i] < segs[j] })

	s.mu.Lock()
	s.cache[partition] = segs
	s.mu.Unlock()

	out := make([]uint64, len(segs))
	copy(out, segs)
	return out, nil
}

// invalidate drops the memoized segment listing for partition so the next
// SegmentsOf/FileForSeq call re-scans the directory.
func (s *Substrate) invalidate(partition string) {
	s.mu.Lock()
	delete(s.cache, partition)
	s.mu.Unlock()
}

// FileForSeq selects the segment index to open to read state/events as of
// seq, or the latest segment if seq is nil. It returns ok=false when no
// segment satisfies the request (the partition doesn't exist yet, or it's
// empty at or before seq) — this is the ⊥ case from the spec, represented
// as a return value rather than an error.
func (s *Substrate) FileForSeq(partition string, seq *uint64) (seg uint64, ok bool, err error) {
	segs, err := s.SegmentsOf(partition)
	if err != nil {
		return 0, false, err
	}
	if len(segs) == 0 {
		return 0, false, nil
	}
	if seq == nil {
		return segs[len(segs)-1], true, nil
	}

	target := s.SegmentOf(*seq)
	found := false
	var best uint64
	for _, g := range segs {
		if g == target {
			return g, true, nil
		}
		if g < target && (!found || g > best) {
			best, found = g, true
		}
	}
	if !found {
		return 0, false, nil
	}
	return best, true, nil
}

// Exists reports whether partition's segment seg has been created.
func (s *Substrate) Exists(partition string, seg uint64) (bool, error) {
	return filesys.Exists(s.fs, s.PathFor(partition, seg))
}

// AppendLine appends a single pre-encoded record line (including its
// trailing newline) to partition's segment seg, creating the file if
// necessary, and invalidates the cached segment listing for partition.
func (s *Substrate) AppendLine(partition string, seg uint64, line string) error {
	path := s.PathFor(partition, seg)
	f, err := s.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, segmentFileMode)
	if err != nil {
		return marasaerrors.ClassifyFileOpenError(err, path, filepath.Base(path)).(*marasaerrors.SubstrateError).
			WithPartition(partition).WithSegment(seg)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return marasaerrors.NewSubstrateError(err, marasaerrors.ErrorCodeIO, "failed to write segment record").
			WithPath(path).WithPartition(partition).WithSegment(seg)
	}

	s.invalidate(partition)
	s.log.Debugw("appended segment record", "partition", partition, "segment", seg, "path", path)
	return nil
}

// OpenForRead opens partition's segment seg for reading.
func (s *Substrate) OpenForRead(partition string, seg uint64) (afero.File, error) {
	path := s.PathFor(partition, seg)
	f, err := s.fs.OpenFile(path, os.O_RDONLY, segmentFileMode)
	if err != nil {
		return nil, marasaerrors.ClassifyFileOpenError(err, path, filepath.Base(path)).(*marasaerrors.SubstrateError).
			WithPartition(partition).WithSegment(seg)
	}
	return f, nil
}

// LineReader reads (seq, fields) records sequentially from an open segment
// file, stopping cleanly at a well-formed EOF and failing with Corrupt on a
// partial trailing line.
type LineReader struct {
	f         afero.File
	br        *bufio.Reader
	numFields int
	partition string
	seg       uint64
}

// NewLineReader wraps f (as returned by OpenForRead) for iteration. numFields
// is 2 for StateKeeper/EventLog-mono lines, 3 for EventLog-multi lines.
func NewLineReader(f afero.File, partition string, seg uint64, numFields int) *LineReader {
	return &LineReader{f: f, br: bufio.NewReader(f), numFields: numFields, partition: partition, seg: seg}
}

// Next returns the next record, or ok=false with a nil error at a clean
// end-of-file.
func (r *LineReader) Next() (seq uint64, fields []string, ok bool, err error) {
	line, err := r.br.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			if line == "" {
				return 0, nil, false, nil
			}
			return 0, nil, false, marasaerrors.NewSubstrateError(
				err, marasaerrors.ErrorCodeCorrupt, "segment file ends with a partial trailing line",
			).WithPartition(r.partition).WithSegment(r.seg)
		}
		return 0, nil, false, marasaerrors.NewSubstrateError(
			err, marasaerrors.ErrorCodeIO, "failed to read segment record",
		).WithPartition(r.partition).WithSegment(r.seg)
	}
	line = strings.TrimSuffix(line, "\n")
	seq, fields, derr := codec.DecodeLine(line, r.numFields)
	if derr != nil {
		return 0, nil, false, marasaerrors.NewSubstrateError(
			derr, marasaerrors.ErrorCodeCorrupt, "malformed segment record",
		).WithPartition(r.partition).WithSegment(r.seg)
	}
	return seq, fields, true, nil
}

// Close releases the underlying file handle.
func (r *LineReader) Close() error {
	return r.f.Close()
}
