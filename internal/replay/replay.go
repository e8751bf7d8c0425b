// Package replay implements the merged, live-tailing replay cursor used to
// reconstruct ordered history across several per-partition segment streams.
// It mirrors the role ignite's internal/index plays in pointing a reader at
// the right segment, generalized from a single binary index lookup to a
// multi-stream k-way merge over the substrate's line-oriented segments.
//
// A Cursor never snapshots which segments exist for a stream at
// construction time: once a stream's segment is read to its end, every call
// to Next re-lists the partition's segments, so a segment a writer creates
// later becomes visible to an in-progress replay without restarting it.
// Records appended to a segment after the cursor has read that segment to
// its end are not seen.
package replay

import (
	"context"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/marasadb/marasa/internal/substrate"
	marasaerrors "github.com/marasadb/marasa/pkg/errors"
)

// Record is one decoded line from one partition's stream.
type Record struct {
	Partition string
	Seq       uint64
	Fields    []string
}

// Frame is one step of merged replay: every Record sharing the minimum seq
// seen across all streams at that step. Len(Records) > 1 only when
// CoalesceSameSeq is enabled and more than one partition produced a record
// at that exact sequence number (StateKeeper.MultiWrite's batched writes).
type Frame struct {
	Seq     uint64
	Records []Record
}

// Config configures a Cursor.
type Config struct {
	// Substrate is the segment substrate the partitions live in.
	Substrate *substrate.Substrate

	// Partitions lists the partitions to merge, in the order ties are
	// broken when CoalesceSameSeq is false. Callers that want deterministic
	// output should pass a sorted slice.
	Partitions []string

	// From, if non-nil, is the lowest sequence number to emit; replay
	// starts at the beginning of the partition's history otherwise.
	From *uint64

	// NumFields is the field count for DecodeLine (2 for StateKeeper lines).
	NumFields int

	// CoalesceSameSeq groups records from different partitions that share
	// the same sequence number into a single Frame instead of emitting them
	// as separate Frames. Only StateKeeper needs this, since MultiWrite is
	// the only writer that can produce the same seq across partitions.
	CoalesceSameSeq bool

	// Logger receives structured operational logs. Defaults to a no-op logger.
	Logger *zap.SugaredLogger
}

type stream struct {
	partition string
	seg       uint64
	hasSeg    bool
	skipDone  bool
	reader    *substrate.LineReader
	head      *Record
}

// Cursor performs k-way merge replay across a fixed set of partitions.
type Cursor struct {
	sub      *substrate.Substrate
	from     *uint64
	numField int
	coalesce bool
	log      *zap.SugaredLogger
	streams  []*stream
}

// NewCursor primes a reader for every partition concurrently and returns a
// ready-to-use Cursor. Partitions with no segments yet are kept as
// not-yet-readable streams rather than failing the whole cursor — they
// become live once a writer creates their first segment.
func NewCursor(ctx context.Context, cfg Config) (*Cursor, error) {
	if cfg.Substrate == nil {
		return nil, marasaerrors.NewReplayError(nil, marasaerrors.ErrorCodeBadArgument, "replay cursor requires a substrate")
	}
	if cfg.NumFields <= 0 {
		return nil, marasaerrors.NewReplayError(nil, marasaerrors.ErrorCodeBadArgument, "replay cursor requires a positive field count")
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	c := &Cursor{sub: cfg.Substrate, from: cfg.From, numField: cfg.NumFields, coalesce: cfg.CoalesceSameSeq, log: log}

	streams := make([]*stream, len(cfg.Partitions))
	g, _ := errgroup.WithContext(ctx)
	for i, p := range cfg.Partitions {
		i, p := i, p
		g.Go(func() error {
			st, err := c.prime(p)
			if err != nil {
				return err
			}
			streams[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	c.streams = streams
	return c, nil
}

func (c *Cursor) prime(partition string) (*stream, error) {
	st := &stream{partition: partition, skipDone: c.from == nil}

	// FileForSeq treats a nil seq as "latest segment", which is the wrong
	// end of history for a replay starting from the beginning — fetch the
	// earliest segment directly in that case instead.
	var seg uint64
	var ok bool
	if c.from == nil {
		segs, err := c.sub.SegmentsOf(partition)
		if err != nil {
			return nil, marasaerrors.NewReplayError(err, marasaerrors.ErrorCodeIO, "failed to enumerate segments").WithLabel(partition)
		}
		if len(segs) == 0 {
			return st, nil
		}
		seg, ok = segs[0], true
	} else {
		var err error
		seg, ok, err = c.sub.FileForSeq(partition, c.from)
		if err != nil {
			return nil, marasaerrors.NewReplayError(err, marasaerrors.ErrorCodeIO, "failed to locate starting segment").WithLabel(partition)
		}
	}
	if !ok {
		return st, nil
	}
	if err := c.openSegment(st, seg); err != nil {
		return nil, err
	}
	if err := c.fillHead(st); err != nil {
		return nil, err
	}
	return st, nil
}

func (c *Cursor) openSegment(st *stream, seg uint64) error {
	f, err := c.sub.OpenForRead(st.partition, seg)
	if err != nil {
		return marasaerrors.NewReplayError(err, marasaerrors.ErrorCodeIO, "failed to open segment for replay").
			WithLabel(st.partition)
	}
	st.reader = substrate.NewLineReader(f, st.partition, seg, c.numField)
	st.seg = seg
	st.hasSeg = true
	return nil
}

// tryAdvanceSegment opens the smallest segment strictly newer than the
// stream's current one, if the substrate now has one. Re-enumerating here
// (rather than caching at prime time) is what makes replay live-tailing.
func (c *Cursor) tryAdvanceSegment(st *stream) (bool, error) {
	segs, err := c.sub.SegmentsOf(st.partition)
	if err != nil {
		return false, marasaerrors.NewReplayError(err, marasaerrors.ErrorCodeIO, "failed to re-enumerate segments").WithLabel(st.partition)
	}
	found := false
	var next uint64
	for _, g := range segs {
		if st.hasSeg && g <= st.seg {
			continue
		}
		if !found || g < next {
			next, found = g, true
		}
	}
	if !found {
		return false, nil
	}
	if err := c.openSegment(st, next); err != nil {
		return false, err
	}
	return true, nil
}

// fillHead ensures st.head holds the next record to emit, or leaves it nil
// when nothing is available right now. It is safe to call repeatedly on an
// already-exhausted stream: that's how newly-appended segments get noticed.
func (c *Cursor) fillHead(st *stream) error {
	if st.head != nil {
		return nil
	}
	for {
		if st.reader == nil {
			advanced, err := c.tryAdvanceSegment(st)
			if err != nil {
				return err
			}
			if !advanced {
				return nil
			}
		}

		seq, fields, ok, err := st.reader.Next()
		if err != nil {
			return err
		}
		if !ok {
			_ = st.reader.Close()
			st.reader = nil
			continue
		}
		if !st.skipDone {
			if seq < *c.from {
				continue
			}
			st.skipDone = true
		}
		st.head = &Record{Partition: st.partition, Seq: seq, Fields: fields}
		return nil
	}
}

// Next returns the next merged frame. ok is false when no stream currently
// has a record available — not necessarily forever, since live-tailed
// partitions may gain new segments later and a subsequent call can succeed.
func (c *Cursor) Next() (Frame, bool, error) {
	for _, st := range c.streams {
		if err := c.fillHead(st); err != nil {
			return Frame{}, false, err
		}
	}

	foundAny := false
	var minSeq uint64
	for _, st := range c.streams {
		if st.head == nil {
			continue
		}
		if !foundAny || st.head.Seq < minSeq {
			minSeq, foundAny = st.head.Seq, true
		}
	}
	if !foundAny {
		return Frame{}, false, nil
	}

	var recs []Record
	for _, st := range c.streams {
		if st.head == nil || st.head.Seq != minSeq {
			continue
		}
		recs = append(recs, *st.head)
		st.head = nil
		if !c.coalesce {
			break
		}
	}
	return Frame{Seq: minSeq, Records: recs}, true, nil
}

// Close releases every open segment reader, aggregating any close failures.
func (c *Cursor) Close() error {
	var err error
	for _, st := range c.streams {
		if st.reader != nil {
			err = multierr.Append(err, st.reader.Close())
			st.reader = nil
		}
	}
	return err
}

// SortPartitions is a convenience for callers that want deterministic tie
// breaking between partitions that never coalesce.
func SortPartitions(partitions []string) []string {
	out := make([]string, len(partitions))
	copy(out, partitions)
	sort.Strings(out)
	return out
}
