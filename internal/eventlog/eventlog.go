// Package eventlog implements the EventLog engine in both its variants:
// mono (every record under one implicit tag) and multi (records partitioned
// across many caller-supplied tags). Both share the same substrate and
// merge-replay machinery as StateKeeper; they differ only in how a tag maps
// to a segment file prefix and in the record line's field count.
//
// This plays the role ignite's internal/engine plays for its append log,
// generalized from ignite's single binary stream to the tag-multiplexed
// text stream the spec calls for.
package eventlog

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/marasadb/marasa/internal/codec"
	"github.com/marasadb/marasa/internal/replay"
	"github.com/marasadb/marasa/internal/substrate"
	marasaerrors "github.com/marasadb/marasa/pkg/errors"
	"github.com/marasadb/marasa/pkg/sentinel"
)

const (
	monoFields  = 2 // "<seq> <payload>"
	multiFields = 3 // "<seq> <tag> <payload>"
)

type tailEntry struct {
	seq     uint64
	payload string
}

// Config configures an EventLog. Leaving BaseName empty opens the engine in
// multi mode; setting it opens mono mode, restricted to that one tag.
type Config struct {
	substrate.Config
	BaseName string
}

// EventLog is the append-only tagged record log.
type EventLog struct {
	sub      *substrate.Substrate
	log      *zap.SugaredLogger
	mono     bool
	baseName string

	mu   sync.RWMutex
	seq  uint64
	tail map[string]tailEntry
}

// New opens (or creates) an EventLog and rebuilds its tail cache from disk.
func New(ctx context.Context, cfg Config) (*EventLog, error) {
	mono := cfg.BaseName != ""
	if mono {
		if err := substrate.ValidatePartition(cfg.BaseName); err != nil {
			return nil, err
		}
	}

	sub, err := substrate.New(ctx, cfg.Config)
	if err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	el := &EventLog{sub: sub, log: log, mono: mono, baseName: cfg.BaseName, tail: make(map[string]tailEntry)}
	if err := el.reloadLocked(); err != nil {
		return nil, err
	}
	return el, nil
}

func (el *EventLog) numFields() int {
	if el.mono {
		return monoFields
	}
	return multiFields
}

// Put appends payload under tag (ignored in mono mode, where every record
// lives under the configured base name) and returns the assigned sequence.
func (el *EventLog) Put(payload string, tag string) (uint64, error) {
	if strings.ContainsRune(payload, '\n') {
		return 0, marasaerrors.NewFieldFormatError("payload", payload, "no embedded newline")
	}

	effectiveTag := tag
	if el.mono {
		effectiveTag = el.baseName
	} else {
		if err := substrate.ValidatePartition(tag); err != nil {
			return 0, err
		}
	}

	el.mu.Lock()
	defer el.mu.Unlock()

	newSeq := el.seq + 1
	g := el.sub.SegmentOf(newSeq)

	var line string
	if el.mono {
		line = codec.EncodeLine(newSeq, payload)
	} else {
		line = codec.EncodeLine(newSeq, effectiveTag, payload)
	}
	if err := el.sub.AppendLine(effectiveTag, g, line); err != nil {
		return 0, err
	}

	el.tail[effectiveTag] = tailEntry{seq: newSeq, payload: payload}
	el.seq = newSeq
	return newSeq, nil
}

// Get returns the payload of the requested record, or sentinel.NotFound.
// tags, if non-empty, restricts consideration to that set (ignored in mono
// mode). seq, if non-nil, requests an exact sequence instead of the latest.
func (el *EventLog) Get(tags []string, seq *uint64) (any, error) {
	if seq != nil && *seq < 1 {
		return nil, marasaerrors.NewSeqTooLowError(*seq)
	}

	el.mu.Lock()
	defer el.mu.Unlock()

	allowed, err := el.allowedTagsLocked(tags)
	if err != nil {
		return nil, err
	}

	if seq == nil {
		if len(el.tail) == 0 && el.seq != 0 {
			if err := el.reloadLocked(); err != nil {
				return nil, err
			}
		}
		var best string
		var bestSeq uint64
		found := false
		for _, tag := range allowed {
			e, ok := el.tail[tag]
			if ok && (!found || e.seq > bestSeq) {
				best, bestSeq, found = tag, e.seq, true
			}
		}
		if !found {
			return sentinel.NotFound, nil
		}
		return el.tail[best].payload, nil
	}

	for _, tag := range allowed {
		g, ok, err := el.sub.FileForSeq(tag, seq)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		payload, found, err := el.foldForSeq(tag, g, *seq)
		if err != nil {
			return nil, err
		}
		if found {
			return payload, nil
		}
	}
	return sentinel.NotFound, nil
}

func (el *EventLog) allowedTagsLocked(tags []string) ([]string, error) {
	if el.mono {
		return []string{el.baseName}, nil
	}
	if len(tags) > 0 {
		for _, t := range tags {
			if err := substrate.ValidatePartition(t); err != nil {
				return nil, err
			}
		}
		return tags, nil
	}
	return el.sub.EnumeratePartitions()
}

// foldForSeq scans segment g of tag for the record whose sequence equals
// exactly seq.
func (el *EventLog) foldForSeq(tag string, g uint64, seq uint64) (string, bool, error) {
	f, err := el.sub.OpenForRead(tag, g)
	if err != nil {
		return "", false, err
	}
	defer f.Close()

	r := substrate.NewLineReader(f, tag, g, el.numFields())
	for {
		recSeq, fields, ok, err := r.Next()
		if err != nil {
			return "", false, err
		}
		if !ok {
			return "", false, nil
		}
		if recSeq == seq {
			return el.payloadField(fields), true, nil
		}
		if recSeq > seq {
			return "", false, nil
		}
	}
}

func (el *EventLog) payloadField(fields []string) string {
	if el.mono {
		return fields[0]
	}
	return fields[1]
}

// reloadLocked rebuilds the tail cache from disk. Must be called with el.mu held.
func (el *EventLog) reloadLocked() error {
	tags := []string{el.baseName}
	if !el.mono {
		var err error
		tags, err = el.sub.EnumeratePartitions()
		if err != nil {
			return err
		}
	}

	newTail := make(map[string]tailEntry, len(tags))
	var maxSeq uint64
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		g, ok, err := el.sub.FileForSeq(tag, nil)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		f, err := el.sub.OpenForRead(tag, g)
		if err != nil {
			return err
		}
		r := substrate.NewLineReader(f, tag, g, el.numFields())
		var lastSeq uint64
		var lastPayload string
		for {
			seq, fields, ok, err := r.Next()
			if err != nil {
				f.Close()
				return err
			}
			if !ok {
				break
			}
			lastSeq, lastPayload = seq, el.payloadField(fields)
		}
		f.Close()
		newTail[tag] = tailEntry{seq: lastSeq, payload: lastPayload}
		if lastSeq > maxSeq {
			maxSeq = lastSeq
		}
	}

	if el.seq != 0 && maxSeq != el.seq {
		return marasaerrors.NewSubstrateError(nil, marasaerrors.ErrorCodeInconsistent,
			"reload's maximum on-disk sequence disagrees with the in-memory counter").
			WithDetail("inMemorySeq", el.seq).WithDetail("reloadedSeq", maxSeq)
	}

	el.tail = newTail
	el.seq = maxSeq
	return nil
}

// Cursor yields (seq, tag, payload) triples in strictly increasing sequence
// order, starting at the cursor's configured start sequence.
type Cursor struct {
	mono     bool
	baseName string
	inner    *replay.Cursor
}

// Replay opens a Cursor starting at startSeq (inclusive), restricted to
// tags if non-empty (ignored in mono mode).
func (el *EventLog) Replay(ctx context.Context, startSeq uint64, tags []string) (*Cursor, error) {
	if startSeq < 1 {
		return nil, marasaerrors.NewSeqTooLowError(startSeq)
	}

	el.mu.RLock()
	allowed, err := el.allowedTagsLocked(tags)
	el.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	sort.Strings(allowed)

	inner, err := replay.NewCursor(ctx, replay.Config{
		Substrate: el.sub, Partitions: allowed, From: &startSeq, NumFields: el.numFields(), Logger: el.log,
	})
	if err != nil {
		return nil, err
	}
	return &Cursor{mono: el.mono, baseName: el.baseName, inner: inner}, nil
}

// ReplayMatching is the multi-only convenience from the design notes: tags
// are resolved by a regular expression against every known tag instead of
// an explicit list.
func (el *EventLog) ReplayMatching(ctx context.Context, startSeq uint64, pattern string) (*Cursor, error) {
	if el.mono {
		return nil, marasaerrors.NewValidationError(nil, marasaerrors.ErrorCodeBadArgument,
			"regex tag filtering is only meaningful for EventLog-multi").WithField("pattern")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, marasaerrors.NewFieldFormatError("pattern", pattern, "valid regular expression")
	}

	all, err := el.sub.EnumeratePartitions()
	if err != nil {
		return nil, err
	}
	var matched []string
	for _, tag := range all {
		if re.MatchString(tag) {
			matched = append(matched, tag)
		}
	}
	if len(matched) == 0 {
		// Replay reads an empty tag list as "every tag"; a pattern that
		// matches no tag gets a cursor over no tags instead.
		if startSeq < 1 {
			return nil, marasaerrors.NewSeqTooLowError(startSeq)
		}
		inner, err := replay.NewCursor(ctx, replay.Config{Substrate: el.sub, From: &startSeq, NumFields: el.numFields(), Logger: el.log})
		if err != nil {
			return nil, err
		}
		return &Cursor{mono: el.mono, baseName: el.baseName, inner: inner}, nil
	}
	return el.Replay(ctx, startSeq, matched)
}

// Next returns the next (seq, tag, payload) record.
func (c *Cursor) Next() (seq uint64, tag string, payload string, ok bool, err error) {
	frame, ok, err := c.inner.Next()
	if err != nil || !ok {
		return 0, "", "", false, err
	}
	rec := frame.Records[0]
	if c.mono {
		return frame.Seq, c.baseName, rec.Fields[0], true, nil
	}
	return frame.Seq, rec.Fields[0], rec.Fields[1], true, nil
}

// Close releases the cursor's open segment readers.
func (c *Cursor) Close() error { return c.inner.Close() }
