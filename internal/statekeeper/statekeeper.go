// Package statekeeper implements the partitioned key/value engine described
// as StateKeeper: every write unions into a per-partition current-state
// cache and is durably recorded with the snapshot/delta discipline, and
// historical reads reconstruct state as of any past sequence number by
// folding the right segment file.
//
// This plays the role ignite's internal/engine plays (the top-level engine
// wiring substrate + index + cache), generalized from ignite's single
// binary keyspace to many independently-versioned JSON partitions.
package statekeeper

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/marasadb/marasa/internal/codec"
	"github.com/marasadb/marasa/internal/replay"
	"github.com/marasadb/marasa/internal/substrate"
	marasaerrors "github.com/marasadb/marasa/pkg/errors"
	"github.com/marasadb/marasa/pkg/sentinel"
)

// numFields is the StateKeeper record line's field count: "<seq> <json>".
const numFields = 2

type partitionState struct {
	seq  uint64
	data map[string]any
}

// StateKeeper is the partitioned key/value engine.
type StateKeeper struct {
	sub *substrate.Substrate
	log *zap.SugaredLogger

	mu    sync.RWMutex
	seq   uint64
	cache map[string]*partitionState
}

// New opens (or creates) a StateKeeper backed by the given substrate
// configuration and reloads its current-state cache from disk.
func New(ctx context.Context, cfg substrate.Config) (*StateKeeper, error) {
	sub, err := substrate.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	sk := &StateKeeper{sub: sub, log: log, cache: make(map[string]*partitionState)}
	if err := sk.reloadLocked(); err != nil {
		return nil, err
	}
	return sk, nil
}

// Write applies kv to partition under a freshly assigned sequence number.
func (sk *StateKeeper) Write(partition string, kv map[string]any) (uint64, error) {
	if err := substrate.ValidatePartition(partition); err != nil {
		return 0, err
	}
	sk.mu.Lock()
	defer sk.mu.Unlock()

	newSeq := sk.seq + 1
	if err := sk.writeOneLocked(partition, kv, newSeq); err != nil {
		return 0, err
	}
	sk.seq = newSeq
	return newSeq, nil
}

// MultiWrite applies every partition's update under exactly one, newly
// assigned sequence number, so a later replay sees every touched partition
// at the same seq. Partitions are written in sorted order for determinism;
// the assigned sequence number is returned once every partition's line is
// written, per §8's invariant that every partition touched by a
// multi_write gets a record at the same S. If a partition's write fails,
// MultiWrite returns 0 and that error.
func (sk *StateKeeper) MultiWrite(updates map[string]map[string]any) (uint64, error) {
	partitions := make([]string, 0, len(updates))
	for p := range updates {
		if err := substrate.ValidatePartition(p); err != nil {
			return 0, err
		}
		partitions = append(partitions, p)
	}
	sort.Strings(partitions)

	sk.mu.Lock()
	defer sk.mu.Unlock()

	newSeq := sk.seq + 1
	for _, p := range partitions {
		if err := sk.writeOneLocked(p, updates[p], newSeq); err != nil {
			return 0, err
		}
	}
	sk.seq = newSeq
	return newSeq, nil
}

// writeOneLocked performs the snapshot/delta write discipline for one
// partition under an already-held sk.mu. The first line of a segment is
// always the union of the partition's prior state with kv (the snapshot);
// every later line is kv alone (the delta).
func (sk *StateKeeper) writeOneLocked(partition string, kv map[string]any, seq uint64) error {
	g := sk.sub.SegmentOf(seq)

	exists, err := sk.sub.Exists(partition, g)
	if err != nil {
		return err
	}

	prior := sk.cache[partition]
	priorMap := map[string]any(nil)
	if prior != nil {
		priorMap = prior.data
	}

	var lineData map[string]any
	if exists {
		lineData = codec.CopyMap(kv)
	} else {
		lineData = codec.MergeRightBiased(priorMap, kv)
	}

	payload, err := codec.EncodeJSON(lineData)
	if err != nil {
		return marasaerrors.NewSubstrateError(err, marasaerrors.ErrorCodeCorrupt, "failed to encode partition state").
			WithPartition(partition)
	}
	line := codec.EncodeLine(seq, payload)
	if err := sk.sub.AppendLine(partition, g, line); err != nil {
		return err
	}

	sk.cache[partition] = &partitionState{seq: seq, data: codec.MergeRightBiased(priorMap, kv)}
	return nil
}

// Get reads partition's state. With no options, returns the whole current
// map. WithKey restricts to one key's value (or sentinel.NotFound).
// WithSeq reads as of a past sequence number instead of current.
func (sk *StateKeeper) Get(partition string, opts ...GetOption) (any, error) {
	var cfg getConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.seq != nil && *cfg.seq < 1 {
		return nil, marasaerrors.NewSeqTooLowError(*cfg.seq)
	}

	sk.mu.RLock()
	needsReload := len(sk.cache) == 0 && sk.seq != 0
	sk.mu.RUnlock()

	if needsReload {
		sk.mu.Lock()
		if len(sk.cache) == 0 && sk.seq != 0 {
			if err := sk.reloadLocked(); err != nil {
				sk.mu.Unlock()
				return nil, err
			}
		}
		sk.mu.Unlock()
	}

	sk.mu.RLock()
	defer sk.mu.RUnlock()

	if cfg.seq == nil || *cfg.seq >= sk.seq {
		return sk.currentGetLocked(partition, cfg.key), nil
	}
	return sk.historicalGetLocked(partition, *cfg.seq, cfg.key)
}

func (sk *StateKeeper) currentGetLocked(partition string, key *string) any {
	ps, ok := sk.cache[partition]
	if !ok {
		if key != nil {
			return sentinel.NotFound
		}
		return map[string]any{}
	}
	if key == nil {
		return codec.CopyMap(ps.data)
	}
	v, ok := ps.data[*key]
	if !ok {
		return sentinel.NotFound
	}
	return v
}

func (sk *StateKeeper) historicalGetLocked(partition string, seq uint64, key *string) (any, error) {
	seg, ok, err := sk.sub.FileForSeq(partition, &seq)
	if err != nil {
		return nil, err
	}
	if !ok {
		if key != nil {
			return sentinel.NotFound, nil
		}
		return map[string]any{}, nil
	}

	state, _, err := sk.foldSegment(partition, seg, &seq)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return state, nil
	}
	v, ok := state[*key]
	if !ok {
		return sentinel.NotFound, nil
	}
	return v, nil
}

// foldSegment folds partition's segment seg from its first line (the
// snapshot) up to and including upTo (or to the end, if upTo is nil),
// returning the reconstructed state and the last sequence folded.
func (sk *StateKeeper) foldSegment(partition string, seg uint64, upTo *uint64) (map[string]any, uint64, error) {
	f, err := sk.sub.OpenForRead(partition, seg)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	r := substrate.NewLineReader(f, partition, seg, numFields)
	state := map[string]any{}
	var lastSeq uint64
	first := true
	for {
		seq, fields, ok, err := r.Next()
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			break
		}
		if upTo != nil && seq > *upTo {
			break
		}
		m, derr := codec.DecodeJSON(fields[0])
		if derr != nil {
			return nil, 0, marasaerrors.NewSubstrateError(derr, marasaerrors.ErrorCodeCorrupt, "malformed partition state line").
				WithPartition(partition).WithSegment(seg)
		}
		if first {
			state = m
			first = false
		} else {
			state = codec.MergeRightBiased(state, m)
		}
		lastSeq = seq
	}
	return state, lastSeq, nil
}

// Partitions returns the partitions known in the current-state cache.
func (sk *StateKeeper) Partitions() ([]string, error) {
	sk.mu.Lock()
	defer sk.mu.Unlock()

	if len(sk.cache) == 0 && sk.seq != 0 {
		if err := sk.reloadLocked(); err != nil {
			return nil, err
		}
	}
	out := make([]string, 0, len(sk.cache))
	for p := range sk.cache {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

// reloadLocked rebuilds the current-state cache from disk. Must be called
// with sk.mu held.
func (sk *StateKeeper) reloadLocked() error {
	partitions, err := sk.sub.EnumeratePartitions()
	if err != nil {
		return err
	}

	newCache := make(map[string]*partitionState, len(partitions))
	var maxSeq uint64
	for _, p := range partitions {
		seg, ok, err := sk.sub.FileForSeq(p, nil)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		state, lastSeq, err := sk.foldSegment(p, seg, nil)
		if err != nil {
			return err
		}
		newCache[p] = &partitionState{seq: lastSeq, data: state}
		if lastSeq > maxSeq {
			maxSeq = lastSeq
		}
	}

	if sk.seq != 0 && maxSeq != sk.seq {
		return marasaerrors.NewSubstrateError(nil, marasaerrors.ErrorCodeInconsistent,
			"reload's maximum on-disk sequence disagrees with the in-memory counter").
			WithDetail("inMemorySeq", sk.seq).WithDetail("reloadedSeq", maxSeq)
	}

	sk.cache = newCache
	sk.seq = maxSeq
	return nil
}

// Cursor replays one partition's history from a starting sequence number,
// yielding the reconstructed initial state followed by each later line as
// written: a delta, except for the first line of a segment, which is that
// segment's full snapshot.
type Cursor struct {
	key      *string
	startSeq uint64
	initial  any
	started  bool
	inner    *replay.Cursor
}

// Replay opens a Cursor over partition's history, starting at startSeq
// (inclusive). If key is non-nil, only the value of that key is yielded,
// and only for lines that carry it. A segment's first line is a snapshot
// carrying every key, so it is yielded even when the write at that seq did
// not change key.
func (sk *StateKeeper) Replay(ctx context.Context, partition string, startSeq uint64, key *string) (*Cursor, error) {
	if startSeq < 1 {
		return nil, marasaerrors.NewSeqTooLowError(startSeq)
	}
	if err := substrate.ValidatePartition(partition); err != nil {
		return nil, err
	}

	opts := []GetOption{WithSeq(startSeq)}
	if key != nil {
		opts = append(opts, WithKey(*key))
	}
	initial, err := sk.Get(partition, opts...)
	if err != nil {
		return nil, err
	}

	inner, err := replay.NewCursor(ctx, replay.Config{
		Substrate: sk.sub, Partitions: []string{partition}, From: &startSeq, NumFields: numFields, Logger: sk.log,
	})
	if err != nil {
		return nil, err
	}
	return &Cursor{key: key, startSeq: startSeq, initial: initial, inner: inner}, nil
}

// Next returns the next (seq, value) pair, or ok=false when replay has
// drained everything currently on disk (it may produce more later if the
// engine keeps writing — see the replay package's live-tailing semantics).
func (c *Cursor) Next() (seq uint64, value any, ok bool, err error) {
	if !c.started {
		c.started = true
		return c.startSeq, c.initial, true, nil
	}
	for {
		frame, ok, err := c.inner.Next()
		if err != nil {
			return 0, nil, false, err
		}
		if !ok {
			return 0, nil, false, nil
		}
		if frame.Seq == c.startSeq {
			continue // already surfaced as the initial frame
		}
		rec := frame.Records[0]
		m, derr := codec.DecodeJSON(rec.Fields[0])
		if derr != nil {
			return 0, nil, false, marasaerrors.NewSubstrateError(derr, marasaerrors.ErrorCodeCorrupt, "malformed delta line").WithPartition(rec.Partition)
		}
		if c.key == nil {
			return frame.Seq, m, true, nil
		}
		v, touched := m[*c.key]
		if !touched {
			continue
		}
		return frame.Seq, v, true, nil
	}
}

// Close releases the cursor's open segment reader.
func (c *Cursor) Close() error { return c.inner.Close() }

// AllCursor replays many partitions merged by sequence, coalescing
// multi_write's simultaneous per-partition records into one frame.
type AllCursor struct {
	key      *string
	startSeq uint64
	initial  map[string]any
	started  bool
	inner    *replay.Cursor
}

// ReplayAll opens an AllCursor across partitions (or every known partition,
// if nil), starting at startSeq.
func (sk *StateKeeper) ReplayAll(ctx context.Context, startSeq uint64, partitions []string, key *string) (*AllCursor, error) {
	if startSeq < 1 {
		return nil, marasaerrors.NewSeqTooLowError(startSeq)
	}
	if partitions == nil {
		var err error
		partitions, err = sk.Partitions()
		if err != nil {
			return nil, err
		}
	} else {
		partitions = replay.SortPartitions(partitions)
	}

	initial := make(map[string]any, len(partitions))
	for _, p := range partitions {
		opts := []GetOption{WithSeq(startSeq)}
		if key != nil {
			opts = append(opts, WithKey(*key))
		}
		v, err := sk.Get(p, opts...)
		if err != nil {
			return nil, err
		}
		initial[p] = v
	}

	inner, err := replay.NewCursor(ctx, replay.Config{
		Substrate: sk.sub, Partitions: partitions, From: &startSeq, NumFields: numFields,
		CoalesceSameSeq: true, Logger: sk.log,
	})
	if err != nil {
		return nil, err
	}
	return &AllCursor{key: key, startSeq: startSeq, initial: initial, inner: inner}, nil
}

// Next returns the next (seq, frame) pair, where frame maps partition to
// either its delta map (key == nil) or the touched value (key != nil).
// Partitions untouched by key at a given seq are omitted from frame. A
// partition's segment-first line is its full snapshot, so at that seq the
// frame holds the snapshot map (or the key's value from it).
func (c *AllCursor) Next() (seq uint64, frame map[string]any, ok bool, err error) {
	if !c.started {
		c.started = true
		return c.startSeq, c.initial, true, nil
	}
	for {
		f, ok, err := c.inner.Next()
		if err != nil {
			return 0, nil, false, err
		}
		if !ok {
			return 0, nil, false, nil
		}
		if f.Seq == c.startSeq {
			continue
		}
		merged := make(map[string]any, len(f.Records))
		touched := false
		for _, rec := range f.Records {
			m, derr := codec.DecodeJSON(rec.Fields[0])
			if derr != nil {
				return 0, nil, false, marasaerrors.NewSubstrateError(derr, marasaerrors.ErrorCodeCorrupt, "malformed delta line").
					WithPartition(rec.Partition)
			}
			if c.key == nil {
				merged[rec.Partition] = m
				touched = true
				continue
			}
			if v, found := m[*c.key]; found {
				merged[rec.Partition] = v
				touched = true
			}
		}
		if !touched {
			continue
		}
		return f.Seq, merged, true, nil
	}
}

// Close releases the cursor's open segment readers.
func (c *AllCursor) Close() error { return c.inner.Close() }
