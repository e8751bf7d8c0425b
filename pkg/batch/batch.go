// Package batch provides a fluent builder over StateKeeper.MultiWrite,
// grounded on original_source/marasa's MultiWrite class: accumulate
// per-partition key/value updates across calls, then commit them all under
// one sequence number.
package batch

import "github.com/marasadb/marasa/internal/codec"

// multiWriter is the subset of *statekeeper.StateKeeper a Writer needs.
// Defined as an interface here (rather than importing statekeeper
// directly) so pkg/batch stays a leaf package usable without pulling in
// the full engine.
type multiWriter interface {
	MultiWrite(updates map[string]map[string]any) (uint64, error)
}

// Writer accumulates updates across partitions for one eventual MultiWrite.
type Writer struct {
	target  multiWriter
	updates map[string]map[string]any
}

// New starts an empty batch against target.
func New(target multiWriter) *Writer {
	return &Writer{target: target, updates: make(map[string]map[string]any)}
}

// Set stages a single key/value update in partition.
func (w *Writer) Set(partition, key string, value any) *Writer {
	if w.updates[partition] == nil {
		w.updates[partition] = make(map[string]any)
	}
	w.updates[partition][key] = value
	return w
}

// SetMap merges kv into partition's staged update.
func (w *Writer) SetMap(partition string, kv map[string]any) *Writer {
	if w.updates[partition] == nil {
		w.updates[partition] = make(map[string]any)
	}
	w.updates[partition] = codec.MergeRightBiased(w.updates[partition], kv)
	return w
}

// Len reports how many partitions currently have staged updates.
func (w *Writer) Len() int { return len(w.updates) }

// Commit applies every staged update under one sequence number and clears
// the batch so the Writer can be reused.
func (w *Writer) Commit() (uint64, error) {
	seq, err := w.target.MultiWrite(w.updates)
	if err != nil {
		return 0, err
	}
	w.updates = make(map[string]map[string]any)
	return seq, nil
}
