// Package lockedwriter implements the Write-Lock Decorator: the bare
// StateKeeper and EventLog engines are not safe for concurrent writers, so
// this wraps their write paths to acquire a caller-supplied sync.Locker for
// the duration of each call. Any sync.Locker works — a *sync.Mutex for
// concurrent goroutines, or a no-op locker for single-threaded callers that
// just want a uniform interface.
package lockedwriter

import "sync"

// StateWriter is the subset of *statekeeper.StateKeeper this decorator locks.
type StateWriter interface {
	Write(partition string, kv map[string]any) (uint64, error)
	MultiWrite(updates map[string]map[string]any) (uint64, error)
}

// LockedStateWriter serializes writes to an underlying StateWriter.
type LockedStateWriter struct {
	inner StateWriter
	lock  sync.Locker
}

// NewStateWriter wraps inner so every Write/MultiWrite call holds lock.
func NewStateWriter(inner StateWriter, lock sync.Locker) *LockedStateWriter {
	return &LockedStateWriter{inner: inner, lock: lock}
}

// Write acquires the lock, delegates, and releases it.
func (w *LockedStateWriter) Write(partition string, kv map[string]any) (uint64, error) {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.inner.Write(partition, kv)
}

// MultiWrite acquires the lock, delegates, and releases it.
func (w *LockedStateWriter) MultiWrite(updates map[string]map[string]any) (uint64, error) {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.inner.MultiWrite(updates)
}

// EventWriter is the subset of *eventlog.EventLog this decorator locks.
type EventWriter interface {
	Put(payload string, tag string) (uint64, error)
}

// LockedEventWriter serializes Put calls to an underlying EventWriter.
type LockedEventWriter struct {
	inner EventWriter
	lock  sync.Locker
}

// NewEventWriter wraps inner so every Put call holds lock.
func NewEventWriter(inner EventWriter, lock sync.Locker) *LockedEventWriter {
	return &LockedEventWriter{inner: inner, lock: lock}
}

// Put acquires the lock, delegates, and releases it.
func (w *LockedEventWriter) Put(payload string, tag string) (uint64, error) {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.inner.Put(payload, tag)
}
