// Package serializing implements the Serializing Decorator: it wraps an
// EventLog with caller-supplied serialize/deserialize functions so callers
// can Put and Get typed records instead of raw payload strings. The
// serialized form must never contain a newline, since newline is the
// record separator on disk; put defaults its tag to the record type's name
// when the caller doesn't supply one.
package serializing

import (
	"context"
	"reflect"
	"strings"

	"github.com/marasadb/marasa/internal/eventlog"
	marasaerrors "github.com/marasadb/marasa/pkg/errors"
	"github.com/marasadb/marasa/pkg/sentinel"
)

// Serializing wraps an *eventlog.EventLog to store records of type T.
type Serializing[T any] struct {
	log         *eventlog.EventLog
	serialize   func(T) (string, error)
	deserialize func(string) (T, error)
	defaultTag  string
}

// New builds a Serializing decorator over log. The default tag used when
// Put is called with an empty tag is T's type name.
func New[T any](log *eventlog.EventLog, serialize func(T) (string, error), deserialize func(string) (T, error)) *Serializing[T] {
	return &Serializing[T]{
		log:         log,
		serialize:   serialize,
		deserialize: deserialize,
		defaultTag:  typeName[T](),
	}
}

// typeName derives T's static type name via a nil *T rather than a zero
// value of T, since a zero value of an interface type is itself a nil
// interface, for which reflect.TypeOf returns nil. Falls back to the
// type's full string form when it has no bare Name (interfaces, pointers,
// slices and the like).
func typeName[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

// Put serializes rec and appends it under tag (or T's type name, if tag is empty).
func (s *Serializing[T]) Put(rec T, tag string) (uint64, error) {
	if tag == "" {
		tag = s.defaultTag
	}
	payload, err := s.serialize(rec)
	if err != nil {
		return 0, err
	}
	if strings.ContainsRune(payload, '\n') {
		return 0, marasaerrors.NewFieldFormatError("payload", payload, "no embedded newline")
	}
	return s.log.Put(payload, tag)
}

// Get returns the deserialized record, or ok=false when no record matched.
func (s *Serializing[T]) Get(tags []string, seq *uint64) (rec T, ok bool, err error) {
	var zero T
	v, err := s.log.Get(tags, seq)
	if err != nil {
		return zero, false, err
	}
	if sentinel.Is(v) {
		return zero, false, nil
	}
	payload, _ := v.(string)
	rec, err = s.deserialize(payload)
	if err != nil {
		return zero, false, err
	}
	return rec, true, nil
}

// Cursor yields deserialized records from a Serializing replay.
type Cursor[T any] struct {
	inner       *eventlog.Cursor
	deserialize func(string) (T, error)
}

// Replay opens a Cursor starting at startSeq, restricted to tags if non-empty.
func (s *Serializing[T]) Replay(ctx context.Context, startSeq uint64, tags []string) (*Cursor[T], error) {
	inner, err := s.log.Replay(ctx, startSeq, tags)
	if err != nil {
		return nil, err
	}
	return &Cursor[T]{inner: inner, deserialize: s.deserialize}, nil
}

// Next returns the next deserialized record.
func (c *Cursor[T]) Next() (seq uint64, tag string, rec T, ok bool, err error) {
	var zero T
	seq, tag, payload, ok, err := c.inner.Next()
	if err != nil || !ok {
		return 0, "", zero, false, err
	}
	rec, err = c.deserialize(payload)
	if err != nil {
		return 0, "", zero, false, err
	}
	return seq, tag, rec, true, nil
}

// Close releases the cursor's open segment readers.
func (c *Cursor[T]) Close() error { return c.inner.Close() }
