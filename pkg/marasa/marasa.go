// Package marasa is the public facade over the StateKeeper and EventLog
// engines: it plays the role ignite's pkg/ignite.Instance plays, wiring
// together logging, functional options and the chosen engine's Config. The
// domain here has three engine shapes rather than ignite's one, so the
// facade offers three constructors instead of a single NewInstance.
package marasa

import (
	"context"

	"github.com/spf13/afero"

	"github.com/marasadb/marasa/internal/eventlog"
	"github.com/marasadb/marasa/internal/statekeeper"
	"github.com/marasadb/marasa/internal/substrate"
	marasaerrors "github.com/marasadb/marasa/pkg/errors"
	"github.com/marasadb/marasa/pkg/logging"
	"github.com/marasadb/marasa/pkg/options"
	"github.com/marasadb/marasa/pkg/sentinel"
)

// NotFound is the sentinel value Get returns for an absent key or tag.
// Re-exported so callers never need to import pkg/sentinel directly.
var NotFound = sentinel.NotFound

// StateKeeper is the public partitioned key/value store.
type StateKeeper struct {
	*statekeeper.StateKeeper
}

// NewStateKeeper opens a StateKeeper instance under the given service name,
// applying opts over the package defaults.
func NewStateKeeper(ctx context.Context, service string, opts ...options.OptionFunc) (*StateKeeper, error) {
	o := options.Apply(opts...)
	log := logging.New(logging.Config{Service: service})

	sk, err := statekeeper.New(ctx, substrate.Config{
		Fs:          afero.NewOsFs(),
		Dir:         o.DataDir,
		SegmentSize: o.SegmentSize,
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}
	return &StateKeeper{sk}, nil
}

// EventLog is the public tag-partitioned append log, in multi-tag mode.
type EventLog struct {
	*eventlog.EventLog
}

// NewEventLog opens an EventLog-multi instance, where every Put supplies
// its own tag.
func NewEventLog(ctx context.Context, service string, opts ...options.OptionFunc) (*EventLog, error) {
	o := options.Apply(opts...)
	log := logging.New(logging.Config{Service: service})

	el, err := eventlog.New(ctx, eventlog.Config{
		Config: substrate.Config{
			Fs:          afero.NewOsFs(),
			Dir:         o.DataDir,
			SegmentSize: o.SegmentSize,
			Logger:      log,
		},
	})
	if err != nil {
		return nil, err
	}
	return &EventLog{el}, nil
}

// NewMonoLog opens an EventLog-mono instance, restricted to the single tag
// named by WithBaseName, or options.DefaultBaseName when none is given.
// Returns a BadArgument error if the resolved base name is empty.
func NewMonoLog(ctx context.Context, service string, opts ...options.OptionFunc) (*EventLog, error) {
	o := options.Apply(opts...)
	if o.BaseName == "" {
		return nil, marasaerrors.NewRequiredFieldError("baseName")
	}
	log := logging.New(logging.Config{Service: service})

	el, err := eventlog.New(ctx, eventlog.Config{
		Config: substrate.Config{
			Fs:          afero.NewOsFs(),
			Dir:         o.DataDir,
			SegmentSize: o.SegmentSize,
			Logger:      log,
		},
		BaseName: o.BaseName,
	})
	if err != nil {
		return nil, err
	}
	return &EventLog{el}, nil
}
