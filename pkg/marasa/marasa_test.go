package marasa

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marasadb/marasa/pkg/options"
)

func TestNewStateKeeperWritesAndReads(t *testing.T) {
	dir := t.TempDir()
	sk, err := NewStateKeeper(context.Background(), "test-statekeeper",
		options.WithDataDir(dir), options.WithSegmentSize(5))
	require.NoError(t, err)

	seq, err := sk.Write("users", map[string]any{"name": "ada"})
	require.NoError(t, err)
	require.Equal(t, uint64(1), seq)

	val, err := sk.Get("users")
	require.NoError(t, err)
	require.Equal(t, map[string]any{"name": "ada"}, val)
}

func TestNewEventLogPutAndGet(t *testing.T) {
	dir := t.TempDir()
	el, err := NewEventLog(context.Background(), "test-eventlog",
		options.WithDataDir(dir), options.WithSegmentSize(5))
	require.NoError(t, err)

	seq, err := el.Put("hello", "greetings")
	require.NoError(t, err)
	require.Equal(t, uint64(1), seq)

	val, err := el.Get([]string{"greetings"}, nil)
	require.NoError(t, err)
	require.Equal(t, "hello", val)
}

func TestNewMonoLogDefaultsBaseName(t *testing.T) {
	dir := t.TempDir()
	_, err := NewMonoLog(context.Background(), "test-monolog", options.WithDataDir(dir))
	require.NoError(t, err)
}

func TestNewMonoLogPutAndGet(t *testing.T) {
	dir := t.TempDir()
	ml, err := NewMonoLog(context.Background(), "test-monolog",
		options.WithDataDir(dir), options.WithSegmentSize(5), options.WithBaseName("events"))
	require.NoError(t, err)

	seq, err := ml.Put("payload-1", "events")
	require.NoError(t, err)
	require.Equal(t, uint64(1), seq)

	val, err := ml.Get([]string{"events"}, nil)
	require.NoError(t, err)
	require.Equal(t, "payload-1", val)
}
