package serializing

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/marasadb/marasa/internal/eventlog"
	"github.com/marasadb/marasa/internal/substrate"
)

type order struct {
	ID    int
	Total float64
}

func serializeOrder(o order) (string, error) {
	return fmt.Sprintf("%d|%f", o.ID, o.Total), nil
}

func deserializeOrder(s string) (order, error) {
	parts := strings.SplitN(s, "|", 2)
	if len(parts) != 2 {
		return order{}, fmt.Errorf("malformed order payload %q", s)
	}
	id, err := strconv.Atoi(parts[0])
	if err != nil {
		return order{}, err
	}
	total, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return order{}, err
	}
	return order{ID: id, Total: total}, nil
}

func newTestLog(t *testing.T) *eventlog.EventLog {
	t.Helper()
	el, err := eventlog.New(context.Background(), eventlog.Config{
		Config: substrate.Config{Fs: afero.NewMemMapFs(), Dir: "/data", SegmentSize: 5},
	})
	require.NoError(t, err)
	return el
}

func TestPutDefaultsTagToTypeName(t *testing.T) {
	el := newTestLog(t)
	s := New(el, serializeOrder, deserializeOrder)

	seq, err := s.Put(order{ID: 1, Total: 9.5}, "")
	require.NoError(t, err)
	require.Equal(t, uint64(1), seq)

	rec, ok, err := s.Get([]string{"order"}, nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, order{ID: 1, Total: 9.5}, rec)
}

func TestGetMissingReturnsNotOk(t *testing.T) {
	el := newTestLog(t)
	s := New(el, serializeOrder, deserializeOrder)

	_, ok, err := s.Get([]string{"order"}, nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPutRejectsEmbeddedNewline(t *testing.T) {
	el := newTestLog(t)
	s := New(el, func(o order) (string, error) {
		return fmt.Sprintf("%d\n%f", o.ID, o.Total), nil
	}, deserializeOrder)

	_, err := s.Put(order{ID: 1}, "order")
	require.Error(t, err)
}

func TestReplayYieldsDeserializedRecords(t *testing.T) {
	el := newTestLog(t)
	s := New(el, serializeOrder, deserializeOrder)

	for i := 1; i <= 3; i++ {
		_, err := s.Put(order{ID: i, Total: float64(i) * 1.5}, "order")
		require.NoError(t, err)
	}

	cur, err := s.Replay(context.Background(), 1, []string{"order"})
	require.NoError(t, err)
	defer cur.Close()

	for i := 1; i <= 3; i++ {
		seq, tag, rec, ok, err := cur.Next()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, uint64(i), seq)
		require.Equal(t, "order", tag)
		require.Equal(t, order{ID: i, Total: float64(i) * 1.5}, rec)
	}
	_, _, _, ok, err := cur.Next()
	require.NoError(t, err)
	require.False(t, ok)
}
