package statekeeper

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/marasadb/marasa/internal/substrate"
	marasaerrors "github.com/marasadb/marasa/pkg/errors"
	"github.com/marasadb/marasa/pkg/sentinel"
)

func newTestStateKeeper(t *testing.T, segmentSize uint64) *StateKeeper {
	t.Helper()
	sk, err := New(context.Background(), substrate.Config{
		Fs: afero.NewMemMapFs(), Dir: "/data", SegmentSize: segmentSize,
	})
	require.NoError(t, err)
	return sk
}

// Scenario 1: segmented single partition.
func TestSegmentedSinglePartition(t *testing.T) {
	sk := newTestStateKeeper(t, 5)
	for i := 0; i < 21; i++ {
		seq, err := sk.Write("ns", map[string]any{"k": float64(i)})
		require.NoError(t, err)
		require.Equal(t, uint64(i+1), seq)
	}

	v, err := sk.Get("ns", WithKey("k"))
	require.NoError(t, err)
	require.Equal(t, float64(20), v)

	v, err = sk.Get("ns", WithKey("k"), WithSeq(1))
	require.NoError(t, err)
	require.Equal(t, float64(0), v)

	v, err = sk.Get("ns", WithKey("k"), WithSeq(15))
	require.NoError(t, err)
	require.Equal(t, float64(14), v)

	segs, err := sk.sub.SegmentsOf("ns")
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 1, 2, 3, 4}, segs)

	wantLines := []int{4, 5, 5, 5, 2}
	for i, seg := range segs {
		f, err := sk.sub.OpenForRead("ns", seg)
		require.NoError(t, err)
		r := substrate.NewLineReader(f, "ns", seg, numFields)
		count := 0
		for {
			_, _, ok, err := r.Next()
			require.NoError(t, err)
			if !ok {
				break
			}
			count++
		}
		f.Close()
		require.Equal(t, wantLines[i], count, "segment %d", seg)
	}
}

// Scenario 2: multi-partition, single write.
func TestMultiWriteSingleSeq(t *testing.T) {
	sk := newTestStateKeeper(t, 10)
	seq, err := sk.MultiWrite(map[string]map[string]any{
		"a": {"x": float64(1)},
		"b": {"y": float64(2)},
	})
	require.NoError(t, err)
	require.Equal(t, uint64(1), seq)

	v, err := sk.Get("a", WithKey("x"))
	require.NoError(t, err)
	require.Equal(t, float64(1), v)

	v, err = sk.Get("b", WithKey("y"))
	require.NoError(t, err)
	require.Equal(t, float64(2), v)
}

// Scenario 4: historical read across segments.
func TestHistoricalReadOpensEarlierSegment(t *testing.T) {
	sk := newTestStateKeeper(t, 5)
	for i := 0; i < 21; i++ {
		_, err := sk.Write("ns", map[string]any{"k": float64(i)})
		require.NoError(t, err)
	}
	v, err := sk.Get("ns", WithKey("k"), WithSeq(6))
	require.NoError(t, err)
	require.Equal(t, float64(5), v)
}

// Scenario 5: initial-frame replay with key filter.
func TestReplayInitialFrameWithKeyFilter(t *testing.T) {
	sk := newTestStateKeeper(t, 5)
	for i := 0; i < 21; i++ {
		_, err := sk.Write("ns", map[string]any{"k": float64(i)})
		require.NoError(t, err)
	}
	key := "k"
	cur, err := sk.Replay(context.Background(), "ns", 8, &key)
	require.NoError(t, err)
	defer cur.Close()

	seq, v, ok, err := cur.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(8), seq)
	require.Equal(t, float64(7), v)

	for expectedSeq := uint64(9); expectedSeq <= 21; expectedSeq++ {
		seq, v, ok, err = cur.Next()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, expectedSeq, seq)
		require.Equal(t, float64(expectedSeq-1), v)
	}

	_, _, ok, err = cur.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

// Scenario 6: multi-write cross-partition coalescing in replay.
func TestReplayAllCoalescesMultiWrite(t *testing.T) {
	sk := newTestStateKeeper(t, 10)
	_, err := sk.MultiWrite(map[string]map[string]any{
		"a": {"x": float64(1)},
		"b": {"y": float64(2)},
	})
	require.NoError(t, err)

	cur, err := sk.ReplayAll(context.Background(), 1, nil, nil)
	require.NoError(t, err)
	defer cur.Close()

	seq, frame, ok, err := cur.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), seq)
	want := map[string]any{"a": map[string]any{"x": float64(1)}, "b": map[string]any{"y": float64(2)}}
	if diff := cmp.Diff(want, frame); diff != "" {
		t.Fatalf("coalesced frame mismatch (-want +got):\n%s", diff)
	}

	_, _, ok, err = cur.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGetMissingKeyReturnsNotFound(t *testing.T) {
	sk := newTestStateKeeper(t, 10)
	_, err := sk.Write("ns", map[string]any{"a": float64(1)})
	require.NoError(t, err)

	v, err := sk.Get("ns", WithKey("missing"))
	require.NoError(t, err)
	require.True(t, sentinel.Is(v))
}

func TestGetEmptyStoreReturnsEmptyMap(t *testing.T) {
	sk := newTestStateKeeper(t, 10)
	v, err := sk.Get("ns")
	require.NoError(t, err)
	require.Equal(t, map[string]any{}, v)

	parts, err := sk.Partitions()
	require.NoError(t, err)
	require.Empty(t, parts)
}

func TestSeqZeroIsBadArgument(t *testing.T) {
	sk := newTestStateKeeper(t, 10)
	_, err := sk.Get("ns", WithSeq(0))
	require.Error(t, err)
	require.True(t, marasaerrors.IsValidationError(err))
}

func TestSinglePartitionSingleWriteFileHasOneSnapshotLine(t *testing.T) {
	sk := newTestStateKeeper(t, 10)
	_, err := sk.Write("ns", map[string]any{"a": float64(1)})
	require.NoError(t, err)

	f, err := sk.sub.OpenForRead("ns", 0)
	require.NoError(t, err)
	defer f.Close()
	r := substrate.NewLineReader(f, "ns", 0, numFields)

	_, _, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	_, _, ok, err = r.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestReopenRebuildsCacheFromDisk(t *testing.T) {
	fs := afero.NewMemMapFs()
	sk, err := New(context.Background(), substrate.Config{Fs: fs, Dir: "/data", SegmentSize: 5})
	require.NoError(t, err)
	for i := 0; i < 7; i++ {
		_, err := sk.Write("ns", map[string]any{"k": float64(i)})
		require.NoError(t, err)
	}

	reopened, err := New(context.Background(), substrate.Config{Fs: fs, Dir: "/data", SegmentSize: 5})
	require.NoError(t, err)
	v, err := reopened.Get("ns", WithKey("k"))
	require.NoError(t, err)
	require.Equal(t, float64(6), v)
}
