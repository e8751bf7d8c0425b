package batch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeStateKeeper struct {
	lastUpdates map[string]map[string]any
	nextSeq     uint64
	err         error
}

func (f *fakeStateKeeper) MultiWrite(updates map[string]map[string]any) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.lastUpdates = updates
	f.nextSeq++
	return f.nextSeq, nil
}

func TestCommitAppliesStagedUpdates(t *testing.T) {
	sk := &fakeStateKeeper{}
	w := New(sk)
	w.Set("a", "x", 1.0).Set("a", "y", 2.0).Set("b", "z", 3.0)

	seq, err := w.Commit()
	require.NoError(t, err)
	require.Equal(t, uint64(1), seq)
	require.Equal(t, map[string]map[string]any{
		"a": {"x": 1.0, "y": 2.0},
		"b": {"z": 3.0},
	}, sk.lastUpdates)
	require.Equal(t, 0, w.Len())
}

func TestSetMapMerges(t *testing.T) {
	sk := &fakeStateKeeper{}
	w := New(sk)
	w.SetMap("a", map[string]any{"x": 1.0})
	w.SetMap("a", map[string]any{"y": 2.0})

	_, err := w.Commit()
	require.NoError(t, err)
	require.Equal(t, map[string]any{"x": 1.0, "y": 2.0}, sk.lastUpdates["a"])
}
