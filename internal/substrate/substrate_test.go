package substrate

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	marasaerrors "github.com/marasadb/marasa/pkg/errors"
)

func newTestSubstrate(t *testing.T) *Substrate {
	t.Helper()
	s, err := New(context.Background(), Config{
		Fs:          afero.NewMemMapFs(),
		Dir:         "/data",
		SegmentSize: 10,
	})
	require.NoError(t, err)
	return s
}

func TestNewRejectsZeroSegmentSize(t *testing.T) {
	_, err := New(context.Background(), Config{Fs: afero.NewMemMapFs(), Dir: "/data", SegmentSize: 0})
	require.Error(t, err)
	require.True(t, marasaerrors.IsValidationError(err))
}

func TestValidatePartition(t *testing.T) {
	require.NoError(t, ValidatePartition("users"))
	require.Error(t, ValidatePartition(""))
	require.Error(t, ValidatePartition("users.1"))
	require.Error(t, ValidatePartition("has space"))
}

func TestSegmentOf(t *testing.T) {
	s := newTestSubstrate(t)
	require.Equal(t, uint64(0), s.SegmentOf(0))
	require.Equal(t, uint64(0), s.SegmentOf(1))
	require.Equal(t, uint64(1), s.SegmentOf(10))
	require.Equal(t, uint64(1), s.SegmentOf(11))
	require.Equal(t, uint64(10), s.SegmentOf(100))
}

func TestPathFor(t *testing.T) {
	s := newTestSubstrate(t)
	require.Equal(t, "/data/users.000000003", s.PathFor("users", 3))
}

func TestAppendAndSegmentsOf(t *testing.T) {
	s := newTestSubstrate(t)
	require.NoError(t, s.AppendLine("users", 0, "1 {}\n"))
	require.NoError(t, s.AppendLine("users", 1, "11 {}\n"))

	segs, err := s.SegmentsOf("users")
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 1}, segs)

	parts, err := s.EnumeratePartitions()
	require.NoError(t, err)
	require.Equal(t, []string{"users"}, parts)
}

func TestSegmentsOfCacheInvalidatesOnWrite(t *testing.T) {
	s := newTestSubstrate(t)
	segs, err := s.SegmentsOf("users")
	require.NoError(t, err)
	require.Empty(t, segs)

	require.NoError(t, s.AppendLine("users", 0, "1 {}\n"))
	segs, err = s.SegmentsOf("users")
	require.NoError(t, err)
	require.Equal(t, []uint64{0}, segs)
}

func TestFileForSeqExactAndFloor(t *testing.T) {
	s := newTestSubstrate(t)
	require.NoError(t, s.AppendLine("users", 0, "1 {}\n"))
	require.NoError(t, s.AppendLine("users", 2, "21 {}\n"))

	seg, ok, err := s.FileForSeq("users", nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(2), seg)

	q := uint64(15)
	seg, ok, err = s.FileForSeq("users", &q)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(0), seg)

	q2 := uint64(25)
	seg, ok, err = s.FileForSeq("users", &q2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(2), seg)
}

func TestFileForSeqNoSegments(t *testing.T) {
	s := newTestSubstrate(t)
	_, ok, err := s.FileForSeq("ghost", nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFileForSeqBelowEarliestSegment(t *testing.T) {
	s := newTestSubstrate(t)
	require.NoError(t, s.AppendLine("users", 3, "31 {}\n"))

	q := uint64(5)
	_, ok, err := s.FileForSeq("users", &q)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLineReaderReadsUntilCleanEOF(t *testing.T) {
	s := newTestSubstrate(t)
	require.NoError(t, s.AppendLine("users", 0, "1 {\"a\":1}\n"))
	require.NoError(t, s.AppendLine("users", 0, "2 {\"a\":2}\n"))

	f, err := s.OpenForRead("users", 0)
	require.NoError(t, err)
	r := NewLineReader(f, "users", 0, 2)
	defer r.Close()

	seq, fields, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), seq)
	require.Equal(t, []string{`{"a":1}`}, fields)

	seq, fields, ok, err = r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(2), seq)
	require.Equal(t, []string{`{"a":2}`}, fields)

	_, _, ok, err = r.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLineReaderPartialTrailingLineIsCorrupt(t *testing.T) {
	s := newTestSubstrate(t)
	require.NoError(t, s.AppendLine("users", 0, "1 {}\n"))
	require.NoError(t, s.AppendLine("users", 0, "2 {}")) // no trailing newline

	f, err := s.OpenForRead("users", 0)
	require.NoError(t, err)
	r := NewLineReader(f, "users", 0, 2)
	defer r.Close()

	_, _, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)

	_, _, ok, err = r.Next()
	require.False(t, ok)
	require.Error(t, err)
	require.True(t, marasaerrors.IsSubstrateError(err))
}

func TestExists(t *testing.T) {
	s := newTestSubstrate(t)
	ok, err := s.Exists("users", 0)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.AppendLine("users", 0, "1 {}\n"))
	ok, err = s.Exists("users", 0)
	require.NoError(t, err)
	require.True(t, ok)
}
