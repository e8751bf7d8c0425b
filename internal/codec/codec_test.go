package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeLineTwoFields(t *testing.T) {
	line := EncodeLine(42, `{"a":1}`)
	require.Equal(t, "42 {\"a\":1}\n", line)

	seq, fields, err := DecodeLine("42 {\"a\":1}", 2)
	require.NoError(t, err)
	require.Equal(t, uint64(42), seq)
	require.Equal(t, []string{`{"a":1}`}, fields)
}

func TestEncodeDecodeLineThreeFieldsPayloadWithSpaces(t *testing.T) {
	line := EncodeLine(7, "tagA", "hello world")
	seq, fields, err := DecodeLine(line[:len(line)-1], 3)
	require.NoError(t, err)
	require.Equal(t, uint64(7), seq)
	require.Equal(t, []string{"tagA", "hello world"}, fields)
}

func TestDecodeLineMalformed(t *testing.T) {
	_, _, err := DecodeLine("not-a-number payload", 2)
	require.Error(t, err)

	_, _, err = DecodeLine("5", 2)
	require.Error(t, err)
}

func TestEncodeJSONAcceptsEscapedNewline(t *testing.T) {
	_, err := EncodeJSON(map[string]any{"k": "line1\nline2"})
	// encoding/json escapes \n inside strings, so this should NOT error;
	// the guard only fires for pathological encoders. Document the happy path.
	require.NoError(t, err)
}

func TestMergeRightBiased(t *testing.T) {
	base := map[string]any{"a": 1.0, "b": 2.0}
	overlay := map[string]any{"b": 3.0, "c": 4.0}
	merged := MergeRightBiased(base, overlay)
	require.Equal(t, map[string]any{"a": 1.0, "b": 3.0, "c": 4.0}, merged)

	// base and overlay are untouched
	require.Equal(t, map[string]any{"a": 1.0, "b": 2.0}, base)
	require.Equal(t, map[string]any{"b": 3.0, "c": 4.0}, overlay)
}

func TestCopyMapNil(t *testing.T) {
	out := CopyMap(nil)
	require.NotNil(t, out)
	require.Empty(t, out)
}
