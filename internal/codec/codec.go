// Package codec implements the on-disk record line format shared by the
// StateKeeper and both EventLog variants: fields separated by single ASCII
// spaces, terminated by a single newline, with the payload field allowed to
// contain internal spaces (it's never the first or middle field).
package codec

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// EncodeLine joins seq and the given fields with single spaces and a
// trailing newline. The last field may itself contain spaces; none of the
// fields may contain a newline — callers must enforce that before calling.
func EncodeLine(seq uint64, fields ...string) string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(seq, 10))
	for _, f := range fields {
		b.WriteByte(' ')
		b.WriteString(f)
	}
	b.WriteByte('\n')
	return b.String()
}

// DecodeLine splits a single line (without its trailing newline) into a
// sequence number and exactly numFields-1 further fields, where the last
// field absorbs any remaining spaces. numFields is 2 for StateKeeper and
// EventLog-mono lines ("<seq> <payload>") and 3 for EventLog-multi lines
// ("<seq> <tag> <payload>").
func DecodeLine(line string, numFields int) (seq uint64, fields []string, err error) {
	parts := strings.SplitN(line, " ", numFields)
	if len(parts) != numFields {
		return 0, nil, fmt.Errorf("malformed record line: expected %d fields, got %d", numFields, len(parts))
	}
	seq, err = strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("malformed record line: bad sequence number %q: %w", parts[0], err)
	}
	return seq, parts[1:], nil
}

// EncodeJSON strictly encodes a key/value map to a single-line JSON object,
// rejecting any value that would embed a literal newline in the result.
func EncodeJSON(data map[string]any) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	if strings.ContainsRune(string(b), '\n') {
		return "", fmt.Errorf("encoded JSON object must not contain a newline")
	}
	return string(b), nil
}

// DecodeJSON leniently decodes a JSON object, tolerating unknown fields and
// any valid JSON value type inside it.
func DecodeJSON(s string) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MergeRightBiased returns a new map containing base's entries overwritten
// by overlay's entries. Neither input is mutated or aliased into the
// result — every value map involved in the current-state cache is a fresh
// copy, per the design note against sharing sub-maps between cache entries
// and deltas.
func MergeRightBiased(base, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

// CopyMap returns a shallow copy of m, or an empty non-nil map if m is nil.
func CopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
