// Package sentinel defines the distinguished "no record" return value shared
// by the keyed store and the event log. NotFound is a value, never an error:
// callers test for it with sentinel.Is, not with errors.Is.
package sentinel

// NotFoundValue is the type of the NotFound sentinel. It exists only so the
// zero value can't be confused with a legitimate nil payload from a caller.
type NotFoundValue struct{}

// NotFound is returned in place of a key's value or an event's payload when
// no record exists for the requested key, sequence number, or tag set.
var NotFound = NotFoundValue{}

// Is reports whether v is the NotFound sentinel.
func Is(v any) bool {
	_, ok := v.(NotFoundValue)
	return ok
}
