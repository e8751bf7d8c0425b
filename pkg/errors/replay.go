package errors

// ReplayError is a specialized error type for failures in the merge-replay
// iterator: an invalid cursor configuration, or a stream whose segments
// can't be listed, located or opened. It embeds baseError and adds the tag/partition and
// sequence context needed to tell a caller exactly where replay stopped.
type ReplayError struct {
	*baseError
	label string // Tag or partition label the failing reader belonged to.
	seq   uint64 // Sequence number being processed when the error occurred.
}

// NewReplayError creates a new replay-specific error.
func NewReplayError(err error, code ErrorCode, msg string) *ReplayError {
	return &ReplayError{baseError: NewBaseError(err, code, msg)}
}

// WithLabel records which tag or partition the failing reader belonged to.
func (re *ReplayError) WithLabel(label string) *ReplayError {
	re.label = label
	return re
}

// WithSeq records the sequence number being processed when the error occurred.
func (re *ReplayError) WithSeq(seq uint64) *ReplayError {
	re.seq = seq
	return re
}

// WithDetail adds contextual information while preserving the ReplayError type.
func (re *ReplayError) WithDetail(key string, value any) *ReplayError {
	re.baseError.WithDetail(key, value)
	return re
}

// Label returns the tag or partition the failing reader belonged to.
func (re *ReplayError) Label() string { return re.label }

// Seq returns the sequence number being processed when the error occurred.
func (re *ReplayError) Seq() uint64 { return re.seq }
