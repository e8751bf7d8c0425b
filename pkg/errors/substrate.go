package errors

// SubstrateError is a specialized error type for failures in the segmented
// log substrate: opening, creating, or reading segment files. It embeds
// baseError and adds the context needed to locate exactly which file and
// byte position were involved.
type SubstrateError struct {
	*baseError
	partition string // Partition or tag the segment belongs to.
	segment   uint64 // Segment index being accessed when the error occurred.
	offset    int64  // Byte offset within the segment, if applicable.
	fileName  string // Name of the file that caused the issue.
	path      string // Full path of the file that caused the issue.
}

// NewSubstrateError creates a new substrate-specific error.
func NewSubstrateError(err error, code ErrorCode, msg string) *SubstrateError {
	return &SubstrateError{baseError: NewBaseError(err, code, msg)}
}

// WithPartition records which partition or tag was involved.
func (se *SubstrateError) WithPartition(partition string) *SubstrateError {
	se.partition = partition
	return se
}

// WithSegment records which segment index was involved.
func (se *SubstrateError) WithSegment(segment uint64) *SubstrateError {
	se.segment = segment
	return se
}

// WithOffset records the byte position where the error occurred.
func (se *SubstrateError) WithOffset(offset int64) *SubstrateError {
	se.offset = offset
	return se
}

// WithFileName captures which file was being processed.
func (se *SubstrateError) WithFileName(fileName string) *SubstrateError {
	se.fileName = fileName
	return se
}

// WithPath captures the full path being processed.
func (se *SubstrateError) WithPath(path string) *SubstrateError {
	se.path = path
	return se
}

// WithDetail adds contextual information while preserving the SubstrateError type.
func (se *SubstrateError) WithDetail(key string, value any) *SubstrateError {
	se.baseError.WithDetail(key, value)
	return se
}

// Partition returns the partition or tag involved in the error.
func (se *SubstrateError) Partition() string { return se.partition }

// Segment returns the segment index involved in the error.
func (se *SubstrateError) Segment() uint64 { return se.segment }

// Offset returns the byte offset within the segment where the error happened.
func (se *SubstrateError) Offset() int64 { return se.offset }

// FileName returns the name of the file that was being processed.
func (se *SubstrateError) FileName() string { return se.fileName }

// Path returns the path of the file that was being processed.
func (se *SubstrateError) Path() string { return se.path }
