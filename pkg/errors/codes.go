package errors

// ErrorCode represents a standardized way to categorize different types of errors.
type ErrorCode string

// Base error codes map directly onto the error kinds table in the spec:
// BadArgument, Corrupt, Inconsistent, IO. NotFound is deliberately absent —
// it is a sentinel return value, never an error (see pkg/sentinel).
const (
	// ErrorCodeBadArgument is used when seq < 1, a non-positive segment size,
	// or another argument is rejected at the public boundary before touching
	// the filesystem.
	ErrorCodeBadArgument ErrorCode = "BAD_ARGUMENT"

	// ErrorCodeCorrupt is used for malformed lines, a missing snapshot at the
	// first line of a segment, or segment indices that don't match their
	// file name.
	ErrorCodeCorrupt ErrorCode = "CORRUPT"

	// ErrorCodeInconsistent is used when reload computes a maximum on-disk
	// sequence that disagrees with an already-non-zero in-memory counter.
	ErrorCodeInconsistent ErrorCode = "INCONSISTENT"

	// ErrorCodeIO covers underlying read/write/open/seek failures.
	ErrorCodeIO ErrorCode = "IO_ERROR"

	// ErrorCodeInternal covers failures that don't fit the taxonomy above —
	// bugs or assertion failures that shouldn't occur during normal operation.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Substrate-specific error codes extend the base taxonomy to handle failure
// modes specific to the segmented log substrate's file management.
const (
	// ErrorCodePermissionDenied indicates insufficient permissions to access
	// a segment file or the storage directory.
	ErrorCodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	// ErrorCodeDiskFull indicates the storage device has run out of space.
	ErrorCodeDiskFull ErrorCode = "DISK_FULL"

	// ErrorCodeFilesystemReadonly indicates the filesystem is mounted read-only.
	ErrorCodeFilesystemReadonly ErrorCode = "FILESYSTEM_READONLY"
)
