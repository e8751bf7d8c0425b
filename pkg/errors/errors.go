// Package errors gives every failure path in the engine a structured,
// programmatically-inspectable shape instead of an opaque string.
//
// The taxonomy is deliberately small and mirrors the error kinds table in
// the spec: ValidationError for BadArgument, SubstrateError for Corrupt/IO/
// Inconsistent failures against segment files, and ReplayError for failures
// encountered while merging per-label segment streams. NotFound is never an
// error in this package — it's the sentinel value in pkg/sentinel.
package errors

import (
	stdErrors "errors"
	"os"
	"syscall"
)

// IsValidationError reports whether err is a ValidationError or wraps one.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return stdErrors.As(err, &ve)
}

// IsSubstrateError reports whether err is a SubstrateError or wraps one.
func IsSubstrateError(err error) bool {
	var se *SubstrateError
	return stdErrors.As(err, &se)
}

// IsReplayError reports whether err is a ReplayError or wraps one.
func IsReplayError(err error) bool {
	var re *ReplayError
	return stdErrors.As(err, &re)
}

// AsValidationError extracts a ValidationError from an error chain.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if stdErrors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// AsSubstrateError extracts a SubstrateError from an error chain.
func AsSubstrateError(err error) (*SubstrateError, bool) {
	var se *SubstrateError
	if stdErrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// AsReplayError extracts a ReplayError from an error chain.
func AsReplayError(err error) (*ReplayError, bool) {
	var re *ReplayError
	if stdErrors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from any error in this package's
// taxonomy, or ErrorCodeInternal for anything else.
func GetErrorCode(err error) ErrorCode {
	if ve, ok := AsValidationError(err); ok {
		return ve.Code()
	}
	if se, ok := AsSubstrateError(err); ok {
		return se.Code()
	}
	if re, ok := AsReplayError(err); ok {
		return re.Code()
	}
	return ErrorCodeInternal
}

// GetErrorDetails extracts structured details from any error in this
// package's taxonomy, or an empty map otherwise.
func GetErrorDetails(err error) map[string]any {
	if ve, ok := AsValidationError(err); ok && ve.Details() != nil {
		return ve.Details()
	}
	if se, ok := AsSubstrateError(err); ok && se.Details() != nil {
		return se.Details()
	}
	if re, ok := AsReplayError(err); ok && re.Details() != nil {
		return re.Details()
	}
	return make(map[string]any)
}

// ClassifyDirectoryCreationError turns a raw mkdir failure into a
// SubstrateError with an error code specific enough to act on.
func ClassifyDirectoryCreationError(err error, path string) error {
	if os.IsPermission(err) {
		return NewSubstrateError(
			err, ErrorCodePermissionDenied, "insufficient permissions to create storage directory",
		).WithPath(path).WithDetail("operation", "directory_creation")
	}
	if pathErr, ok := err.(*os.PathError); ok {
		if errno, ok := pathErr.Err.(syscall.Errno); ok {
			switch errno {
			case syscall.ENOSPC:
				return NewSubstrateError(
					err, ErrorCodeDiskFull, "insufficient disk space to create storage directory",
				).WithPath(path).WithDetail("operation", "directory_creation")
			case syscall.EROFS:
				return NewSubstrateError(
					err, ErrorCodeFilesystemReadonly, "cannot create directory on read-only filesystem",
				).WithPath(path).WithDetail("operation", "directory_creation")
			}
		}
	}
	return NewSubstrateError(err, ErrorCodeIO, "failed to create storage directory").
		WithPath(path).WithDetail("operation", "directory_creation")
}

// ClassifyFileOpenError turns a raw open failure into a SubstrateError with
// an error code specific enough to act on.
func ClassifyFileOpenError(err error, path, fileName string) error {
	if os.IsPermission(err) {
		return NewSubstrateError(
			err, ErrorCodePermissionDenied, "insufficient permissions to open segment file",
		).WithPath(path).WithFileName(fileName).WithDetail("operation", "file_open")
	}
	if pathErr, ok := err.(*os.PathError); ok {
		if errno, ok := pathErr.Err.(syscall.Errno); ok {
			switch errno {
			case syscall.ENOSPC:
				return NewSubstrateError(
					err, ErrorCodeDiskFull, "insufficient disk space to create segment file",
				).WithPath(path).WithFileName(fileName).WithDetail("operation", "file_open")
			case syscall.EROFS:
				return NewSubstrateError(
					err, ErrorCodeFilesystemReadonly, "cannot create file on read-only filesystem",
				).WithPath(path).WithFileName(fileName).WithDetail("operation", "file_open")
			}
		}
	}
	return NewSubstrateError(err, ErrorCodeIO, "failed to open segment file").
		WithPath(path).WithFileName(fileName).WithDetail("operation", "file_open")
}
