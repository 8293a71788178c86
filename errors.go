package seqtable

import (
	"errors"
	"fmt"
)

// Common sentinel errors for the seqtable package.
var (
	// ErrClosed is returned when operations are attempted on a closed table or stream.
	ErrClosed = errors.New("table is closed")

	// ErrInvalidRegion is returned for malformed region strings.
	ErrInvalidRegion = errors.New("invalid region")

	// ErrMissingRegion is returned when an indexed table is scanned without a
	// region predicate.
	ErrMissingRegion = errors.New("indexed table requires a region predicate")

	// ErrMissingLocation is returned when a table location does not exist.
	ErrMissingLocation = errors.New("table location does not exist")

	// ErrPartitionMismatch is returned when the path depth under the table root
	// does not match the declared partition columns.
	ErrPartitionMismatch = errors.New("partition column count mismatch")

	// ErrUnknownFormat is returned for unrecognized format names or extensions.
	ErrUnknownFormat = errors.New("unknown file format")

	// ErrUnknownColumn is returned when a projection names a column that is not
	// part of the table schema.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrNotSeekable is returned when a virtual-offset seek is issued against a
	// stream that is not bgzf-backed. This is an internal contract violation:
	// the region scanner only seeks bgzf streams.
	ErrNotSeekable = errors.New("stream does not support virtual-offset seeks")

	// ErrBadIndex is returned when an index artifact is corrupt.
	ErrBadIndex = errors.New("corrupt index artifact")
)

// ConfigError reports an invalid table, scan, or function configuration.
// Configuration errors surface at planning time, before any byte is read.
type ConfigError struct {
	// Subject names the table, location, or function the error refers to.
	Subject string
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	if e.Subject != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s: %v", e.Subject, e.Message, e.Cause)
		}
		return fmt.Sprintf("%s: %s", e.Subject, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ConfigError) Unwrap() error { return e.Cause }

func newConfigError(subject, message string, cause error) *ConfigError {
	return &ConfigError{Subject: subject, Message: message, Cause: cause}
}

// DecodeError reports a malformed record. Record is the 1-based ordinal of the
// offending record within its file. Decode errors abort the scan of that file
// and are never retried.
type DecodeError struct {
	Format  Format
	File    string
	Record  int64
	Message string
	Cause   error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("%s decode error in %s at record %d: %s", e.Format, e.File, e.Record, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Cause }

func newDecodeError(format Format, file string, record int64, message string, cause error) *DecodeError {
	return &DecodeError{Format: format, File: file, Record: record, Message: message, Cause: cause}
}

// IndexError reports a missing or corrupt companion index when an indexed scan
// is requested.
type IndexError struct {
	File    string
	Message string
	Cause   error
}

func (e *IndexError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("index for %s: %s: %v", e.File, e.Message, e.Cause)
	}
	return fmt.Sprintf("index for %s: %s", e.File, e.Message)
}

func (e *IndexError) Unwrap() error { return e.Cause }

// Is reports ErrBadIndex for corrupt artifacts so callers can match with
// errors.Is.
func (e *IndexError) Is(target error) bool {
	return target == ErrBadIndex && e.Cause == nil
}

// CodecError reports a compression codec failure, including the internal
// contract violation of seeking a non-seekable stream.
type CodecError struct {
	Codec   Compression
	Message string
	Cause   error
}

func (e *CodecError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("codec %s: %s: %v", e.Codec, e.Message, e.Cause)
	}
	return fmt.Sprintf("codec %s: %s", e.Codec, e.Message)
}

func (e *CodecError) Unwrap() error { return e.Cause }

// ScanError wraps a failure encountered while scanning one source file. The
// scan as a whole fails; absence of rows and failure are always
// distinguishable.
type ScanError struct {
	File  string
	Cause error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan of %s failed: %v", e.File, e.Cause)
}

func (e *ScanError) Unwrap() error { return e.Cause }
