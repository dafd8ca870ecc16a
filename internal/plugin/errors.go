package plugin

import "errors"

var (
	// ErrTruncated is returned when the file ends before the header or
	// its record body is complete.
	ErrTruncated = errors.New("plugin file truncated")
	// ErrNotPlugin is returned when the file does not look like a
	// record-format plugin at all.
	ErrNotPlugin = errors.New("not a plugin file")
	// ErrInvalidSignature is returned when the leading record is not a
	// TES4 record.
	ErrInvalidSignature = errors.New("invalid plugin signature")
)
