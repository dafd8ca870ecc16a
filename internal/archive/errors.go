package archive

import "errors"

var (
	// ErrNoURL is returned when a download is requested without a URL.
	ErrNoURL = errors.New("no download URL")
	// ErrInvalidResponse is returned for a non-200 download response.
	ErrInvalidResponse = errors.New("invalid download response")
	// ErrDownloadFailed is returned when streaming the body fails.
	ErrDownloadFailed = errors.New("download failed")
	// ErrFileTooLarge is returned when a download or extracted file
	// exceeds its configured size cap.
	ErrFileTooLarge = errors.New("file exceeds size limit")
	// ErrPathTraversal is returned when an archive entry would escape
	// the extraction root.
	ErrPathTraversal = errors.New("archive entry escapes extraction root")
	// ErrArchiveNotFound is returned when the archive path does not exist.
	ErrArchiveNotFound = errors.New("archive not found")
	// ErrUnsupportedArchive is returned when the content is not a
	// recognized zip, 7z, or rar archive.
	ErrUnsupportedArchive = errors.New("unsupported archive format")
	// ErrExtractionFailed wraps other extraction failures.
	ErrExtractionFailed = errors.New("extraction failed")
)
