package archive

import "errors"

var (
	// ErrNotFound indicates no record exists for the given key.
	ErrNotFound = errors.New("archive: record not found")

	// ErrInvalidKey indicates the key is not exactly 32 bytes.
	ErrInvalidKey = errors.New("archive: key must be 32 bytes")

	// ErrIOFailure indicates a file read/write error.
	ErrIOFailure = errors.New("archive: I/O failure")

	// ErrEmptyContent indicates an attempt to store an empty record.
	ErrEmptyContent = errors.New("archive: content is empty")

	// ErrInvalidBaseDir indicates the base directory path is invalid.
	ErrInvalidBaseDir = errors.New("archive: invalid base directory")

	// ErrCorruptRecord indicates a stored record could not be decoded.
	ErrCorruptRecord = errors.New("archive: corrupt record")

	// ErrNilReceipt indicates a nil receipt was recorded.
	ErrNilReceipt = errors.New("archive: nil receipt")
)
