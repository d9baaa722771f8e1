package entities

import "errors"

var (
	// ErrMessageGone is returned by chat operations on a message that no longer exists
	ErrMessageGone = errors.New("message no longer exists")

	// ErrFileNotFound is returned when the storage service does not know the file
	ErrFileNotFound = errors.New("file not found")

	// ErrAccessDenied is returned when the storage credentials cannot read the file
	ErrAccessDenied = errors.New("file access denied")
)
