package repository

import "errors"

var (
	// ErrInvalidMediaURL indicates a URL that cannot be fetched
	ErrInvalidMediaURL = errors.New("invalid media URL")

	// ErrHistoryItemNotFound indicates the history item was not found
	ErrHistoryItemNotFound = errors.New("history item not found")

	// ErrUnsupportedMedia indicates fetched content is not analysable media
	ErrUnsupportedMedia = errors.New("unsupported media")
)
