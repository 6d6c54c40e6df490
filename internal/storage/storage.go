package storage

import "errors"

var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrItemNotFound       = errors.New("item not found")
	ErrInvalidReorder     = errors.New("reorder is not a permutation of existing items")
	ErrNoMatch            = errors.New("no matching collection")
	ErrAmbiguousMatch     = errors.New("more than one matching collection")
)

var (
	ErrFileTooLarge    = errors.New("file size exceeds limit")
	ErrInvalidFileType = errors.New("invalid file type")
	ErrFileNotFound    = errors.New("file not found")
)
