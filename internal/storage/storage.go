package storage

import "errors"

var (
	ErrAlbumNotFound = errors.New("album not found")
	ErrSlugExists    = errors.New("slug already exists")
)

var (
	ErrFileNotFound   = errors.New("file not found")
	ErrInvalidFileKey = errors.New("invalid file key")
)

var ErrCacheMiss = errors.New("no such key")
