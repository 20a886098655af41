package models

import (
	"errors"
	"fmt"
)

// Ошибки клиента: обнаруживаются до любых изменений.
var (
	ErrEmptyBatch      = errors.New("no photos in request")
	ErrTooManyFiles    = errors.New("too many photos in request")
	ErrFileTooLarge    = errors.New("file size exceeds limit")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrMissingTitle    = errors.New("title is required")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("access denied")
)

// Ошибки обработки: альбом уже создан и будет откатан.
var (
	ErrCompressionInsufficient = errors.New("image cannot be compressed within size budget")
	ErrDecodeFailed            = errors.New("image cannot be decoded")
)

// FileError привязывает ошибку к конкретному файлу запроса.
type FileError struct {
	Index    int
	Filename string
	Err      error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file #%d %q: %v", e.Index, e.Filename, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

func NewFileError(index int, filename string, err error) *FileError {
	return &FileError{Index: index, Filename: filename, Err: err}
}

// IsClientError true для ошибок, которые отклоняют запрос до обработки.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrEmptyBatch,
		ErrTooManyFiles,
		ErrFileTooLarge,
		ErrUnsupportedType,
		ErrMissingTitle,
		ErrInvalidInput,
		ErrUnauthenticated,
	} {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
