package models

import (
	"bytes"
	"io"
	"mime/multipart"
	"time"
)

// UploadedFile файл из запроса. Хранится только до конца загрузки альбома.
type UploadedFile struct {
	Filename    string
	ContentType string
	Size        int64
	// ModTime время изменения файла на клиенте. Нулевое, если клиент его не передал.
	ModTime time.Time
	Open    func() (io.ReadCloser, error)
}

// FileFromHeader оборачивает multipart-файл из запроса.
func FileFromHeader(fh *multipart.FileHeader, modTime time.Time) UploadedFile {
	return UploadedFile{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		ModTime:     modTime,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func FileFromBytes(filename, contentType string, data []byte, modTime time.Time) UploadedFile {
	return UploadedFile{
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		ModTime:     modTime,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// ReadAll читает содержимое файла целиком.
func (f UploadedFile) ReadAll() ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// CreateAlbumInput сырые данные запроса на создание альбома.
type CreateAlbumInput struct {
	OwnerID     string
	Title       string
	Description string
	Files       []UploadedFile
	ReceivedAt  time.Time
}

// UploadBatch проверенный запрос. После валидации не изменяется.
type UploadBatch struct {
	ownerID     string
	title       string
	description string
	files       []UploadedFile
	receivedAt  time.Time
}

func NewUploadBatch(ownerID, title, description string, files []UploadedFile, receivedAt time.Time) UploadBatch {
	cp := make([]UploadedFile, len(files))
	copy(cp, files)

	return UploadBatch{
		ownerID:     ownerID,
		title:       title,
		description: description,
		files:       cp,
		receivedAt:  receivedAt,
	}
}

func (b UploadBatch) OwnerID() string         { return b.ownerID }
func (b UploadBatch) Title() string           { return b.title }
func (b UploadBatch) Description() string     { return b.description }
func (b UploadBatch) Len() int                { return len(b.files) }
func (b UploadBatch) File(i int) UploadedFile { return b.files[i] }
func (b UploadBatch) ReceivedAt() time.Time   { return b.receivedAt }

// CaptureTime результат определения времени съемки.
type CaptureTime struct {
	Time   time.Time
	Source TakenAtSource
}

// TranscodedImage перекодированное изображение и его превью.
type TranscodedImage struct {
	Data      []byte
	Thumbnail []byte
	Width     int
	Height    int
	Quality   int
	Passes    int
}
