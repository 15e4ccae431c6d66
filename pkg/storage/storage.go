package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrRejected reports an asset refused by the storage backend.
var ErrRejected = errors.New("upload rejected")

// File is a raw asset awaiting upload.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

// IsImage reports whether the declared content type is an image.
func (f File) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(f.ContentType), "image/")
}

// Uploader converts a raw file into a durable URL.
type Uploader interface {
	Upload(ctx context.Context, file File) (string, error)
}

// Remover is implemented by uploaders able to delete previously uploaded assets.
type Remover interface {
	Delete(ctx context.Context, url string) error
}

// objectName derives a collision-free name that keeps the original extension.
func objectName(original string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(original)))
	if len(ext) > 10 {
		ext = ""
	}
	return now.UTC().Format("20060102") + "/" + uuid.NewString() + ext
}
