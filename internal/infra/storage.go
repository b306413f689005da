package infra

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrUnsupportedUpload is returned for files that are neither images nor PDFs.
	ErrUnsupportedUpload = errors.New("unsupported file type")
	// ErrUploadTooLarge is returned when the body exceeds MAX_UPLOAD_MB.
	ErrUploadTooLarge = errors.New("file too large")
)

var uploadExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// UploadStore keeps uploaded prescription scans on local disk under a
// single directory. Stored names are random; client file names are never
// used on disk.
type UploadStore struct {
	dir      string
	maxBytes int64
}

func NewUploadStore(dir string, maxMB int) (*UploadStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("upload: create dir: %w", err)
	}
	if maxMB <= 0 {
		maxMB = 8
	}
	return &UploadStore{dir: dir, maxBytes: int64(maxMB) << 20}, nil
}

// Save sniffs the content type from the first bytes, rejects anything that
// is not an image or a PDF and writes the file. It returns the stored name
// and the detected content type.
func (s *UploadStore) Save(r io.Reader) (name, contentType string, err error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", "", err
	}
	head = head[:n]
	if n == 0 {
		return "", "", ErrUnsupportedUpload
	}

	contentType = http.DetectContentType(head)
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	ext, ok := uploadExtensions[contentType]
	if !ok {
		return "", "", ErrUnsupportedUpload
	}

	name = uuid.NewString() + ext
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", "", err
	}
	body := io.MultiReader(bytes.NewReader(head), r)
	written, copyErr := io.Copy(f, io.LimitReader(body, s.maxBytes+1))
	closeErr := f.Close()
	if copyErr == nil && written > s.maxBytes {
		copyErr = ErrUploadTooLarge
	}
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(filepath.Join(s.dir, name))
		return "", "", errors.Join(copyErr, closeErr)
	}
	return name, contentType, nil
}

// Open returns a reader for a stored name. Names containing path separators
// are refused.
func (s *UploadStore) Open(name string) (io.ReadCloser, error) {
	if name == "" || filepath.Base(name) != name {
		return nil, os.ErrNotExist
	}
	return os.Open(filepath.Join(s.dir, name))
}

// Remove deletes a stored name. A missing file is not an error.
func (s *UploadStore) Remove(name string) error {
	if name == "" || filepath.Base(name) != name {
		return os.ErrNotExist
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
