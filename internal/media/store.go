// Package media stores uploaded photos under a date-partitioned root and
// hands out public URLs.
package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/megusto0/tgintegration/internal"
)

// MaxUploadSize is the upload ceiling in bytes.
const MaxUploadSize = 5 << 20

var (
	ErrTooLarge        = errors.New("media: file too large")
	ErrUnsupportedType = errors.New("media: unsupported content type")
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

type Store struct {
	root    string
	baseURL string
	logger  internal.Logger
}

func NewStore(root, baseURL string, logger internal.Logger) *Store {
	return &Store{root: root, baseURL: baseURL, logger: logger}
}

// Save writes the image under <root>/YYYY/MM/<random>.<ext> and returns
// its public URL. The random filename makes concurrent uploads
// collision-free without locking.
func (s *Store) Save(data []byte, contentType string) (string, error) {
	ext, ok := extensions[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	if len(data) > MaxUploadSize {
		return "", ErrTooLarge
	}

	now := time.Now().UTC()
	relDir := filepath.Join(fmt.Sprintf("%04d", now.Year()), fmt.Sprintf("%02d", int(now.Month())))
	if err := os.MkdirAll(filepath.Join(s.root, relDir), 0o755); err != nil {
		s.logger.Errorf("media: failed to create directory: %v", err)
		return "", err
	}

	name := strings.ReplaceAll(uuid.NewString(), "-", "") + ext
	if err := os.WriteFile(filepath.Join(s.root, relDir, name), data, 0o644); err != nil {
		s.logger.Errorf("media: failed to write file: %v", err)
		return "", err
	}

	relPath := filepath.ToSlash(filepath.Join(relDir, name))
	return s.baseURL + "/" + relPath, nil
}
