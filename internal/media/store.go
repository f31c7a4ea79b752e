// Package media stores product images on disk and removes them again.
package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/vitrina/internal/metrics"
	"github.com/erazemk/vitrina/internal/model"
)

// ErrNotStored is returned for references that do not point into the
// uploads directory, such as absolute URLs.
var ErrNotStored = errors.New("reference is not a stored upload")

// DiskStore keeps uploaded images as flat files in one directory.
type DiskStore struct {
	dir string
}

// NewDiskStore creates dir when missing.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating uploads directory: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Dir returns the uploads directory.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Save writes data under a fresh name and returns its stored reference
// ("/uploads/<epoch-ms>-<random>.<ext>"). The file appears atomically.
func (s *DiskStore) Save(ext string, data []byte) (string, error) {
	name := fmt.Sprintf("%d-%d%s", time.Now().UnixMilli(), uuid.New().ID(), strings.ToLower(ext))

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("writing image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("closing image: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("setting image permissions: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("renaming image: %w", err)
	}

	metrics.ImagesStoredTotal.Inc()
	return model.UploadsPrefix + name, nil
}

// Path maps a stored reference to its file. Only the base name is used, so
// a reference cannot point outside the uploads directory.
func (s *DiskStore) Path(ref string) (string, error) {
	if !strings.HasPrefix(ref, model.UploadsPrefix) {
		return "", ErrNotStored
	}
	name := filepath.Base(strings.TrimPrefix(ref, model.UploadsPrefix))
	if name == "." || name == ".." || name == string(filepath.Separator) || strings.HasPrefix(name, ".") {
		return "", ErrNotStored
	}
	return filepath.Join(s.dir, name), nil
}

// Delete removes the file behind ref. A missing file is not an error.
func (s *DiskStore) Delete(ref string) error {
	path, err := s.Path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing image: %w", err)
	}
	return nil
}

type baseURLKey struct{}

// WithBaseURL attaches the base used to expand stored image references.
func WithBaseURL(ctx context.Context, base string) context.Context {
	return context.WithValue(ctx, baseURLKey{}, base)
}

// BaseURL returns the base attached by WithBaseURL, or "".
func BaseURL(ctx context.Context) string {
	base, _ := ctx.Value(baseURLKey{}).(string)
	return base
}
