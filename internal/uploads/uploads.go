// Package uploads stores user-submitted images on local disk.
//
// Files are written synchronously before the owning database row commits, so
// a crash between the two steps can leave an orphan; Sweep reconciles those.
package uploads

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxFileSize is the upload size cap (5MB), matching the API contract.
const MaxFileSize = 5 << 20

// Kinds of stored images, each its own subdirectory.
const (
	KindAvatar    = "avatars"
	KindPortfolio = "portfolio"
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// Store writes and removes uploaded images under a base directory.
type Store struct {
	baseDir string
}

// NewStore creates a store, ensuring the per-kind subdirectories exist.
func NewStore(baseDir string) (*Store, error) {
	for _, kind := range []string{KindAvatar, KindPortfolio} {
		if err := os.MkdirAll(filepath.Join(baseDir, kind), 0755); err != nil {
			return nil, fmt.Errorf("could not create upload directory: %w", err)
		}
	}
	return &Store{baseDir: baseDir}, nil
}

// BaseDir returns the root of the upload tree, for static file serving.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// Save validates and writes an uploaded image, returning its public path
// (e.g. "/uploads/portfolio/<name>.png"). Names are random so one upload
// can never clobber another.
func (s *Store) Save(kind string, file multipart.File, header *multipart.FileHeader) (string, error) {
	if header.Size > MaxFileSize {
		return "", fmt.Errorf("file too large: %d bytes", header.Size)
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("file type %q not allowed, images only", ext)
	}
	if ct := header.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return "", fmt.Errorf("content type %q not allowed, images only", ct)
	}

	name := uuid.New().String() + ext
	dst, err := os.Create(filepath.Join(s.baseDir, kind, name))
	if err != nil {
		return "", fmt.Errorf("could not create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(file, MaxFileSize+1)); err != nil {
		return "", fmt.Errorf("could not write upload file: %w", err)
	}

	return "/uploads/" + kind + "/" + name, nil
}

// Remove deletes a stored file by its public path. Paths outside the upload
// tree are rejected.
func (s *Store) Remove(publicPath string) error {
	rel, ok := strings.CutPrefix(publicPath, "/uploads/")
	if !ok {
		return fmt.Errorf("not an upload path: %s", publicPath)
	}
	rel = filepath.Clean(rel)
	if strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return fmt.Errorf("not an upload path: %s", publicPath)
	}
	err := os.Remove(filepath.Join(s.baseDir, rel))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Sweep deletes files older than the given age that are not in the referenced
// set (public paths). Returns the number of files removed.
func (s *Store) Sweep(olderThan time.Duration, referenced map[string]bool) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	removed := 0

	for _, kind := range []string{KindAvatar, KindPortfolio} {
		entries, err := os.ReadDir(filepath.Join(s.baseDir, kind))
		if err != nil {
			return removed, err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			publicPath := "/uploads/" + kind + "/" + entry.Name()
			if referenced[publicPath] {
				continue
			}
			info, err := entry.Info()
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(s.baseDir, kind, entry.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
