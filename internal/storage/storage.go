// Package storage keeps each app's uploaded files and vector index on the
// local filesystem.
//
// Directory structure:
//
//	{root}/apps/
//	└── {app_id}/
//	    ├── files/           ← uploaded documents
//	    └── vector_index/    ← persisted index, replaced on every build
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Errors for storage operations.
var (
	ErrUnsupported   = errors.New("unsupported file type")
	ErrInvalidName   = errors.New("invalid name")
	ErrPathTraversal = errors.New("path traversal detected")
)

const (
	appsDir  = "apps"
	filesDir = "files"
	indexDir = "vector_index"
)

// supportedExtensions lists the document types the indexer can load.
var supportedExtensions = []string{".txt", ".md"}

// Store is a per-app blob store rooted at a single directory.
type Store struct {
	root string
}

// New creates the store, making sure {root}/apps exists.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("storage root is required")
	}
	if err := os.MkdirAll(filepath.Join(root, appsDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the storage root directory.
func (s *Store) Root() string {
	return s.root
}

// AppRoot returns the directory holding everything for one app.
func (s *Store) AppRoot(appID string) string {
	return filepath.Join(s.root, appsDir, appID)
}

// FilesDir returns the upload directory of an app.
func (s *Store) FilesDir(appID string) string {
	return filepath.Join(s.AppRoot(appID), filesDir)
}

// IndexDir returns the vector index directory of an app.
func (s *Store) IndexDir(appID string) string {
	return filepath.Join(s.AppRoot(appID), indexDir)
}

// EnsureDirs creates the files and index directories of an app.
func (s *Store) EnsureDirs(appID string) error {
	if err := validateName(appID); err != nil {
		return fmt.Errorf("app id: %w", err)
	}
	for _, dir := range []string{s.FilesDir(appID), s.IndexDir(appID)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// SaveFile writes content under the app's files directory and returns the
// stored path. Only the base name of filename is used. An existing file
// with the same name is replaced.
func (s *Store) SaveFile(appID, filename string, content []byte) (string, error) {
	name := filepath.Base(filename)
	if err := validateName(name); err != nil {
		return "", fmt.Errorf("filename: %w", err)
	}
	if !IsSupported(name) {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, name)
	}
	if err := s.EnsureDirs(appID); err != nil {
		return "", err
	}

	path := filepath.Join(s.FilesDir(appID), name)

	// Write atomically
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to rename %s: %w", name, err)
	}
	return path, nil
}

// ListFilePaths returns the regular files in the app's files directory,
// sorted by name. A missing directory yields an empty list.
func (s *Store) ListFilePaths(appID string) ([]string, error) {
	if err := validateName(appID); err != nil {
		return nil, fmt.Errorf("app id: %w", err)
	}
	entries, err := os.ReadDir(s.FilesDir(appID))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}
		paths = append(paths, filepath.Join(s.FilesDir(appID), e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// DeleteFile removes one uploaded file. It reports whether a file existed.
func (s *Store) DeleteFile(appID, filename string) (bool, error) {
	if err := validateName(appID); err != nil {
		return false, fmt.Errorf("app id: %w", err)
	}
	name := filepath.Base(filename)
	if err := validateName(name); err != nil {
		return false, fmt.Errorf("filename: %w", err)
	}
	err := os.Remove(filepath.Join(s.FilesDir(appID), name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return true, nil
}

// ClearIndexDir removes the app's vector index and leaves an empty
// directory in its place.
func (s *Store) ClearIndexDir(appID string) error {
	if err := validateName(appID); err != nil {
		return fmt.Errorf("app id: %w", err)
	}
	dir := s.IndexDir(appID)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to recreate index directory: %w", err)
	}
	return nil
}

// DeleteAll removes every file and the index of an app.
func (s *Store) DeleteAll(appID string) error {
	if err := validateName(appID); err != nil {
		return fmt.Errorf("app id: %w", err)
	}
	if err := os.RemoveAll(s.AppRoot(appID)); err != nil {
		return fmt.Errorf("failed to delete app storage: %w", err)
	}
	return nil
}

// HashContent returns the hex SHA-256 of content.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// SupportedExtensions returns the loadable document extensions.
func SupportedExtensions() []string {
	out := make([]string, len(supportedExtensions))
	copy(out, supportedExtensions)
	return out
}

// IsSupported reports whether filename has a supported extension, ignoring case.
func IsSupported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range supportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// validateName checks that name is a single safe path element.
func validateName(name string) error {
	if name == "" || len(name) > 255 {
		return ErrInvalidName
	}
	if name == "." || name == ".." {
		return ErrPathTraversal
	}
	for _, c := range name {
		if c == '/' || c == '\\' || c == '\x00' {
			return ErrPathTraversal
		}
	}
	if filepath.Clean(name) != name {
		return ErrPathTraversal
	}
	return nil
}
