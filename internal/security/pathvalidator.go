package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrPathEscapes = errors.New("path escapes working directory")
	ErrEmptyPath   = errors.New("empty path not allowed")
)

// PathValidator confines file access for the config-file commands to one
// directory tree using os.Root.
type PathValidator struct {
	root    *os.Root
	dirPath string
}

// New opens dir as the confinement root.
func New(dir string) (*PathValidator, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open root directory: %w", err)
	}

	return &PathValidator{
		root:    root,
		dirPath: absPath,
	}, nil
}

// Close releases the root directory handle.
func (pv *PathValidator) Close() error {
	if pv.root != nil {
		return pv.root.Close()
	}
	return nil
}

// Dir returns the absolute path of the root directory.
func (pv *PathValidator) Dir() string {
	return pv.dirPath
}

// Normalize turns a user supplied path into a clean, slash separated path
// relative to the root. Absolute paths are accepted when they point inside
// the root; anything that would leave it is rejected.
func (pv *PathValidator) Normalize(userPath string) (string, error) {
	if userPath == "" {
		return "", ErrEmptyPath
	}

	rel := userPath
	if filepath.IsAbs(userPath) {
		r, err := filepath.Rel(pv.dirPath, filepath.Clean(userPath))
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrPathEscapes, userPath)
		}
		rel = r
	}

	rel = filepath.Clean(rel)
	if !filepath.IsLocal(rel) || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, userPath)
	}

	return filepath.ToSlash(rel), nil
}

func (pv *PathValidator) resolve(userPath string) (string, error) {
	rel, err := pv.Normalize(userPath)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	return filepath.FromSlash(rel), nil
}

// ReadFile reads a file inside the root.
func (pv *PathValidator) ReadFile(path string) ([]byte, error) {
	p, err := pv.resolve(path)
	if err != nil {
		return nil, err
	}
	return pv.root.ReadFile(p)
}

// WriteFile writes a file inside the root, creating parent directories with
// owner-only permissions.
func (pv *PathValidator) WriteFile(path string, data []byte, perm os.FileMode) error {
	p, err := pv.resolve(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(p); dir != "." {
		if err := pv.root.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}
	return pv.root.WriteFile(p, data, perm)
}

// Stat stats a file inside the root.
func (pv *PathValidator) Stat(path string) (os.FileInfo, error) {
	p, err := pv.resolve(path)
	if err != nil {
		return nil, err
	}
	return pv.root.Stat(p)
}
