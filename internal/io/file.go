package ioutils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FSError is a filesystem failure while persisting an asset or state file.
//
// Callers treat it as a failed asset that may be retried once, never as a
// fatal run error.
type FSError struct {
	Op   string
	Path string
	Err  error
}

func (e *FSError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FSError) Unwrap() error {
	return e.Err
}

// IsFSError reports whether err is a filesystem failure.
func IsFSError(err error) bool {
	var fsErr *FSError
	return errors.As(err, &fsErr)
}

// WriteFileAtomic writes data to path as a whole file.
//
// The content is written to a temporary file in the same directory and then
// renamed over path, so readers never observe a partially written file and
// an interrupted write leaves nothing at path.
//
// Example:
//
//	err := WriteFileAtomic("/out/Chapter 1/001.jpg", imageBytes)
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &FSError{Op: "mkdir", Path: dir, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".neko-tmp-*")
	if err != nil {
		return &FSError{Op: "create temp", Path: path, Err: err}
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return &FSError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return &FSError{Op: "sync", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return &FSError{Op: "close", Path: path, Err: err}
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		cleanup()
		return &FSError{Op: "chmod", Path: path, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return &FSError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

// Exists reports whether a regular file exists at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// If the directory already exists, no error is returned.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return &FSError{Op: "mkdir", Path: path, Err: err}
	}
	return nil
}

// ReadFileIfExists returns the file content, or nil without error when the
// file does not exist.
func ReadFileIfExists(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &FSError{Op: "read", Path: path, Err: err}
	}
	return data, nil
}
