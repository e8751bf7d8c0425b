// Package filesys provides the small set of filesystem operations the
// segmented log substrate needs, generalized from direct os.* calls
// (ignite's original pkg/filesys) to operate over an injected afero.Fs so
// the substrate can be exercised against an in-memory filesystem in tests
// without touching disk.
package filesys

import (
	"errors"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

var (
	// ErrIsNotDir is returned when a path that's expected to be (or become)
	// a directory turns out to be a regular file.
	ErrIsNotDir = errors.New("path isn't a directory")
)

// CreateDir creates a directory at the specified path with the given
// permissions. If the directory already exists and force is true, it
// proceeds without error; if force is false, it returns nil without
// touching it.
func CreateDir(fs afero.Fs, dirPath string, permission os.FileMode, force bool) error {
	stat, err := fs.Stat(dirPath)
	if !force && err == nil {
		return err
	}
	if stat != nil && !stat.IsDir() {
		return ErrIsNotDir
	}
	if err := fs.MkdirAll(dirPath, permission); err != nil {
		return err
	}
	return fs.Chmod(dirPath, permission)
}

// Exists reports whether a file or directory exists at the given path.
func Exists(fs afero.Fs, path string) (bool, error) {
	_, err := fs.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// ListDir returns the names of regular files directly inside dir, sorted
// lexicographically. Used by the substrate to enumerate segment files.
func ListDir(fs afero.Fs, dir string) ([]string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Mode().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Join is a thin wrapper over filepath.Join kept here so callers only need
// to import this package for path assembly around the storage directory.
func Join(elem ...string) string {
	return filepath.Join(elem...)
}
