package fsutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Info is a non-throwing lstat summary.
type Info struct {
	Exists    bool
	IsFile    bool
	IsDir     bool
	IsSymlink bool
}

// Lstat inspects a path without following symlinks. A missing path yields the
// zero Info rather than an error.
func Lstat(path string) Info {
	st, err := os.Lstat(path)
	if err != nil {
		return Info{}
	}
	return Info{
		Exists:    true,
		IsFile:    st.Mode().IsRegular(),
		IsDir:     st.IsDir(),
		IsSymlink: st.Mode()&os.ModeSymlink != 0,
	}
}

// MkdirPrivate creates a directory (and parents) with owner-only permissions.
// The explicit chmod covers pre-existing directories and umask interference.
func MkdirPrivate(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o700); err != nil {
		return fmt.Errorf("restricting %s: %w", path, err)
	}
	return nil
}

// WriteFileAtomic writes content to a temp file with 0600 permissions and
// renames it into place, so readers never observe a partial write.
func WriteFileAtomic(path string, data []byte) error {
	if err := MkdirPrivate(filepath.Dir(path)); err != nil {
		return err
	}

	tmp := fmt.Sprintf("%s.tmp-%s", path, uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Chmod(tmp, 0o600); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("restricting %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}

// WriteJSONAtomic marshals v with indentation and writes it atomically.
func WriteJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	return WriteFileAtomic(path, data)
}

// ReadJSON reads and unmarshals a JSON file into v.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// RemoveTree deletes a path recursively. Missing paths are not an error.
func RemoveTree(path string) error {
	return os.RemoveAll(path)
}
