package sandbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zpdzap/swop/internal/config"
	"github.com/zpdzap/swop/internal/fsutil"
	"github.com/zpdzap/swop/internal/lock"
)

var (
	// ErrExists is returned when a sandbox already occupies the label's key.
	ErrExists = errors.New("sandbox already exists")
	// ErrNotFound is returned when no sandbox exists for the label.
	ErrNotFound = errors.New("sandbox not found")
)

// Create builds a new account sandbox: the directory tree, the shared .codex
// entries, and the metadata file. Uniqueness is enforced on the normalized
// key, so two labels that collide case-insensitively surface ErrExists here.
func Create(cfg config.Config, labelText string, now time.Time) (Meta, error) {
	paths, err := Resolve(cfg, labelText)
	if err != nil {
		return Meta{}, err
	}

	if err := fsutil.MkdirPrivate(cfg.AccountsRoot); err != nil {
		return Meta{}, err
	}

	release, err := lock.Acquire(filepath.Join(cfg.AccountsRoot, ".create.lock"))
	if err != nil {
		return Meta{}, err
	}
	defer release()

	if fsutil.Lstat(paths.MetaPath).Exists {
		return Meta{}, fmt.Errorf("%w for label: %s", ErrExists, labelText)
	}

	if err := fsutil.MkdirPrivate(paths.Root); err != nil {
		return Meta{}, err
	}
	if err := fsutil.MkdirPrivate(paths.Home); err != nil {
		return Meta{}, err
	}

	realCodex := filepath.Join(cfg.RealHome, ".codex")
	if err := PopulateShared(realCodex, paths.CodexDir); err != nil {
		return Meta{}, err
	}

	meta := Meta{
		SchemaVersion: MetaSchemaVersion,
		Label:         labelText,
		LabelKey:      paths.Key,
		CreatedAt:     now.UTC().Format(time.RFC3339),
	}
	if err := fsutil.WriteJSONAtomic(paths.MetaPath, meta); err != nil {
		return Meta{}, err
	}
	return meta, nil
}

// List returns metadata for every sandbox under the accounts root. A missing
// root yields an empty list. Corrupt entries are skipped with a warning so
// one broken sandbox cannot hide the rest.
func List(cfg config.Config) ([]Meta, error) {
	entries, err := os.ReadDir(cfg.AccountsRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading accounts root: %w", err)
	}

	var metas []Meta
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		metaPath := filepath.Join(cfg.AccountsRoot, entry.Name(), "meta.json")
		if !fsutil.Lstat(metaPath).Exists {
			continue
		}

		var meta Meta
		if err := fsutil.ReadJSON(metaPath, &meta); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping corrupt sandbox %s: %v\n", entry.Name(), err)
			continue
		}
		if err := meta.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping corrupt sandbox %s: %v\n", entry.Name(), err)
			continue
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

// Remove deletes an account's whole sandbox tree.
func Remove(cfg config.Config, labelText string) error {
	paths, err := Resolve(cfg, labelText)
	if err != nil {
		return err
	}
	if !fsutil.Lstat(paths.Root).Exists {
		return fmt.Errorf("%w for label: %s", ErrNotFound, labelText)
	}
	return fsutil.RemoveTree(paths.Root)
}

// TouchLastUsedAt records intent-to-use on the metadata file. A schema or
// key mismatch is an integrity error, never silently patched.
func TouchLastUsedAt(cfg config.Config, labelText string, now time.Time) error {
	paths, err := Resolve(cfg, labelText)
	if err != nil {
		return err
	}

	var meta Meta
	if err := fsutil.ReadJSON(paths.MetaPath, &meta); err != nil {
		return err
	}
	if err := meta.Validate(); err != nil {
		return err
	}
	if meta.LabelKey != paths.Key {
		return fmt.Errorf("sandbox metadata label mismatch: %s vs %s", meta.LabelKey, paths.Key)
	}

	meta.LastUsedAt = now.UTC().Format(time.RFC3339)
	return fsutil.WriteJSONAtomic(paths.MetaPath, meta)
}
