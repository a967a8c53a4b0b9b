package sandbox

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zpdzap/swop/internal/fsutil"
)

// authFileName is the one .codex entry that is never shared between the real
// home and a sandbox: each account owns its own.
const authFileName = "auth.json"

// PopulateShared symlinks every entry of the real .codex directory into the
// sandbox's .codex directory, except the auth file. A pre-existing entry that
// is not a symlink to the expected source is a fatal conflict.
func PopulateShared(realCodexDir, sandboxCodexDir string) error {
	if err := fsutil.MkdirPrivate(sandboxCodexDir); err != nil {
		return err
	}

	entries, err := os.ReadDir(realCodexDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", realCodexDir, err)
	}

	for _, entry := range entries {
		if entry.Name() == authFileName {
			continue
		}

		source := filepath.Join(realCodexDir, entry.Name())
		target := filepath.Join(sandboxCodexDir, entry.Name())

		existing := fsutil.Lstat(target)
		if existing.Exists {
			if existing.IsSymlink {
				if current, err := os.Readlink(target); err == nil && current == source {
					continue
				}
			}
			return fmt.Errorf("sandbox .codex entry already exists and does not point to shared target: %s", entry.Name())
		}

		if err := os.Symlink(source, target); err != nil {
			return fmt.Errorf("sharing %s: %w", entry.Name(), err)
		}
	}
	return nil
}
