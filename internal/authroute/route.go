// Package authroute redirects the real-home codex credential file to a
// specific account's sandbox via symlink. It never touches sandbox internals
// except as a link target; the one plain file it may move is preserved in a
// sibling backup exactly once.
package authroute

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zpdzap/swop/internal/config"
	"github.com/zpdzap/swop/internal/fsutil"
	"github.com/zpdzap/swop/internal/lock"
	"github.com/zpdzap/swop/internal/sandbox"
)

const (
	authFileName   = "auth.json"
	backupFileName = "auth.json.swop-backup"
	lockFileName   = ".swop-route.lock"
)

// ErrNoRealHome is returned when relaxed routing cannot locate the real home.
var ErrNoRealHome = errors.New("cannot resolve real HOME for relaxed auth routing")

// Route points the real auth file at the given account's credentials.
// Idempotent: an already-correct symlink is a no-op. A plain file found at
// the real path is backed up once; with a backup already present it is
// discarded, never overwriting the original.
func Route(cfg config.Config, labelText string) error {
	if cfg.RealHome == "" {
		return ErrNoRealHome
	}

	paths, err := sandbox.Resolve(cfg, labelText)
	if err != nil {
		return err
	}

	realCodexDir := filepath.Join(cfg.RealHome, ".codex")
	realAuthPath := filepath.Join(realCodexDir, authFileName)
	backupPath := filepath.Join(realCodexDir, backupFileName)

	if err := fsutil.MkdirPrivate(realCodexDir); err != nil {
		return err
	}
	if err := fsutil.MkdirPrivate(paths.CodexDir); err != nil {
		return err
	}

	release, err := lock.Acquire(filepath.Join(realCodexDir, lockFileName))
	if err != nil {
		return err
	}
	defer release()

	info := fsutil.Lstat(realAuthPath)
	if info.Exists {
		if info.IsSymlink {
			target, err := resolveLinkTarget(realAuthPath)
			if err == nil && target == filepath.Clean(paths.AuthPath) {
				return nil
			}
			if err := os.Remove(realAuthPath); err != nil {
				return fmt.Errorf("removing stale auth link: %w", err)
			}
		} else {
			if fsutil.Lstat(backupPath).Exists {
				if err := os.Remove(realAuthPath); err != nil {
					return fmt.Errorf("discarding auth file: %w", err)
				}
			} else if err := os.Rename(realAuthPath, backupPath); err != nil {
				return fmt.Errorf("backing up auth file: %w", err)
			}
		}
	}

	if err := os.Symlink(paths.AuthPath, realAuthPath); err != nil {
		return fmt.Errorf("routing auth to %s: %w", paths.Key, err)
	}
	return nil
}

// Cleanup undoes a route previously made for this account: it removes the
// symlink and restores the backup, but only when the link actually points at
// this account, so another account's active route is left alone. Best-effort
// throughout; the caller's primary operation must never be blocked by it.
func Cleanup(cfg config.Config, labelText string) {
	if cfg.RealHome == "" {
		return
	}

	paths, err := sandbox.Resolve(cfg, labelText)
	if err != nil {
		return
	}

	realCodexDir := filepath.Join(cfg.RealHome, ".codex")
	realAuthPath := filepath.Join(realCodexDir, authFileName)
	backupPath := filepath.Join(realCodexDir, backupFileName)

	info := fsutil.Lstat(realAuthPath)
	if !info.Exists || !info.IsSymlink {
		return
	}

	release, err := lock.Acquire(filepath.Join(realCodexDir, lockFileName))
	if err != nil {
		return
	}
	defer release()

	target, err := resolveLinkTarget(realAuthPath)
	if err != nil || target != filepath.Clean(paths.AuthPath) {
		return
	}

	if err := os.Remove(realAuthPath); err != nil {
		return
	}
	if fsutil.Lstat(backupPath).Exists {
		_ = os.Rename(backupPath, realAuthPath)
	}
}

// resolveLinkTarget reads a symlink and normalizes relative targets against
// the link's own directory.
func resolveLinkTarget(linkPath string) (string, error) {
	value, err := os.Readlink(linkPath)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(value) {
		return filepath.Clean(value), nil
	}
	return filepath.Clean(filepath.Join(filepath.Dir(linkPath), value)), nil
}
