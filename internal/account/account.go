// Package account orchestrates the login/logout lifecycle around sandboxes.
package account

import (
	"fmt"
	"os"
	"time"

	"github.com/zpdzap/swop/internal/authroute"
	"github.com/zpdzap/swop/internal/config"
	"github.com/zpdzap/swop/internal/fsutil"
	"github.com/zpdzap/swop/internal/runner"
	"github.com/zpdzap/swop/internal/sandbox"
)

const logoutTimeout = 30 * time.Second

// Add creates a sandbox and runs an interactive codex login inside it. Any
// failure after the sandbox exists rolls the sandbox back so partial state
// never lingers.
func Add(cfg config.Config, labelText string, r runner.Runner, interactive bool) error {
	if !interactive {
		return fmt.Errorf("swop add requires an interactive terminal to run codex login")
	}

	if _, err := sandbox.Create(cfg, labelText, time.Now()); err != nil {
		return err
	}

	paths, err := sandbox.Resolve(cfg, labelText)
	if err != nil {
		rollback(cfg, labelText)
		return err
	}

	if cfg.Isolation == config.IsolationRelaxed {
		if err := authroute.Route(cfg, labelText); err != nil {
			rollback(cfg, labelText)
			return err
		}
	}

	// Login always runs against the sandbox home so credentials land in the
	// account's own auth file.
	run := r.Run([]string{"login"}, runner.Options{
		Env:         sandbox.SandboxEnv(cfg, paths),
		Interactive: true,
	})
	if run.Err != nil || run.Code != 0 {
		rollback(cfg, labelText)
		return fmt.Errorf("codex login failed")
	}

	auth := fsutil.Lstat(paths.AuthPath)
	if !auth.Exists || !auth.IsFile || auth.IsSymlink {
		rollback(cfg, labelText)
		return fmt.Errorf("codex login did not create auth state")
	}
	return nil
}

// Logout runs codex logout for the account (captured, bounded), removes the
// sandbox, and cleans up any auth route. A failed logout only warns; sandbox
// removal proceeds regardless.
func Logout(cfg config.Config, labelText string, r runner.Runner) (warning string, err error) {
	paths, err := sandbox.Resolve(cfg, labelText)
	if err != nil {
		return "", err
	}
	if !fsutil.Lstat(paths.Root).Exists {
		return "", fmt.Errorf("%w for label: %s", sandbox.ErrNotFound, labelText)
	}

	if cfg.Isolation == config.IsolationRelaxed {
		if err := authroute.Route(cfg, labelText); err != nil {
			return "", err
		}
	}

	run := r.Run([]string{"logout"}, runner.Options{
		Env:     sandbox.SandboxEnv(cfg, paths),
		Timeout: logoutTimeout,
	})
	if run.Err != nil {
		warning = fmt.Sprintf("codex logout failed: %v", run.Err)
	} else if run.Code != 0 {
		warning = "codex logout failed"
	}

	if err := sandbox.Remove(cfg, labelText); err != nil {
		return warning, err
	}
	if cfg.Isolation == config.IsolationRelaxed {
		authroute.Cleanup(cfg, labelText)
	}
	return warning, nil
}

// Relogin runs an explicit interactive login for an existing account.
func Relogin(cfg config.Config, labelText string, r runner.Runner, interactive bool) error {
	paths, err := sandbox.Resolve(cfg, labelText)
	if err != nil {
		return err
	}
	if !fsutil.Lstat(paths.Root).IsDir {
		return fmt.Errorf("unknown account: %s", labelText)
	}

	if !interactive {
		return fmt.Errorf("swop relogin requires an interactive terminal")
	}

	if cfg.Isolation == config.IsolationRelaxed {
		if err := authroute.Route(cfg, labelText); err != nil {
			return err
		}
	}

	run := r.Run([]string{"login"}, runner.Options{
		Env:         sandbox.SandboxEnv(cfg, paths),
		Interactive: true,
	})
	if run.Err != nil {
		return fmt.Errorf("codex login failed: %v", run.Err)
	}
	if run.Code != 0 {
		return fmt.Errorf("codex login failed (exit code %d)", run.Code)
	}
	return nil
}

func rollback(cfg config.Config, labelText string) {
	// Best-effort: the primary signal is the failure that got us here.
	if err := sandbox.Remove(cfg, labelText); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: rollback of %s failed: %v\n", labelText, err)
	}
}
