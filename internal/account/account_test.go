package account

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zpdzap/swop/internal/config"
	"github.com/zpdzap/swop/internal/fsutil"
	"github.com/zpdzap/swop/internal/runner"
	"github.com/zpdzap/swop/internal/sandbox"
)

// fakeRunner scripts codex outcomes and records invocations.
type fakeRunner struct {
	code         int
	err          error
	onLogin      func(opts runner.Options)
	calls        [][]string
	capturedOpts []runner.Options
}

func (f *fakeRunner) Run(args []string, opts runner.Options) runner.Run {
	f.calls = append(f.calls, args)
	f.capturedOpts = append(f.capturedOpts, opts)
	if len(args) > 0 && args[0] == "login" && f.onLogin != nil {
		f.onLogin(opts)
	}
	return runner.Run{Code: f.code, Err: f.err}
}

func testConfig(t *testing.T, extra map[string]string) config.Config {
	t.Helper()
	base := t.TempDir()
	home := filepath.Join(base, "home")
	os.MkdirAll(home, 0o700)
	return config.Load(func(k string) string {
		if v, ok := extra[k]; ok {
			return v
		}
		switch k {
		case "SWOP_ROOT":
			return filepath.Join(base, "swop")
		case "HOME":
			return home
		}
		return ""
	}, []string{"HOME=" + home, "PATH=/usr/bin"})
}

// loginWritesAuth simulates codex login creating auth.json in the sandbox.
func loginWritesAuth(t *testing.T, cfg config.Config, labelText string) func(runner.Options) {
	return func(runner.Options) {
		paths, err := sandbox.Resolve(cfg, labelText)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		os.MkdirAll(paths.CodexDir, 0o700)
		os.WriteFile(paths.AuthPath, []byte(`{"tokens":{"access_token":"t"}}`), 0o600)
	}
}

func TestAddSuccess(t *testing.T) {
	cfg := testConfig(t, nil)
	r := &fakeRunner{onLogin: loginWritesAuth(t, cfg, "work")}

	if err := Add(cfg, "work", r, true); err != nil {
		t.Fatalf("Add: %v", err)
	}

	metas, _ := sandbox.List(cfg)
	if len(metas) != 1 || metas[0].LabelKey != "work" {
		t.Errorf("List = %+v", metas)
	}
	if len(r.calls) != 1 || r.calls[0][0] != "login" {
		t.Errorf("calls = %v", r.calls)
	}
	if !r.capturedOpts[0].Interactive {
		t.Error("login must inherit the terminal")
	}

	// Login env must point HOME into the sandbox.
	paths, _ := sandbox.Resolve(cfg, "work")
	foundHome := false
	for _, kv := range r.capturedOpts[0].Env {
		if kv == "HOME="+paths.Home {
			foundHome = true
		}
	}
	if !foundHome {
		t.Errorf("login env missing sandbox HOME: %v", r.capturedOpts[0].Env)
	}
}

func TestAddRequiresTTY(t *testing.T) {
	cfg := testConfig(t, nil)
	if err := Add(cfg, "work", &fakeRunner{}, false); err == nil {
		t.Error("Add without a TTY must fail")
	}
	if metas, _ := sandbox.List(cfg); len(metas) != 0 {
		t.Error("no sandbox should exist")
	}
}

func TestAddRollsBackOnLoginFailure(t *testing.T) {
	cfg := testConfig(t, nil)
	r := &fakeRunner{code: 1}

	err := Add(cfg, "work", r, true)
	if err == nil || !strings.Contains(err.Error(), "login failed") {
		t.Fatalf("err = %v", err)
	}
	if metas, _ := sandbox.List(cfg); len(metas) != 0 {
		t.Error("failed add must remove the sandbox")
	}
}

func TestAddRollsBackWhenAuthMissing(t *testing.T) {
	cfg := testConfig(t, nil)
	r := &fakeRunner{} // exit 0 but never writes auth.json

	err := Add(cfg, "work", r, true)
	if err == nil || !strings.Contains(err.Error(), "did not create auth state") {
		t.Fatalf("err = %v", err)
	}
	if metas, _ := sandbox.List(cfg); len(metas) != 0 {
		t.Error("failed add must remove the sandbox")
	}
}

func TestAddDuplicate(t *testing.T) {
	cfg := testConfig(t, nil)
	r := &fakeRunner{onLogin: loginWritesAuth(t, cfg, "work")}
	if err := Add(cfg, "work", r, true); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := Add(cfg, "WORK", r, true); !errors.Is(err, sandbox.ErrExists) {
		t.Errorf("want ErrExists, got %v", err)
	}
}

func TestLogoutRemovesSandboxDespiteFailedLogout(t *testing.T) {
	cfg := testConfig(t, map[string]string{"SWOP_ISOLATION_MODE": "strict"})
	r := &fakeRunner{onLogin: loginWritesAuth(t, cfg, "work")}
	if err := Add(cfg, "work", r, true); err != nil {
		t.Fatalf("Add: %v", err)
	}

	r.code = 3 // codex logout fails
	warning, err := Logout(cfg, "work", r)
	if err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if warning == "" {
		t.Error("failed codex logout should produce a warning")
	}
	if metas, _ := sandbox.List(cfg); len(metas) != 0 {
		t.Error("sandbox must be removed even when codex logout fails")
	}
}

func TestLogoutUnknownAccount(t *testing.T) {
	cfg := testConfig(t, nil)
	if _, err := Logout(cfg, "ghost", &fakeRunner{}); !errors.Is(err, sandbox.ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}

func TestLogoutRestoresAuthRoute(t *testing.T) {
	cfg := testConfig(t, nil) // relaxed by default
	realCodex := filepath.Join(cfg.RealHome, ".codex")
	os.MkdirAll(realCodex, 0o700)
	original := []byte(`{"tokens":{"access_token":"orig"}}`)
	os.WriteFile(filepath.Join(realCodex, "auth.json"), original, 0o600)

	r := &fakeRunner{onLogin: loginWritesAuth(t, cfg, "work")}
	if err := Add(cfg, "work", r, true); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if _, err := Logout(cfg, "work", r); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	realAuth := filepath.Join(realCodex, "auth.json")
	info := fsutil.Lstat(realAuth)
	if !info.IsFile || info.IsSymlink {
		t.Fatalf("real auth not restored: %+v", info)
	}
	data, _ := os.ReadFile(realAuth)
	if string(data) != string(original) {
		t.Errorf("restored content = %q", data)
	}
}

func TestReloginUnknownAccount(t *testing.T) {
	cfg := testConfig(t, nil)
	if err := Relogin(cfg, "ghost", &fakeRunner{}, true); err == nil {
		t.Error("relogin of unknown account must fail")
	}
}

func TestReloginRequiresTTY(t *testing.T) {
	cfg := testConfig(t, map[string]string{"SWOP_ISOLATION_MODE": "strict"})
	r := &fakeRunner{onLogin: loginWritesAuth(t, cfg, "work")}
	if err := Add(cfg, "work", r, true); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := Relogin(cfg, "work", r, false); err == nil {
		t.Error("relogin without a TTY must fail")
	}
}
