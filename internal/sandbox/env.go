package sandbox

import (
	"path/filepath"
	"strings"

	"github.com/zpdzap/swop/internal/config"
)

// ScopedEnv builds the subprocess environment for the external tool under the
// given isolation mode. Relaxed mode passes the ambient environment through
// untouched; strict mode redirects HOME and the XDG base directories into the
// sandbox so the tool never sees the real home.
func ScopedEnv(cfg config.Config, p Paths) []string {
	if cfg.Isolation == config.IsolationRelaxed {
		return cfg.Environ
	}
	return SandboxEnv(cfg, p)
}

// SandboxEnv always redirects into the sandbox regardless of isolation mode.
// Login flows use it so credentials land in the sandbox's auth file.
func SandboxEnv(cfg config.Config, p Paths) []string {
	return overlay(cfg.Environ, map[string]string{
		"HOME":            p.Home,
		"XDG_CONFIG_HOME": filepath.Join(p.Root, "xdg", "config"),
		"XDG_STATE_HOME":  filepath.Join(p.Root, "xdg", "state"),
		"XDG_DATA_HOME":   filepath.Join(p.Root, "xdg", "data"),
		"XDG_CACHE_HOME":  filepath.Join(p.Root, "xdg", "cache"),
	})
}

func overlay(base []string, overrides map[string]string) []string {
	out := make([]string, 0, len(base)+len(overrides))
	seen := make(map[string]bool, len(overrides))

	for _, kv := range base {
		key, _, ok := strings.Cut(kv, "=")
		if ok {
			if v, hit := overrides[key]; hit {
				out = append(out, key+"="+v)
				seen[key] = true
				continue
			}
		}
		out = append(out, kv)
	}

	for key, v := range overrides {
		if !seen[key] {
			out = append(out, key+"="+v)
		}
	}
	return out
}
