package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// IsolationMode selects how the external tool is pointed at an account's
// credentials.
type IsolationMode string

const (
	// IsolationStrict redirects HOME and the XDG variables into the sandbox.
	IsolationStrict IsolationMode = "strict"
	// IsolationRelaxed keeps the ambient environment and routes the real
	// auth file via symlink instead.
	IsolationRelaxed IsolationMode = "relaxed"
)

const (
	configFile = "config.yaml"

	defaultUsageTTL     = 15 * time.Minute
	defaultFailedRetry  = 5 * time.Minute
	defaultFetchTimeout = 2 * time.Second
)

// Config is the immutable process configuration. It is built once in main
// from the environment plus an optional config.yaml in the swop root, and
// threaded through every entry point.
type Config struct {
	// SwopRoot is the tool's state directory (holds accounts/ and config.yaml).
	SwopRoot string
	// AccountsRoot is where per-account sandboxes live.
	AccountsRoot string
	// RealHome is the user's actual home directory ("" if unknown).
	RealHome string

	Isolation IsolationMode

	UsageTTL           time.Duration
	FailedRefreshRetry time.Duration
	FetchTimeout       time.Duration
	UsageDebug         bool

	// Environ is the ambient environment for subprocesses.
	Environ []string
}

// fileConfig is the optional on-disk configuration.
type fileConfig struct {
	IsolationMode   string `yaml:"isolation_mode"`
	UsageTTLMinutes int    `yaml:"usage_ttl_minutes"`
	UsageDebug      bool   `yaml:"usage_debug"`
}

// Load builds the process configuration. Environment variables win over
// config.yaml; defaults fill the rest.
func Load(getenv func(string) string, environ []string) Config {
	swopRoot := resolveSwopRoot(getenv)

	cfg := Config{
		SwopRoot:           swopRoot,
		AccountsRoot:       filepath.Join(swopRoot, "accounts"),
		RealHome:           getenv("HOME"),
		Isolation:          IsolationRelaxed,
		UsageTTL:           defaultUsageTTL,
		FailedRefreshRetry: defaultFailedRetry,
		FetchTimeout:       defaultFetchTimeout,
		Environ:            environ,
	}

	if fc, err := loadFile(filepath.Join(swopRoot, configFile)); err == nil && fc != nil {
		if mode := parseIsolationMode(fc.IsolationMode); mode != "" {
			cfg.Isolation = mode
		}
		if fc.UsageTTLMinutes > 0 {
			cfg.UsageTTL = time.Duration(fc.UsageTTLMinutes) * time.Minute
		}
		cfg.UsageDebug = fc.UsageDebug
	}

	if mode := parseIsolationMode(getenv("SWOP_ISOLATION_MODE")); mode != "" {
		cfg.Isolation = mode
	}
	if v := getenv("SWOP_USAGE_DEBUG"); v == "1" || strings.EqualFold(v, "true") {
		cfg.UsageDebug = true
	}

	return cfg
}

// FromOS loads configuration from the real process environment.
func FromOS() Config {
	return Load(os.Getenv, os.Environ())
}

// Save writes the optional config file into the swop root.
func Save(cfg Config) error {
	fc := fileConfig{
		IsolationMode:   string(cfg.Isolation),
		UsageTTLMinutes: int(cfg.UsageTTL / time.Minute),
		UsageDebug:      cfg.UsageDebug,
	}
	data, err := yaml.Marshal(fc)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.MkdirAll(cfg.SwopRoot, 0o700); err != nil {
		return fmt.Errorf("creating swop root: %w", err)
	}
	return os.WriteFile(filepath.Join(cfg.SwopRoot, configFile), data, 0o600)
}

func loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &fc, nil
}

func parseIsolationMode(raw string) IsolationMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "strict":
		return IsolationStrict
	case "relaxed":
		return IsolationRelaxed
	default:
		return ""
	}
}

// resolveSwopRoot picks the state directory: explicit override, XDG state
// home, real home, then a relative fallback.
func resolveSwopRoot(getenv func(string) string) string {
	if root := getenv("SWOP_ROOT"); root != "" {
		return root
	}
	if stateHome := getenv("XDG_STATE_HOME"); stateHome != "" {
		return filepath.Join(stateHome, "swop")
	}
	if home := getenv("HOME"); home != "" {
		return filepath.Join(home, ".swop")
	}
	return ".swop"
}
