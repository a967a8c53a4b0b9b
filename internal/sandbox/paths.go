package sandbox

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/zpdzap/swop/internal/config"
	"github.com/zpdzap/swop/internal/label"
)

// ErrUnsafePath is returned when a derived sandbox path would escape the
// accounts root.
var ErrUnsafePath = errors.New("refusing to operate outside the accounts root")

// Paths locates everything belonging to one account's sandbox.
type Paths struct {
	Key       string
	Root      string // <accountsRoot>/<key>
	Home      string // <root>/home
	CodexDir  string // <home>/.codex
	AuthPath  string // <codexDir>/auth.json
	MetaPath  string // <root>/meta.json
	CachePath string // <root>/usage-cache.json
}

// Resolve normalizes the label and computes the sandbox layout, verifying the
// result stays strictly inside the accounts root.
func Resolve(cfg config.Config, labelText string) (Paths, error) {
	key, err := label.Normalize(labelText)
	if err != nil {
		return Paths{}, err
	}

	root := filepath.Join(cfg.AccountsRoot, key)
	if err := ensureInside(cfg.AccountsRoot, root); err != nil {
		return Paths{}, err
	}

	home := filepath.Join(root, "home")
	codexDir := filepath.Join(home, ".codex")
	return Paths{
		Key:       key,
		Root:      root,
		Home:      home,
		CodexDir:  codexDir,
		AuthPath:  filepath.Join(codexDir, "auth.json"),
		MetaPath:  filepath.Join(root, "meta.json"),
		CachePath: filepath.Join(root, "usage-cache.json"),
	}, nil
}

// ensureInside fails unless target is a strict descendant of root.
func ensureInside(root, target string) error {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnsafePath, target)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: %s", ErrUnsafePath, target)
	}
	return nil
}
