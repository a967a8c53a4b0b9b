// Package lock provides advisory cross-process file locks. Each mutable
// shared resource (sandbox creation, the auth-route swap, a sandbox's usage
// cache) takes its own lock file and holds it only across the mutation.
package lock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Acquire takes an exclusive advisory lock on path, blocking until it is
// available. The returned release function unlocks and closes the lock file.
func Acquire(path string) (release func(), err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating lock dir: %w", err)
	}

	fl := flock.New(path)
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("acquiring lock %s: %w", path, err)
	}

	return func() {
		// Release failures leave an flock that dies with the process anyway.
		_ = fl.Unlock()
	}, nil
}
