package usage

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"time"

	"github.com/zpdzap/swop/internal/config"
	"github.com/zpdzap/swop/internal/fsutil"
	"github.com/zpdzap/swop/internal/lock"
	"github.com/zpdzap/swop/internal/sandbox"
)

var (
	// ErrCacheMissing means no cache file exists for the account.
	ErrCacheMissing = errors.New("usage cache missing")
	// ErrCacheInvalid means the cache file exists but fails validation.
	ErrCacheInvalid = errors.New("usage cache invalid")
)

// CacheEntry is one account's persisted usage state. FetchedAt records the
// last successful fetch; the two LastRefresh fields record the most recent
// failed attempt, independent of whether a stale success is still served.
type CacheEntry struct {
	FetchedAt            string   `json:"fetched_at"`
	Usage                Snapshot `json:"usage"`
	LastRefreshAttemptAt string   `json:"last_refresh_attempt_at,omitempty"`
	LastRefreshErrorKind string   `json:"last_refresh_error_kind,omitempty"`
}

// cacheFile keeps the usage payload raw so older single-window snapshots can
// be revalidated through Normalize on read.
type cacheFile struct {
	FetchedAt            string          `json:"fetched_at"`
	Usage                json.RawMessage `json:"usage"`
	LastRefreshAttemptAt string          `json:"last_refresh_attempt_at,omitempty"`
	LastRefreshErrorKind string          `json:"last_refresh_error_kind,omitempty"`
}

// ReadCache loads and validates an account's usage cache.
func ReadCache(cfg config.Config, labelText string) (*CacheEntry, error) {
	paths, err := sandbox.Resolve(cfg, labelText)
	if err != nil {
		return nil, err
	}

	if !fsutil.Lstat(paths.CachePath).Exists {
		return nil, ErrCacheMissing
	}

	var cf cacheFile
	if err := fsutil.ReadJSON(paths.CachePath, &cf); err != nil {
		return nil, ErrCacheInvalid
	}
	if cf.FetchedAt == "" || len(cf.Usage) == 0 {
		return nil, ErrCacheInvalid
	}

	snapshot, ok := Normalize(cf.Usage)
	if !ok {
		return nil, ErrCacheInvalid
	}

	return &CacheEntry{
		FetchedAt:            cf.FetchedAt,
		Usage:                *snapshot,
		LastRefreshAttemptAt: cf.LastRefreshAttemptAt,
		LastRefreshErrorKind: cf.LastRefreshErrorKind,
	}, nil
}

// WriteCache persists an account's usage cache atomically, serialized against
// other processes writing the same account.
func WriteCache(cfg config.Config, labelText string, entry CacheEntry) error {
	paths, err := sandbox.Resolve(cfg, labelText)
	if err != nil {
		return err
	}

	release, err := lock.Acquire(filepath.Join(paths.Root, ".cache.lock"))
	if err != nil {
		return err
	}
	defer release()

	return fsutil.WriteJSONAtomic(paths.CachePath, entry)
}

// WithinTTL reports whether a fetch timestamp is still fresh at now. The
// boundary is inclusive: exactly ttl elapsed is still within. Timestamps that
// do not parse are never within TTL.
func WithinTTL(fetchedAt string, now time.Time, ttl time.Duration) bool {
	t, err := time.Parse(time.RFC3339, fetchedAt)
	if err != nil {
		return false
	}
	return now.Sub(t) <= ttl
}
