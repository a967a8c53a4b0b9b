package usage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/zpdzap/swop/internal/config"
)

// Client composes token read, live fetch, and the cache into one
// "get current usage, possibly stale" operation.
type Client struct {
	cfg   config.Config
	fetch FetchFunc
	now   func() time.Time
}

// Result is a successful (possibly stale) usage lookup.
type Result struct {
	Usage     Snapshot
	Freshness Freshness
	Warning   *Warning
}

// NewClient builds a usage client over the real fetcher and clock.
func NewClient(cfg config.Config) *Client {
	return &Client{cfg: cfg, fetch: Fetch, now: time.Now}
}

// NewClientWith builds a client with injected fetch and clock, for tests and
// composition.
func NewClientWith(cfg config.Config, fetch FetchFunc, now func() time.Time) *Client {
	return &Client{cfg: cfg, fetch: fetch, now: now}
}

// Get returns the account's usage snapshot. Within-TTL cache hits are served
// fresh; a recent failed refresh serves stale without touching the endpoint;
// otherwise a live fetch runs, absorbing failures into "stale plus warning"
// whenever any cached value exists.
func (c *Client) Get(labelText string, forceRefresh bool) (*Result, error) {
	now := c.now()

	entry, cacheErr := ReadCache(c.cfg, labelText)
	cached := cacheErr == nil
	if !cached && !errors.Is(cacheErr, ErrCacheMissing) && !errors.Is(cacheErr, ErrCacheInvalid) {
		return nil, cacheErr
	}

	if !forceRefresh && cached && WithinTTL(entry.FetchedAt, now, c.cfg.UsageTTL) {
		c.debugf("%s: cache hit (age %ds)", labelText, ageSeconds(entry.FetchedAt, now))
		return c.result(entry, now, false, nil), nil
	}

	// A refresh that just failed is not retried on every invocation; serve
	// stale until the cool-down passes.
	if !forceRefresh && cached && entry.LastRefreshAttemptAt != "" &&
		WithinTTL(entry.LastRefreshAttemptAt, now, c.cfg.FailedRefreshRetry) {
		kind := Kind(entry.LastRefreshErrorKind)
		if kind == "" {
			kind = KindNetwork
		}
		c.debugf("%s: refresh cool-down active, serving stale", labelText)
		return c.result(entry, now, true, &Warning{
			Kind:    kind,
			Message: fmt.Sprintf("usage refresh recently failed (%s); serving cached data", kind),
		}), nil
	}

	token, err := ReadAccessToken(c.cfg, labelText)
	if err != nil {
		var ue *Error
		if !errors.As(err, &ue) {
			return nil, err
		}
		if cached {
			c.recordFailedAttempt(labelText, entry, now, ue.Kind)
			return c.result(entry, now, true, &Warning{Kind: ue.Kind, Message: ue.Message}), nil
		}
		return nil, ue
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.FetchTimeout)
	defer cancel()

	snapshot, err := c.fetch(ctx, token)
	if err == nil {
		fresh := CacheEntry{
			FetchedAt: now.UTC().Format(time.RFC3339),
			Usage:     *snapshot,
		}
		if werr := WriteCache(c.cfg, labelText, fresh); werr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to persist usage cache for %s: %v\n", labelText, werr)
		}
		c.debugf("%s: live fetch ok", labelText)
		return c.result(&fresh, now, false, nil), nil
	}

	var ue *Error
	if !errors.As(err, &ue) {
		ue = &Error{Kind: KindNetwork, Message: err.Error()}
	}
	c.debugf("%s: live fetch failed (%s)", labelText, ue.Kind)

	if cached {
		c.recordFailedAttempt(labelText, entry, now, ue.Kind)
		return c.result(entry, now, true, &Warning{Kind: ue.Kind, Message: ue.Message}), nil
	}
	return nil, ue
}

// recordFailedAttempt persists failed-refresh bookkeeping onto the existing
// cached value; the last good snapshot is never discarded.
func (c *Client) recordFailedAttempt(labelText string, entry *CacheEntry, now time.Time, kind Kind) {
	updated := *entry
	updated.LastRefreshAttemptAt = now.UTC().Format(time.RFC3339)
	updated.LastRefreshErrorKind = string(kind)
	if err := WriteCache(c.cfg, labelText, updated); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to record usage refresh failure for %s: %v\n", labelText, err)
	}
}

func (c *Client) result(entry *CacheEntry, now time.Time, stale bool, warning *Warning) *Result {
	return &Result{
		Usage: entry.Usage,
		Freshness: Freshness{
			FetchedAt:  entry.FetchedAt,
			Stale:      stale,
			AgeSeconds: ageSeconds(entry.FetchedAt, now),
		},
		Warning: warning,
	}
}

func (c *Client) debugf(format string, args ...any) {
	if c.cfg.UsageDebug {
		fmt.Fprintf(os.Stderr, "usage: "+format+"\n", args...)
	}
}

func ageSeconds(fetchedAt string, now time.Time) int {
	t, err := time.Parse(time.RFC3339, fetchedAt)
	if err != nil {
		return 0
	}
	age := int(now.Sub(t) / time.Second)
	if age < 0 {
		return 0
	}
	return age
}
