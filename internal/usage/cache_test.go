package usage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zpdzap/swop/internal/config"
	"github.com/zpdzap/swop/internal/sandbox"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	base := t.TempDir()
	home := filepath.Join(base, "home")
	os.MkdirAll(home, 0o700)
	return config.Load(func(k string) string {
		switch k {
		case "SWOP_ROOT":
			return filepath.Join(base, "swop")
		case "HOME":
			return home
		}
		return ""
	}, nil)
}

func sampleSnapshot() Snapshot {
	return Snapshot{
		PlanType: "plus",
		RateLimit: &RateLimit{
			Allowed:         true,
			LimitReached:    false,
			PrimaryWindow:   Window{UsedPercent: 40, ResetAt: "2026-03-02T00:00:00Z"},
			SecondaryWindow: Window{UsedPercent: 20, ResetAt: "2026-03-08T00:00:00Z"},
		},
	}
}

func TestCacheRoundTrip(t *testing.T) {
	cfg := testConfig(t)

	entry := CacheEntry{
		FetchedAt:            "2026-03-01T12:00:00Z",
		Usage:                sampleSnapshot(),
		LastRefreshAttemptAt: "2026-03-01T12:20:00Z",
		LastRefreshErrorKind: "network",
	}
	if err := WriteCache(cfg, "work", entry); err != nil {
		t.Fatalf("WriteCache: %v", err)
	}

	got, err := ReadCache(cfg, "work")
	if err != nil {
		t.Fatalf("ReadCache: %v", err)
	}
	if got.FetchedAt != entry.FetchedAt {
		t.Errorf("FetchedAt = %q", got.FetchedAt)
	}
	if got.LastRefreshAttemptAt != entry.LastRefreshAttemptAt || got.LastRefreshErrorKind != "network" {
		t.Errorf("bookkeeping = %q/%q", got.LastRefreshAttemptAt, got.LastRefreshErrorKind)
	}
	if got.Usage.RateLimit.SecondaryWindow.UsedPercent != 20 {
		t.Errorf("Usage = %+v", got.Usage)
	}
}

func TestCacheReadMissing(t *testing.T) {
	cfg := testConfig(t)
	if _, err := ReadCache(cfg, "work"); !errors.Is(err, ErrCacheMissing) {
		t.Errorf("want ErrCacheMissing, got %v", err)
	}
}

func TestCacheReadInvalid(t *testing.T) {
	cfg := testConfig(t)
	paths, _ := sandbox.Resolve(cfg, "work")
	os.MkdirAll(paths.Root, 0o700)
	os.WriteFile(paths.CachePath, []byte(`{"fetched_at": "x"}`), 0o600)

	if _, err := ReadCache(cfg, "work"); !errors.Is(err, ErrCacheInvalid) {
		t.Errorf("want ErrCacheInvalid, got %v", err)
	}

	os.WriteFile(paths.CachePath, []byte(`not json`), 0o600)
	if _, err := ReadCache(cfg, "work"); !errors.Is(err, ErrCacheInvalid) {
		t.Errorf("want ErrCacheInvalid, got %v", err)
	}
}

func TestCacheReadDerivesMissingWindow(t *testing.T) {
	cfg := testConfig(t)
	paths, _ := sandbox.Resolve(cfg, "work")
	os.MkdirAll(paths.Root, 0o700)

	// Older payloads stored only the secondary window.
	legacy := `{
		"fetched_at": "2026-03-01T12:00:00Z",
		"usage": {
			"plan_type": "plus",
			"rate_limit": {
				"allowed": true,
				"limit_reached": false,
				"secondary_window": {"used_percent": 15, "reset_at": "2026-03-08T00:00:00Z"}
			}
		}
	}`
	os.WriteFile(paths.CachePath, []byte(legacy), 0o600)

	entry, err := ReadCache(cfg, "work")
	if err != nil {
		t.Fatalf("ReadCache: %v", err)
	}
	if entry.Usage.RateLimit.PrimaryWindow.UsedPercent != 15 {
		t.Errorf("primary not derived: %+v", entry.Usage.RateLimit)
	}
}

func TestWithinTTLBoundary(t *testing.T) {
	fetched := "2026-03-01T12:00:00Z"
	base, _ := time.Parse(time.RFC3339, fetched)
	ttl := 15 * time.Minute

	if !WithinTTL(fetched, base.Add(ttl), ttl) {
		t.Error("exactly ttl elapsed must still be within")
	}
	if WithinTTL(fetched, base.Add(ttl+time.Millisecond), ttl) {
		t.Error("ttl exceeded by 1ms must be outside")
	}
	if WithinTTL("garbage", base, ttl) {
		t.Error("unparseable timestamp must never be within TTL")
	}
}
