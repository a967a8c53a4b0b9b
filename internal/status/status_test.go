package status

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/zpdzap/swop/internal/config"
	"github.com/zpdzap/swop/internal/sandbox"
	"github.com/zpdzap/swop/internal/usage"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedDeps(metas []sandbox.Meta, get func(string, bool) (*usage.Result, error)) Deps {
	return Deps{
		Cfg:      config.Config{},
		List:     func(config.Config) ([]sandbox.Meta, error) { return metas, nil },
		GetUsage: get,
		Now:      func() time.Time { return testNow },
	}
}

func result(plan string, rl *usage.RateLimit, fresh usage.Freshness) *usage.Result {
	return &usage.Result{
		Usage:     usage.Snapshot{PlanType: plan, RateLimit: rl},
		Freshness: fresh,
	}
}

func TestRenderNoAccounts(t *testing.T) {
	d := fixedDeps(nil, nil)
	out, err := d.Render(false)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "No accounts") {
		t.Errorf("out = %q", out)
	}
}

func TestRenderCard(t *testing.T) {
	metas := []sandbox.Meta{{SchemaVersion: 1, Label: "work", LabelKey: "work"}}
	d := fixedDeps(metas, func(label string, force bool) (*usage.Result, error) {
		return result("plus", &usage.RateLimit{
			Allowed:         true,
			PrimaryWindow:   usage.Window{UsedPercent: 30, ResetAt: "2026-03-01T14:10:00Z"},
			SecondaryWindow: usage.Window{UsedPercent: 60, ResetAt: "2026-03-06T15:00:00Z"},
		}, usage.Freshness{}), nil
	})

	out, err := d.Render(false)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{"work", "(plus)", "70% left", "40% left", "resets in 2h 10m", "resets in 5d 3h"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "BLOCKED") || strings.Contains(out, "stale") {
		t.Errorf("unexpected markers in:\n%s", out)
	}
}

func TestRenderBlockedAndStale(t *testing.T) {
	metas := []sandbox.Meta{{SchemaVersion: 1, Label: "work", LabelKey: "work"}}
	d := fixedDeps(metas, func(string, bool) (*usage.Result, error) {
		res := result("plus", &usage.RateLimit{
			Allowed:         true,
			LimitReached:    true,
			PrimaryWindow:   usage.Window{UsedPercent: 100, ResetAt: "2026-03-01T14:00:00Z"},
			SecondaryWindow: usage.Window{UsedPercent: 100, ResetAt: "2026-03-02T14:00:00Z"},
		}, usage.Freshness{Stale: true, AgeSeconds: 420})
		res.Warning = &usage.Warning{Kind: usage.KindNetwork, Message: "connect refused"}
		return res, nil
	})

	out, err := d.Render(false)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{"BLOCKED", "fetched 7m ago", "last refresh failed (network)"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestRenderCollapsesIdenticalWindows(t *testing.T) {
	metas := []sandbox.Meta{{SchemaVersion: 1, Label: "free", LabelKey: "free"}}
	d := fixedDeps(metas, func(string, bool) (*usage.Result, error) {
		w := usage.Window{UsedPercent: 25, ResetAt: "2026-03-01T16:00:00Z"}
		return result("free", &usage.RateLimit{
			Allowed: true, PrimaryWindow: w, SecondaryWindow: w,
		}, usage.Freshness{}), nil
	})

	out, err := d.Render(false)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := strings.Count(out, "75% left"); got != 1 {
		t.Errorf("identical windows rendered %d times:\n%s", got, out)
	}
}

func TestRenderPerAccountError(t *testing.T) {
	metas := []sandbox.Meta{
		{SchemaVersion: 1, Label: "bad", LabelKey: "bad"},
		{SchemaVersion: 1, Label: "good", LabelKey: "good"},
	}
	d := fixedDeps(metas, func(label string, force bool) (*usage.Result, error) {
		if label == "bad" {
			return nil, &usage.Error{Kind: usage.KindAuth, Message: "no token"}
		}
		return result("plus", &usage.RateLimit{
			Allowed:         true,
			PrimaryWindow:   usage.Window{UsedPercent: 10, ResetAt: "2026-03-01T13:00:00Z"},
			SecondaryWindow: usage.Window{UsedPercent: 10, ResetAt: "2026-03-05T13:00:00Z"},
		}, usage.Freshness{}), nil
	})

	out, err := d.Render(false)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "usage unavailable") || !strings.Contains(out, "90% left") {
		t.Errorf("out = %q", out)
	}
}

func TestRenderForwardsRefresh(t *testing.T) {
	metas := []sandbox.Meta{{SchemaVersion: 1, Label: "work", LabelKey: "work"}}
	var sawForce bool
	d := fixedDeps(metas, func(label string, force bool) (*usage.Result, error) {
		sawForce = force
		return nil, fmt.Errorf("boom")
	})
	if _, err := d.Render(true); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !sawForce {
		t.Error("refresh flag not forwarded to the usage client")
	}
}

func TestRelativeReset(t *testing.T) {
	cases := []struct {
		resetAt string
		want    string
	}{
		{"2026-03-03T15:30:00Z", "2d 3h"},
		{"2026-03-01T13:45:00Z", "1h 45m"},
		{"2026-03-01T12:20:00Z", "20m"},
		{"2026-03-01T11:00:00Z", ""},
		{"not-a-time", ""},
	}
	for _, tc := range cases {
		if got := relativeReset(tc.resetAt, testNow); got != tc.want {
			t.Errorf("relativeReset(%q) = %q, want %q", tc.resetAt, got, tc.want)
		}
	}
}
