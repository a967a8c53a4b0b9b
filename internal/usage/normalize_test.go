package usage

import "testing"

func TestNormalizeFullSnapshot(t *testing.T) {
	raw := []byte(`{
		"plan_type": "plus",
		"rate_limit": {
			"allowed": true,
			"limit_reached": false,
			"primary_window": {"used_percent": 42.5, "reset_at": "2026-03-02T00:00:00Z"},
			"secondary_window": {"used_percent": 10, "reset_at": "2026-03-08T00:00:00Z"}
		}
	}`)

	snap, ok := Normalize(raw)
	if !ok {
		t.Fatal("Normalize failed")
	}
	if snap.PlanType != "plus" {
		t.Errorf("PlanType = %q", snap.PlanType)
	}
	rl := snap.RateLimit
	if rl == nil || !rl.Allowed || rl.LimitReached {
		t.Fatalf("RateLimit = %+v", rl)
	}
	if rl.PrimaryWindow.UsedPercent != 42.5 || rl.PrimaryWindow.ResetAt != "2026-03-02T00:00:00Z" {
		t.Errorf("PrimaryWindow = %+v", rl.PrimaryWindow)
	}
	if rl.SecondaryWindow.UsedPercent != 10 {
		t.Errorf("SecondaryWindow = %+v", rl.SecondaryWindow)
	}
}

func TestNormalizeNullRateLimit(t *testing.T) {
	snap, ok := Normalize([]byte(`{"plan_type": "free", "rate_limit": null}`))
	if !ok {
		t.Fatal("Normalize failed")
	}
	if snap.RateLimit != nil {
		t.Errorf("RateLimit = %+v, want nil", snap.RateLimit)
	}
}

func TestNormalizeEpochResetAt(t *testing.T) {
	raw := []byte(`{
		"plan_type": "plus",
		"rate_limit": {
			"allowed": true,
			"limit_reached": false,
			"secondary_window": {"used_percent": 5, "reset_at": 1772064000}
		}
	}`)

	snap, ok := Normalize(raw)
	if !ok {
		t.Fatal("Normalize failed")
	}
	got := snap.RateLimit.SecondaryWindow.ResetAt
	if got != "2026-02-26T00:00:00Z" {
		t.Errorf("ResetAt = %q", got)
	}
}

func TestNormalizeMissingWindowFilledFromOther(t *testing.T) {
	onlySecondary := []byte(`{
		"plan_type": "plus",
		"rate_limit": {
			"allowed": true,
			"limit_reached": false,
			"secondary_window": {"used_percent": 30, "reset_at": "2026-03-08T00:00:00Z"}
		}
	}`)
	snap, ok := Normalize(onlySecondary)
	if !ok {
		t.Fatal("Normalize failed")
	}
	if snap.RateLimit.PrimaryWindow != snap.RateLimit.SecondaryWindow {
		t.Errorf("primary should mirror secondary: %+v", snap.RateLimit)
	}

	onlyPrimary := []byte(`{
		"plan_type": "plus",
		"rate_limit": {
			"allowed": true,
			"limit_reached": false,
			"primary_window": {"used_percent": 30, "reset_at": "2026-03-02T00:00:00Z"}
		}
	}`)
	snap, ok = Normalize(onlyPrimary)
	if !ok {
		t.Fatal("Normalize failed")
	}
	if snap.RateLimit.SecondaryWindow != snap.RateLimit.PrimaryWindow {
		t.Errorf("secondary should mirror primary: %+v", snap.RateLimit)
	}
}

func TestNormalizeRejects(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `{{`},
		{"not object", `[1,2]`},
		{"missing plan_type", `{"rate_limit": null}`},
		{"plan_type wrong type", `{"plan_type": 3, "rate_limit": null}`},
		{"missing rate_limit", `{"plan_type": "plus"}`},
		{"rate_limit wrong type", `{"plan_type": "plus", "rate_limit": 5}`},
		{"missing allowed", `{"plan_type": "plus", "rate_limit": {"limit_reached": false, "secondary_window": {"used_percent": 1, "reset_at": "2026-03-08T00:00:00Z"}}}`},
		{"no windows", `{"plan_type": "plus", "rate_limit": {"allowed": true, "limit_reached": false}}`},
		{"window missing used_percent", `{"plan_type": "plus", "rate_limit": {"allowed": true, "limit_reached": false, "secondary_window": {"reset_at": "2026-03-08T00:00:00Z"}}}`},
		{"window missing reset_at", `{"plan_type": "plus", "rate_limit": {"allowed": true, "limit_reached": false, "secondary_window": {"used_percent": 1}}}`},
		{"reset_at wrong type", `{"plan_type": "plus", "rate_limit": {"allowed": true, "limit_reached": false, "secondary_window": {"used_percent": 1, "reset_at": true}}}`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, ok := Normalize([]byte(c.raw)); ok {
				t.Errorf("Normalize accepted %s", c.raw)
			}
		})
	}
}
