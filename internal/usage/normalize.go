package usage

import (
	"encoding/json"
	"math"
	"time"
)

// Wire shapes the upstream is known to produce. Pointers and RawMessage keep
// "absent" distinguishable from zero values; each variant is validated and
// translated here, never patched up ad hoc downstream.
type wireSnapshot struct {
	PlanType  *string         `json:"plan_type"`
	RateLimit json.RawMessage `json:"rate_limit"`
}

type wireRateLimit struct {
	Allowed         *bool       `json:"allowed"`
	LimitReached    *bool       `json:"limit_reached"`
	PrimaryWindow   *wireWindow `json:"primary_window"`
	SecondaryWindow *wireWindow `json:"secondary_window"`
}

type wireWindow struct {
	UsedPercent *float64        `json:"used_percent"`
	ResetAt     json.RawMessage `json:"reset_at"`
}

// Normalize converts a raw usage payload into the canonical Snapshot.
// Tolerated variants: rate_limit null (no-quota plans), reset_at as ISO
// string or epoch-seconds number, and a single window standing in for both.
// Anything else fails normalization.
func Normalize(raw []byte) (*Snapshot, bool) {
	var ws wireSnapshot
	if err := json.Unmarshal(raw, &ws); err != nil || ws.PlanType == nil {
		return nil, false
	}

	if len(ws.RateLimit) == 0 {
		return nil, false
	}
	if string(ws.RateLimit) == "null" {
		return &Snapshot{PlanType: *ws.PlanType, RateLimit: nil}, true
	}

	var wrl wireRateLimit
	if err := json.Unmarshal(ws.RateLimit, &wrl); err != nil {
		return nil, false
	}
	if wrl.Allowed == nil || wrl.LimitReached == nil {
		return nil, false
	}

	primary, primaryOK := normalizeWindow(wrl.PrimaryWindow)
	secondary, secondaryOK := normalizeWindow(wrl.SecondaryWindow)
	if !primaryOK && !secondaryOK {
		return nil, false
	}
	// One window filling in for the other is a known upstream shape.
	if !primaryOK {
		primary = secondary
	}
	if !secondaryOK {
		secondary = primary
	}

	return &Snapshot{
		PlanType: *ws.PlanType,
		RateLimit: &RateLimit{
			Allowed:         *wrl.Allowed,
			LimitReached:    *wrl.LimitReached,
			PrimaryWindow:   primary,
			SecondaryWindow: secondary,
		},
	}, true
}

func normalizeWindow(ww *wireWindow) (Window, bool) {
	if ww == nil || ww.UsedPercent == nil {
		return Window{}, false
	}
	if math.IsNaN(*ww.UsedPercent) || math.IsInf(*ww.UsedPercent, 0) {
		return Window{}, false
	}

	resetAt, ok := normalizeResetAt(ww.ResetAt)
	if !ok {
		return Window{}, false
	}
	return Window{UsedPercent: *ww.UsedPercent, ResetAt: resetAt}, true
}

func normalizeResetAt(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}

	// Some upstream sources report epoch-seconds.
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
		return time.Unix(int64(n), 0).UTC().Format(time.RFC3339), true
	}
	return "", false
}
