// Package autopick ranks accounts by quota health. Pure selection logic:
// no I/O, deterministic for a given candidate list and clock.
package autopick

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/zpdzap/swop/internal/label"
	"github.com/zpdzap/swop/internal/usage"
)

const (
	// minPrimaryRemaining is the short-window health floor.
	minPrimaryRemaining = 20.0
	// minSecondaryRemaining is the long-window health floor.
	minSecondaryRemaining = 5.0
	// overrideRemainingGap switches to the highest-remaining candidate when
	// it beats the closest-reset one by more than this many points.
	overrideRemainingGap = 40.0
	// overrideMinResetLead only allows the override when the closest reset
	// is still this far away.
	overrideMinResetLead = 48 * time.Hour
)

// Candidate pairs an account label with its usage snapshot.
type Candidate struct {
	Label string
	Usage usage.Snapshot
}

// Selection is a successful pick.
type Selection struct {
	Label string
}

// BlockedError reports that no account is usable right now.
type BlockedError struct {
	EarliestResetAt string
}

func (e *BlockedError) Error() string {
	if e.EarliestResetAt != "" {
		return fmt.Sprintf("all accounts blocked until %s", e.EarliestResetAt)
	}
	return "all accounts blocked; reset time unknown"
}

// scored carries a candidate with its normalized remaining percentages.
type scored struct {
	candidate          Candidate
	primaryRemaining   float64
	secondaryRemaining float64
	resetAtMs          int64 // secondary window; -1 when unparseable
	key                string
}

// Select picks the healthiest account. Viable candidates (quota present,
// allowed, not limit-reached) are filtered by per-window health floors, then
// ranked by closest secondary reset; a much healthier account overrides that
// default when the closest reset is still days away.
func Select(candidates []Candidate, now time.Time) (Selection, error) {
	var viable []Candidate
	for _, c := range candidates {
		rl := c.Usage.RateLimit
		if rl != nil && rl.Allowed && !rl.LimitReached {
			viable = append(viable, c)
		}
	}

	if len(viable) == 0 {
		return Selection{}, &BlockedError{EarliestResetAt: earliestResetAt(candidates)}
	}

	primaryScale := detectFractionScale(viable, func(rl *usage.RateLimit) float64 {
		return rl.PrimaryWindow.UsedPercent
	})
	secondaryScale := detectFractionScale(viable, func(rl *usage.RateLimit) float64 {
		return rl.SecondaryWindow.UsedPercent
	})

	pool := make([]scored, 0, len(viable))
	for _, c := range viable {
		rl := c.Usage.RateLimit
		pool = append(pool, scored{
			candidate:          c,
			primaryRemaining:   100 - normalizePercent(rl.PrimaryWindow.UsedPercent, primaryScale),
			secondaryRemaining: 100 - normalizePercent(rl.SecondaryWindow.UsedPercent, secondaryScale),
			resetAtMs:          parseResetAtMs(rl.SecondaryWindow.ResetAt),
			key:                sortKey(c.Label),
		})
	}

	// Health floors narrow the pool but never empty it.
	pool = applyFloor(pool, func(s scored) bool { return s.primaryRemaining >= minPrimaryRemaining })
	pool = applyFloor(pool, func(s scored) bool { return s.secondaryRemaining >= minSecondaryRemaining })

	closestReset := rankClosestReset(pool)[0]
	highestRemaining := rankHighestRemaining(pool)[0]

	selected := closestReset
	if highestRemaining.secondaryRemaining-closestReset.secondaryRemaining > overrideRemainingGap &&
		closestReset.resetAtMs >= 0 &&
		time.UnixMilli(closestReset.resetAtMs).After(now.Add(overrideMinResetLead)) {
		selected = highestRemaining
	}

	return Selection{Label: selected.candidate.Label}, nil
}

func applyFloor(pool []scored, keep func(scored) bool) []scored {
	var kept []scored
	for _, s := range pool {
		if keep(s) {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return pool
	}
	return kept
}

// rankClosestReset sorts ascending by secondary reset time, unparseable
// after parseable, ties broken by normalized key then raw label.
func rankClosestReset(pool []scored) []scored {
	out := append([]scored(nil), pool...)
	sort.SliceStable(out, func(i, j int) bool {
		return compareClosestReset(out[i], out[j]) < 0
	})
	return out
}

func rankHighestRemaining(pool []scored) []scored {
	out := append([]scored(nil), pool...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].secondaryRemaining != out[j].secondaryRemaining {
			return out[i].secondaryRemaining > out[j].secondaryRemaining
		}
		return compareClosestReset(out[i], out[j]) < 0
	})
	return out
}

func compareClosestReset(a, b scored) int {
	switch {
	case a.resetAtMs >= 0 && b.resetAtMs >= 0 && a.resetAtMs != b.resetAtMs:
		if a.resetAtMs < b.resetAtMs {
			return -1
		}
		return 1
	case a.resetAtMs >= 0 && b.resetAtMs < 0:
		return -1
	case a.resetAtMs < 0 && b.resetAtMs >= 0:
		return 1
	}
	if a.key != b.key {
		return strings.Compare(a.key, b.key)
	}
	return strings.Compare(a.candidate.Label, b.candidate.Label)
}

// detectFractionScale decides whether a window's used_percent values are on
// the 0-1 scale: anything above 1 forces percent, a non-integer strictly
// between 0 and 1 indicates fraction, and all-ambiguous defaults to percent.
func detectFractionScale(viable []Candidate, pick func(*usage.RateLimit) float64) bool {
	fraction := false
	for _, c := range viable {
		v := pick(c.Usage.RateLimit)
		if v > 1 {
			return false
		}
		if v > 0 && v < 1 && v != math.Trunc(v) {
			fraction = true
		}
	}
	return fraction
}

func normalizePercent(v float64, fractionScale bool) float64 {
	if fractionScale {
		return v * 100
	}
	return v
}

func parseResetAtMs(resetAt string) int64 {
	t, err := time.Parse(time.RFC3339, resetAt)
	if err != nil {
		return -1
	}
	return t.UnixMilli()
}

func sortKey(rawLabel string) string {
	key, err := label.Normalize(rawLabel)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(rawLabel))
	}
	return key
}

// earliestResetAt scans secondary windows of every candidate, viable or not,
// for the soonest parseable reset.
func earliestResetAt(candidates []Candidate) string {
	earliest := ""
	var earliestMs int64 = math.MaxInt64
	for _, c := range candidates {
		rl := c.Usage.RateLimit
		if rl == nil {
			continue
		}
		ms := parseResetAtMs(rl.SecondaryWindow.ResetAt)
		if ms >= 0 && ms < earliestMs {
			earliestMs = ms
			earliest = rl.SecondaryWindow.ResetAt
		}
	}
	return earliest
}
