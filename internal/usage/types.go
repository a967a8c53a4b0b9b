// Package usage fetches, normalizes, and caches per-account quota snapshots
// from the remote usage endpoint.
package usage

import "fmt"

// Snapshot is the canonical usage record (schema v1). A nil RateLimit means
// the plan has no enforced quota (free/expired).
type Snapshot struct {
	PlanType  string     `json:"plan_type"`
	RateLimit *RateLimit `json:"rate_limit"`
}

// RateLimit carries the two quota windows reported upstream.
type RateLimit struct {
	Allowed         bool   `json:"allowed"`
	LimitReached    bool   `json:"limit_reached"`
	PrimaryWindow   Window `json:"primary_window"`
	SecondaryWindow Window `json:"secondary_window"`
}

// Window is one quota window. ResetAt is always an ISO-8601 string after
// normalization, whatever shape it arrived in.
type Window struct {
	UsedPercent float64 `json:"used_percent"`
	ResetAt     string  `json:"reset_at"`
}

// Kind classifies usage-subsystem failures.
type Kind string

const (
	KindAuth    Kind = "auth"
	KindNetwork Kind = "network"
	KindTimeout Kind = "timeout"
	KindServer  Kind = "server"
	KindParse   Kind = "parse"
)

// Error is a typed usage failure.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Freshness describes how current a served snapshot is.
type Freshness struct {
	FetchedAt  string `json:"fetched_at"`
	Stale      bool   `json:"stale"`
	AgeSeconds int    `json:"age_seconds"`
}

// Warning is attached to a success result served from stale data.
type Warning struct {
	Kind    Kind
	Message string
}
