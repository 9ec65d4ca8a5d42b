// Package metrics keeps in-memory counts of generate attempts for the
// health endpoint.
package metrics

import "time"

// Record is one pass through a session's request gate.
type Record struct {
	RequestID string        `json:"request_id,omitempty"`
	SessionID string        `json:"session_id"`
	Outcome   string        `json:"outcome"`
	At        time.Time     `json:"at"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// Summary aggregates every record seen since start.
type Summary struct {
	Total       int64            `json:"total"`
	ByOutcome   map[string]int64 `json:"by_outcome"`
	Requests    int64            `json:"requests"` // attempts that reached the image service
	AvgDuration time.Duration    `json:"avg_duration"`
	Uptime      time.Duration    `json:"uptime"`
}
