package entities

import (
	"time"
)

// SearchOutcome is how a search request ended
type SearchOutcome string

const (
	SearchOutcomeSuccess SearchOutcome = "success"
	SearchOutcomeFailed  SearchOutcome = "failed"
	// SearchOutcomeStale marks a response that was dropped because a newer
	// request had been issued for the same domain.
	SearchOutcomeStale SearchOutcome = "stale"
)

// SearchEvent represents a single search interaction for analytics.
type SearchEvent struct {
	ID          string        `json:"id" db:"id"`
	SessionID   string        `json:"session_id,omitempty" db:"session_id"`
	Domain      SearchDomain  `json:"domain" db:"domain"`
	Flow        SearchFlow    `json:"flow" db:"flow"`
	Query       string        `json:"query" db:"query"`
	Outcome     SearchOutcome `json:"outcome" db:"outcome"`
	ErrorKind   string        `json:"error_kind,omitempty" db:"error_kind"`
	ResultCount int           `json:"result_count" db:"result_count"`
	LatencyMs   int           `json:"latency_ms" db:"latency_ms"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
}
