package entity

import "time"

// RunStatus is the state of a single acquisition run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunAborted   RunStatus = "aborted"
)

// PageError records a failure fetching or parsing one page.
type PageError struct {
	Page    int    `json:"page"`
	URL     string `json:"url,omitempty"`
	Message string `json:"message"`
}

// RunReport mirrors the `run_reports` PostgreSQL table schema.
// NewItems + DuplicateItems never exceeds TotalCandidates.
type RunReport struct {
	ID              string      `json:"id"`
	ScheduleID      *string     `json:"schedule_id"` // nil for manual runs
	SourceID        string      `json:"source_id"`
	EngineUsed      EngineKind  `json:"engine_used"`
	Status          RunStatus   `json:"status"`
	AbortReason     string      `json:"abort_reason,omitempty"`
	StartedAt       time.Time   `json:"started_at"`
	FinishedAt      time.Time   `json:"finished_at"`
	PagesVisited    int         `json:"pages_visited"`
	TotalCandidates int         `json:"total_candidates"`
	NewItems        int         `json:"new_items"`
	DuplicateItems  int         `json:"duplicate_items"`
	UnparsedDates   int         `json:"unparsed_dates"`
	AmbiguousDates  int         `json:"ambiguous_dates"`
	PerPageErrors   []PageError `json:"per_page_errors"`
}

// Duration is the wall-clock time the run took.
func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Finished reports whether the run reached a terminal state.
func (r *RunReport) Finished() bool {
	return r.Status == RunCompleted || r.Status == RunAborted
}
