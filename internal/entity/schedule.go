package entity

import "time"

// Schedule mirrors the `schedules` PostgreSQL table schema.
// NextRunAt is nil whenever IsActive is false.
type Schedule struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	SourceURL      string     `json:"source_url"`
	MaxPages       int        `json:"max_pages"`
	DelayMs        int        `json:"delay_ms"`
	CronExpression string     `json:"cron_expression"`
	Engine         EngineKind `json:"engine"`
	IsActive       bool       `json:"is_active"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
	NextRunAt      *time.Time `json:"next_run_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Delay returns the politeness delay between page fetches.
func (s *Schedule) Delay() time.Duration {
	return time.Duration(s.DelayMs) * time.Millisecond
}

// ScheduleInput carries the mutable fields of a schedule for create and update.
type ScheduleInput struct {
	Name           string
	SourceURL      string
	MaxPages       int
	DelayMs        int
	CronExpression string
	Engine         EngineKind // empty selects the source default
	IsActive       bool
}
