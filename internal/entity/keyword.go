package entity

import "time"

// Keyword mirrors the `keywords` PostgreSQL table schema.
// Text is stored normalized (lowercased, trimmed) and is unique.
type Keyword struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	Category   *string   `json:"category,omitempty"`
	IsActive   bool      `json:"is_active"`
	MatchCount int64     `json:"match_count"`
	CreatedAt  time.Time `json:"created_at"`
}
