package entity

import "time"

// RawCandidate is one item as extracted from a listing page, before any
// normalization.
type RawCandidate struct {
	SourceID   string
	ExternalID string // optional, source provided
	Title      string
	Body       string
	URL        string
	RawDate    string
	Page       int
}

// Record mirrors the `records` PostgreSQL table schema.
// (SourceID, ExternalID) is unique and rows are never updated.
type Record struct {
	ExternalID      string    `json:"external_id"`
	SourceID        string    `json:"source_id"`
	Title           string    `json:"title"`
	Body            string    `json:"body"`
	CanonicalURL    string    `json:"canonical_url"`
	PublishedAt     time.Time `json:"published_at"`
	ScrapedAt       time.Time `json:"scraped_at"`
	DateUnparsed    bool      `json:"date_unparsed"`
	DateAmbiguous   bool      `json:"date_ambiguous"`
	MatchedKeywords []string  `json:"matched_keywords"`
}

// IngestOutcome is the result of ingesting a single record.
type IngestOutcome int

const (
	OutcomeCreated IngestOutcome = iota + 1
	OutcomeDuplicate
)

func (o IngestOutcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}
