package repository

import (
	"context"

	"github.com/user/harvest-service/internal/entity"
)

// RecordRepository stores acquired records. The store's uniqueness
// constraint on (source_id, external_id) is the authoritative duplicate guard.
type RecordRepository interface {
	Exists(ctx context.Context, sourceID, externalID string) (bool, error)
	// InsertIfAbsent inserts r unless it already exists. When it inserts, the
	// match counter of every id in r.MatchedKeywords is incremented in the
	// same transaction.
	InsertIfAbsent(ctx context.Context, r *entity.Record) (created bool, err error)
}
