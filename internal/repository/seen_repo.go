package repository

import (
	"context"
	"time"
)

// SeenCache is a fast-path hint that an item was already ingested. A miss
// proves nothing; only RecordRepository decides whether an item is new.
type SeenCache interface {
	IsSeen(ctx context.Context, sourceID, externalID string) (bool, error)
	MarkSeen(ctx context.Context, sourceID, externalID string, expiry time.Duration) error
}
