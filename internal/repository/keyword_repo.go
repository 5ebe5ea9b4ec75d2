package repository

import (
	"context"

	"github.com/user/harvest-service/internal/entity"
)

// KeywordRepository reads keywords and maintains their match counters.
type KeywordRepository interface {
	FindActive(ctx context.Context) ([]entity.Keyword, error)
	// IncrementMatchCount adds one to every listed keyword atomically in the
	// store; it never reads and writes back the counter.
	IncrementMatchCount(ctx context.Context, ids []string) error
	// ResetMatchCount is the only operation that lowers a counter.
	ResetMatchCount(ctx context.Context, id string) error
}
