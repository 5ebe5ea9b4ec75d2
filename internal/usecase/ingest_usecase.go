package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/user/harvest-service/internal/entity"
	"github.com/user/harvest-service/internal/repository"
	"github.com/user/harvest-service/pkg/metrics"
	"github.com/user/harvest-service/pkg/utils"
)

// Ingester decides whether a record is new and persists it.
type Ingester struct {
	records repository.RecordRepository
	seen    repository.SeenCache
	seenTTL time.Duration
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewIngester creates an Ingester. seen may be nil to disable the fast path.
func NewIngester(records repository.RecordRepository, seen repository.SeenCache, seenTTL time.Duration, m *metrics.Metrics, logger *zap.Logger) *Ingester {
	return &Ingester{
		records: records,
		seen:    seen,
		seenTTL: seenTTL,
		metrics: m,
		logger:  logger,
	}
}

// Ingest fills in the content identity of rec and stores it unless a record
// with the same (SourceID, ExternalID) exists. Store failures are returned as
// *entity.PersistenceError; seen-cache failures are only logged.
func (i *Ingester) Ingest(ctx context.Context, rec *entity.Record) (entity.IngestOutcome, error) {
	if canon, err := utils.CanonicalURL(rec.CanonicalURL); err == nil {
		rec.CanonicalURL = canon
	}
	if rec.ExternalID == "" {
		rec.ExternalID = utils.ContentID(rec.SourceID, rec.CanonicalURL)
	}

	if i.seen != nil {
		seen, err := i.seen.IsSeen(ctx, rec.SourceID, rec.ExternalID)
		if err != nil {
			i.logger.Warn("seen cache lookup failed", zap.String("source_id", rec.SourceID), zap.Error(err))
		} else if seen {
			i.metrics.CandidatesTotal.WithLabelValues(entity.OutcomeDuplicate.String()).Inc()
			return entity.OutcomeDuplicate, nil
		}
	}

	created, err := i.records.InsertIfAbsent(ctx, rec)
	if err != nil {
		return 0, asPersistence("insert record", err)
	}

	if i.seen != nil {
		if err := i.seen.MarkSeen(ctx, rec.SourceID, rec.ExternalID, i.seenTTL); err != nil {
			i.logger.Warn("seen cache write failed", zap.String("source_id", rec.SourceID), zap.Error(err))
		}
	}

	outcome := entity.OutcomeDuplicate
	if created {
		outcome = entity.OutcomeCreated
		i.metrics.KeywordMatches.Add(float64(len(rec.MatchedKeywords)))
	}
	i.metrics.CandidatesTotal.WithLabelValues(outcome.String()).Inc()
	return outcome, nil
}

func asPersistence(op string, err error) error {
	var pe *entity.PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &entity.PersistenceError{Op: op, Err: err}
}
