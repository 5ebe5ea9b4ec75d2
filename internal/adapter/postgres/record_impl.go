package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/harvest-service/internal/entity"
)

// RecordRepoImpl implements repository.RecordRepository.
type RecordRepoImpl struct {
	db *pgxpool.Pool
}

func NewRecordRepo(db *pgxpool.Pool) *RecordRepoImpl {
	return &RecordRepoImpl{db: db}
}

func (r *RecordRepoImpl) Exists(ctx context.Context, sourceID, externalID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM records WHERE source_id = $1 AND external_id = $2)`,
		sourceID, externalID,
	).Scan(&exists)
	if err != nil {
		return false, wrapErr("record exists", err)
	}
	return exists, nil
}

// InsertIfAbsent relies on the primary key for the duplicate decision and
// bumps keyword counters in the same transaction only when a row was written.
func (r *RecordRepoImpl) InsertIfAbsent(ctx context.Context, rec *entity.Record) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, wrapErr("begin insert record", err)
	}
	defer tx.Rollback(ctx)

	matched := rec.MatchedKeywords
	if matched == nil {
		matched = []string{}
	}
	tag, err := tx.Exec(ctx, `
		INSERT INTO records (source_id, external_id, title, body, canonical_url, published_at,
			scraped_at, date_unparsed, date_ambiguous, matched_keywords)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (source_id, external_id) DO NOTHING`,
		rec.SourceID, rec.ExternalID, rec.Title, rec.Body, rec.CanonicalURL, rec.PublishedAt,
		rec.ScrapedAt, rec.DateUnparsed, rec.DateAmbiguous, matched,
	)
	if err != nil {
		return false, wrapErr("insert record", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if len(rec.MatchedKeywords) > 0 {
		if _, err := tx.Exec(ctx,
			`UPDATE keywords SET match_count = match_count + 1 WHERE id = ANY($1)`,
			rec.MatchedKeywords); err != nil {
			return false, wrapErr("increment match count", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, wrapErr("commit insert record", err)
	}
	return true, nil
}
