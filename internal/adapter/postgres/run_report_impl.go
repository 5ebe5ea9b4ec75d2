package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/harvest-service/internal/entity"
)

// RunReportRepoImpl implements repository.RunReportRepository.
type RunReportRepoImpl struct {
	db *pgxpool.Pool
}

func NewRunReportRepo(db *pgxpool.Pool) *RunReportRepoImpl {
	return &RunReportRepoImpl{db: db}
}

func (r *RunReportRepoImpl) Save(ctx context.Context, rep *entity.RunReport) error {
	errs := rep.PerPageErrors
	if errs == nil {
		errs = []entity.PageError{}
	}
	errsJSON, err := json.Marshal(errs)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO run_reports (id, schedule_id, source_id, engine_used, status, abort_reason,
			started_at, finished_at, pages_visited, total_candidates, new_items, duplicate_items,
			unparsed_dates, ambiguous_dates, per_page_errors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO NOTHING`,
		rep.ID, rep.ScheduleID, rep.SourceID, string(rep.EngineUsed), string(rep.Status), rep.AbortReason,
		rep.StartedAt, rep.FinishedAt, rep.PagesVisited, rep.TotalCandidates, rep.NewItems, rep.DuplicateItems,
		rep.UnparsedDates, rep.AmbiguousDates, errsJSON,
	)
	if err != nil {
		return wrapErr("save run report", err)
	}
	return nil
}
