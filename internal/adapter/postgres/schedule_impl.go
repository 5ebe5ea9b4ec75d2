package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/harvest-service/internal/entity"
)

const scheduleColumns = `id, name, source_url, max_pages, delay_ms, cron_expression, engine,
	is_active, last_run_at, next_run_at, created_at, updated_at`

// ScheduleRepoImpl implements repository.ScheduleRepository.
type ScheduleRepoImpl struct {
	db *pgxpool.Pool
}

func NewScheduleRepo(db *pgxpool.Pool) *ScheduleRepoImpl {
	return &ScheduleRepoImpl{db: db}
}

func scanSchedule(row pgx.Row) (*entity.Schedule, error) {
	var s entity.Schedule
	var engine string
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.SourceURL,
		&s.MaxPages,
		&s.DelayMs,
		&s.CronExpression,
		&engine,
		&s.IsActive,
		&s.LastRunAt,
		&s.NextRunAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Engine = entity.EngineKind(engine)
	return &s, nil
}

func (r *ScheduleRepoImpl) query(ctx context.Context, op, sql string, args ...any) ([]*entity.Schedule, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()

	var out []*entity.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return out, nil
}

func (r *ScheduleRepoImpl) ListActive(ctx context.Context) ([]*entity.Schedule, error) {
	return r.query(ctx, "list active schedules",
		`SELECT `+scheduleColumns+` FROM schedules WHERE is_active ORDER BY created_at, id`)
}

func (r *ScheduleRepoImpl) List(ctx context.Context) ([]*entity.Schedule, error) {
	return r.query(ctx, "list schedules",
		`SELECT `+scheduleColumns+` FROM schedules ORDER BY created_at, id`)
}

func (r *ScheduleRepoImpl) Get(ctx context.Context, id string) (*entity.Schedule, error) {
	s, err := scanSchedule(r.db.QueryRow(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`, id))
	if err != nil {
		return nil, wrapErr("get schedule", err)
	}
	return s, nil
}

func (r *ScheduleRepoImpl) Create(ctx context.Context, s *entity.Schedule) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO schedules (`+scheduleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		s.ID, s.Name, s.SourceURL, s.MaxPages, s.DelayMs, s.CronExpression, string(s.Engine),
		s.IsActive, s.LastRunAt, s.NextRunAt, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return wrapErr("create schedule", err)
	}
	return nil
}

func (r *ScheduleRepoImpl) Update(ctx context.Context, s *entity.Schedule) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE schedules SET
			name = $2, source_url = $3, max_pages = $4, delay_ms = $5,
			cron_expression = $6, engine = $7, is_active = $8,
			next_run_at = $9, updated_at = $10
		WHERE id = $1`,
		s.ID, s.Name, s.SourceURL, s.MaxPages, s.DelayMs,
		s.CronExpression, string(s.Engine), s.IsActive,
		s.NextRunAt, s.UpdatedAt,
	)
	if err != nil {
		return wrapErr("update schedule", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *ScheduleRepoImpl) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return wrapErr("delete schedule", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrNotFound
	}
	return nil
}

// RecordRun decides next_run_at against the row's is_active at write time,
// so a concurrent deactivate is never overwritten.
func (r *ScheduleRepoImpl) RecordRun(ctx context.Context, id string, lastRunAt, nextRunAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE schedules SET
			last_run_at = $2,
			next_run_at = CASE WHEN is_active THEN $3::timestamptz ELSE NULL END,
			updated_at = $2
		WHERE id = $1`,
		id, lastRunAt, nextRunAt,
	)
	if err != nil {
		return wrapErr("record run", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrNotFound
	}
	return nil
}
