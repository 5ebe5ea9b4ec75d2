package repository

import (
	"context"
	"time"

	"github.com/user/harvest-service/internal/entity"
)

// ScheduleRepository persists schedule definitions.
// Missing rows are reported as entity.ErrNotFound.
type ScheduleRepository interface {
	ListActive(ctx context.Context) ([]*entity.Schedule, error)
	List(ctx context.Context) ([]*entity.Schedule, error)
	Get(ctx context.Context, id string) (*entity.Schedule, error)
	Create(ctx context.Context, s *entity.Schedule) error
	// Update overwrites every mutable field, including IsActive and NextRunAt.
	// LastRunAt and CreatedAt are left untouched.
	Update(ctx context.Context, s *entity.Schedule) error
	Delete(ctx context.Context, id string) error
	// RecordRun stores the bookkeeping of an executed run in one statement:
	// last_run_at is always set, next_run_at is set only if the schedule is
	// still active at write time and cleared otherwise.
	RecordRun(ctx context.Context, id string, lastRunAt time.Time, nextRunAt time.Time) error
}
