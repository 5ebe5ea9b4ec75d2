package repository

import (
	"context"

	"github.com/user/harvest-service/internal/entity"
)

// RunReportRepository keeps an audit log of finished runs.
type RunReportRepository interface {
	Save(ctx context.Context, r *entity.RunReport) error
}

// RunHistory is a bounded list of the most recent run reports.
type RunHistory interface {
	Push(ctx context.Context, r *entity.RunReport) error
	Recent(ctx context.Context, limit int) ([]*entity.RunReport, error)
}
