package response

import "github.com/user/harvest-service/internal/entity"

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// RunErrorResponse carries the aborted report alongside the cause.
type RunErrorResponse struct {
	Error  string            `json:"error"`
	Report *entity.RunReport `json:"report"`
}

type HealthResponse struct {
	Status string            `json:"status"` // "ok" or "degraded"
	Checks map[string]string `json:"checks,omitempty"`
}

type ScheduleListResponse struct {
	Schedules []*entity.Schedule `json:"schedules"`
	Count     int                `json:"count"`
}

type SourceListResponse struct {
	Sources []entity.Source `json:"sources"`
	Count   int             `json:"count"`
}

type RunListResponse struct {
	Runs  []*entity.RunReport `json:"runs"`
	Count int                 `json:"count"`
}
