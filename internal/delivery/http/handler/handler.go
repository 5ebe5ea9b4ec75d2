package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/user/harvest-service/internal/delivery/http/response"
	"github.com/user/harvest-service/internal/entity"
	"github.com/user/harvest-service/internal/usecase"
)

const healthTimeout = 2 * time.Second

// ScheduleService is the part of the scheduler the admin API drives.
type ScheduleService interface {
	Create(ctx context.Context, in entity.ScheduleInput) (*entity.Schedule, error)
	Update(ctx context.Context, id string, in entity.ScheduleInput) (*entity.Schedule, error)
	Toggle(ctx context.Context, id string) (*entity.Schedule, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*entity.Schedule, error)
	List(ctx context.Context) ([]*entity.Schedule, error)
}

// RunService executes manual runs and lists past ones.
type RunService interface {
	Run(ctx context.Context, req usecase.RunRequest) (*entity.RunReport, error)
	Recent(ctx context.Context, limit int) ([]*entity.RunReport, error)
	Sources() []entity.Source
}

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	schedules ScheduleService
	runs      RunService
	checks    map[string]HealthCheck
	logger    *zap.Logger
}

func NewHandler(schedules ScheduleService, runs RunService, checks map[string]HealthCheck, logger *zap.Logger) *Handler {
	return &Handler{
		schedules: schedules,
		runs:      runs,
		checks:    checks,
		logger:    logger,
	}
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := response.HealthResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.Error("health check failed", zap.String("dependency", name), zap.Error(err))
			resp.Checks[name] = "unhealthy"
			resp.Status = "degraded"
			continue
		}
		resp.Checks[name] = "healthy"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) HandleListSources(w http.ResponseWriter, r *http.Request) {
	sources := h.runs.Sources()
	h.writeJSON(w, http.StatusOK, response.SourceListResponse{Sources: sources, Count: len(sources)})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// writeError maps the error taxonomy onto status codes.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var cfgErr *entity.ConfigurationError
	switch {
	case errors.As(err, &cfgErr):
		h.writeJSON(w, http.StatusBadRequest, response.ErrorResponse{Error: cfgErr.Error(), Field: cfgErr.Field})
	case errors.Is(err, entity.ErrNotFound):
		h.writeJSONError(w, "Schedule not found", http.StatusNotFound)
	default:
		h.logger.Error("request failed", zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message})
}
