package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/user/harvest-service/internal/delivery/http/request"
	"github.com/user/harvest-service/internal/delivery/http/response"
	"github.com/user/harvest-service/internal/entity"
)

const defaultRecentLimit = 20

// HandleRun triggers a run and answers with its report once it finishes.
// The run outlives a disconnected client.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req request.RunRequest
	if !h.decode(w, r, &req) {
		return
	}
	runReq, err := req.Request()
	if err != nil {
		h.writeError(w, err)
		return
	}

	report, err := h.runs.Run(context.WithoutCancel(r.Context()), runReq)
	if err == nil {
		h.writeJSON(w, http.StatusOK, report)
		return
	}
	if report == nil {
		h.writeError(w, err)
		return
	}

	status := http.StatusInternalServerError
	var unavailable *entity.EngineUnavailableError
	if errors.As(err, &unavailable) {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, response.RunErrorResponse{Error: err.Error(), Report: report})
}

func (h *Handler) HandleRecentRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := h.runs.Recent(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if runs == nil {
		runs = []*entity.RunReport{}
	}
	h.writeJSON(w, http.StatusOK, response.RunListResponse{Runs: runs, Count: len(runs)})
}
