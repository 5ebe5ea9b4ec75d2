package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/harvest-service/internal/delivery/http/request"
	"github.com/user/harvest-service/internal/delivery/http/response"
)

func (h *Handler) HandleListSchedules(w http.ResponseWriter, r *http.Request) {
	list, err := h.schedules.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.ScheduleListResponse{Schedules: list, Count: len(list)})
}

func (h *Handler) HandleGetSchedule(w http.ResponseWriter, r *http.Request) {
	s, err := h.schedules.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s)
}

func (h *Handler) HandleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req request.ScheduleRequest
	if !h.decode(w, r, &req) {
		return
	}
	in, err := req.Input()
	if err != nil {
		h.writeError(w, err)
		return
	}
	s, err := h.schedules.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, s)
}

func (h *Handler) HandleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var req request.ScheduleRequest
	if !h.decode(w, r, &req) {
		return
	}
	in, err := req.Input()
	if err != nil {
		h.writeError(w, err)
		return
	}
	s, err := h.schedules.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s)
}

func (h *Handler) HandleToggleSchedule(w http.ResponseWriter, r *http.Request) {
	s, err := h.schedules.Toggle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s)
}

func (h *Handler) HandleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := h.schedules.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
