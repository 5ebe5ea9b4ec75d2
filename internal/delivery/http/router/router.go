package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/user/harvest-service/internal/delivery/http/handler"
	"github.com/user/harvest-service/internal/delivery/http/middleware"
	"github.com/user/harvest-service/pkg/metrics"
)

const crudTimeout = 30 * time.Second

func New(h *handler.Handler, m *metrics.Metrics, gatherer prometheus.Gatherer, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics(m))
	r.Use(chimw.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealthCheck)
		r.Get("/sources", h.HandleListSources)

		r.Route("/schedules", func(r chi.Router) {
			r.Use(chimw.Timeout(crudTimeout))
			r.Get("/", h.HandleListSchedules)
			r.Post("/", h.HandleCreateSchedule)
			r.Get("/{id}", h.HandleGetSchedule)
			r.Put("/{id}", h.HandleUpdateSchedule)
			r.Delete("/{id}", h.HandleDeleteSchedule)
			r.Post("/{id}/toggle", h.HandleToggleSchedule)
		})

		// Manual runs are synchronous and may take minutes.
		r.Post("/run", h.HandleRun)
		r.Get("/runs/recent", h.HandleRecentRuns)
	})

	return r
}
