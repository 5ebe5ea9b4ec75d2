package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	RunsTotal       *prometheus.CounterVec
	RunDuration     *prometheus.HistogramVec
	CandidatesTotal *prometheus.CounterVec
	PageErrorsTotal *prometheus.CounterVec
	KeywordMatches  prometheus.Counter
	EngineSlotsUsed *prometheus.GaugeVec

	ScheduleFiresTotal   prometheus.Counter
	ScheduleFiresSkipped prometheus.Counter
	SchedulesBound       prometheus.Gauge
}

// New registers every metric with reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),

		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "harvest_runs_total",
			Help: "Total number of acquisition runs by engine and final status.",
		}, []string{"engine", "status"}),

		RunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "harvest_run_duration_seconds",
			Help:    "Duration of acquisition runs.",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"engine"}),

		CandidatesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "harvest_candidates_total",
			Help: "Candidates seen by ingestion, by outcome.",
		}, []string{"outcome"}), // created, duplicate

		PageErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "harvest_page_errors_total",
			Help: "Pages that failed to fetch or parse.",
		}, []string{"engine"}),

		KeywordMatches: f.NewCounter(prometheus.CounterOpts{
			Name: "harvest_keyword_matches_total",
			Help: "Keyword matches recorded on newly created records.",
		}),

		EngineSlotsUsed: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "harvest_engine_slots_in_use",
			Help: "Runs currently holding an engine capacity slot.",
		}, []string{"engine"}),

		ScheduleFiresTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "harvest_schedule_fires_total",
			Help: "Timer fires that started a run.",
		}),

		ScheduleFiresSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "harvest_schedule_fires_skipped_total",
			Help: "Timer fires skipped because a run for the schedule was still in progress.",
		}),

		SchedulesBound: f.NewGauge(prometheus.GaugeOpts{
			Name: "harvest_schedules_bound",
			Help: "Schedules with a live timer.",
		}),
	}
}
