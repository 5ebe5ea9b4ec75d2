package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/user/harvest-service/internal/acquisition"
	"github.com/user/harvest-service/internal/dateparse"
	"github.com/user/harvest-service/internal/entity"
	"github.com/user/harvest-service/internal/keyword"
	"github.com/user/harvest-service/internal/repository"
	"github.com/user/harvest-service/internal/source"
	"github.com/user/harvest-service/pkg/metrics"
)

const (
	MaxPagesLimit = 100
	MaxDelayMs    = 60_000

	bookkeepingTimeout = 10 * time.Second
)

// RunRequest asks for one acquisition run.
type RunRequest struct {
	ScheduleID *string // nil for manual runs
	SourceURL  string
	MaxPages   int
	DelayMs    int
	Engine     entity.EngineKind // empty selects the source default
	// Fallback retries with the lightweight engine when the headless engine
	// cannot start.
	Fallback bool
}

// RunnerConfig wires a Runner.
type RunnerConfig struct {
	Sources            *source.Registry
	Lightweight        acquisition.Engine
	Headless           acquisition.Engine
	LightweightWorkers int64
	HeadlessWorkers    int64
	Keywords           repository.KeywordRepository
	Ingester           *Ingester
	Audit              repository.RunReportRepository
	History            repository.RunHistory
	Metrics            *metrics.Metrics
	Logger             *zap.Logger
}

// Runner executes acquisition runs and produces their reports.
type Runner struct {
	sources       *source.Registry
	lightweight   acquisition.Engine
	headless      acquisition.Engine
	lightSlots    *semaphore.Weighted
	headlessSlots *semaphore.Weighted
	keywords      repository.KeywordRepository
	ingester      *Ingester
	audit         repository.RunReportRepository
	history       repository.RunHistory
	metrics       *metrics.Metrics
	logger        *zap.Logger
	now           func() time.Time
}

func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.LightweightWorkers <= 0 {
		cfg.LightweightWorkers = 8
	}
	if cfg.HeadlessWorkers <= 0 {
		cfg.HeadlessWorkers = 1
	}
	return &Runner{
		sources:       cfg.Sources,
		lightweight:   cfg.Lightweight,
		headless:      cfg.Headless,
		lightSlots:    semaphore.NewWeighted(cfg.LightweightWorkers),
		headlessSlots: semaphore.NewWeighted(cfg.HeadlessWorkers),
		keywords:      cfg.Keywords,
		ingester:      cfg.Ingester,
		audit:         cfg.Audit,
		history:       cfg.History,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
		now:           time.Now,
	}
}

// Resolve validates req against the source allow-list and the page and delay
// bounds. Failures are *entity.ConfigurationError.
func (r *Runner) Resolve(req RunRequest) (entity.SourceConfig, error) {
	src, err := r.sources.Lookup(req.SourceURL)
	if err != nil {
		return entity.SourceConfig{}, err
	}
	if req.MaxPages < 1 || req.MaxPages > MaxPagesLimit {
		return entity.SourceConfig{}, &entity.ConfigurationError{
			Field:  "max_pages",
			Reason: fmt.Sprintf("must be between 1 and %d", MaxPagesLimit),
		}
	}
	if req.DelayMs < 0 || req.DelayMs > MaxDelayMs {
		return entity.SourceConfig{}, &entity.ConfigurationError{
			Field:  "delay_ms",
			Reason: fmt.Sprintf("must be between 0 and %d", MaxDelayMs),
		}
	}
	kind, err := entity.ParseEngineKind(string(req.Engine))
	if err != nil {
		return entity.SourceConfig{}, err
	}
	return entity.SourceConfig{
		Source:     *src,
		ListingURL: req.SourceURL,
		MaxPages:   req.MaxPages,
		Delay:      time.Duration(req.DelayMs) * time.Millisecond,
		Engine:     src.EngineSpec(kind),
	}, nil
}

// Run executes one run to completion. Configuration errors return a nil
// report. Aborted runs return both the finished report and the cause.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*entity.RunReport, error) {
	cfg, err := r.Resolve(req)
	if err != nil {
		return nil, err
	}

	report := &entity.RunReport{
		ID:         uuid.NewString(),
		ScheduleID: req.ScheduleID,
		SourceID:   cfg.Source.ID,
		EngineUsed: cfg.Engine.Kind(),
		Status:     entity.RunPending,
	}
	log := r.logger.With(
		zap.String("run_id", report.ID),
		zap.String("source_id", report.SourceID),
		zap.String("engine", string(report.EngineUsed)),
	)
	if req.ScheduleID != nil {
		log = log.With(zap.String("schedule_id", *req.ScheduleID))
	}

	engine, slots := r.engineFor(cfg.Engine)
	if err := slots.Acquire(ctx, 1); err != nil {
		report.StartedAt = r.now()
		r.finish(ctx, log, report, fmt.Errorf("wait for engine slot: %w", err))
		return report, err
	}
	gauge := r.metrics.EngineSlotsUsed.WithLabelValues(string(report.EngineUsed))
	gauge.Inc()
	runErr := func() error {
		defer func() {
			gauge.Dec()
			slots.Release(1)
		}()
		report.Status = entity.RunRunning
		report.StartedAt = r.now()
		log.Info("run started", zap.String("listing_url", cfg.ListingURL), zap.Int("max_pages", cfg.MaxPages))
		return r.execute(ctx, cfg, engine, report)
	}()
	r.finish(ctx, log, report, runErr)

	var unavailable *entity.EngineUnavailableError
	if runErr != nil && req.Fallback && errors.As(runErr, &unavailable) && report.EngineUsed == entity.EngineHeadless {
		log.Warn("headless engine unavailable, falling back to lightweight", zap.Error(runErr))
		req.Engine = entity.EngineLightweight
		req.Fallback = false
		return r.Run(ctx, req)
	}
	return report, runErr
}

func (r *Runner) engineFor(spec entity.EngineSpec) (acquisition.Engine, *semaphore.Weighted) {
	switch spec.(type) {
	case entity.HeadlessEngine:
		return r.headless, r.headlessSlots
	case entity.LightweightEngine:
		return r.lightweight, r.lightSlots
	default:
		panic(fmt.Sprintf("unknown engine spec %T", spec))
	}
}

func (r *Runner) execute(ctx context.Context, cfg entity.SourceConfig, engine acquisition.Engine, report *entity.RunReport) error {
	kws, err := r.keywords.FindActive(ctx)
	if err != nil {
		return asPersistence("load keywords", err)
	}
	matcher := keyword.NewMatcher(kws)

	pages, err := engine.Acquire(ctx, cfg)
	if err != nil {
		return err
	}

	for page := range pages {
		report.PagesVisited++
		if page.Err != nil {
			report.PerPageErrors = append(report.PerPageErrors, entity.PageError{
				Page:    page.Number,
				URL:     page.URL,
				Message: page.Err.Error(),
			})
			r.metrics.PageErrorsTotal.WithLabelValues(string(report.EngineUsed)).Inc()
			continue
		}
		for _, c := range page.Candidates {
			report.TotalCandidates++
			rec := r.normalize(c, matcher, report)
			outcome, err := r.ingester.Ingest(ctx, rec)
			if err != nil {
				return err
			}
			if outcome == entity.OutcomeCreated {
				report.NewItems++
			} else {
				report.DuplicateItems++
			}
		}
	}
	return nil
}

// normalize turns a raw candidate into a record. Unparseable dates fall back
// to the scrape date and are flagged; they never fail the run.
func (r *Runner) normalize(c entity.RawCandidate, matcher *keyword.Matcher, report *entity.RunReport) *entity.Record {
	scrapedAt := r.now()
	rec := &entity.Record{
		ExternalID:      c.ExternalID,
		SourceID:        c.SourceID,
		Title:           c.Title,
		Body:            c.Body,
		CanonicalURL:    c.URL,
		ScrapedAt:       scrapedAt,
		MatchedKeywords: matcher.Match(c.Title, c.Body),
	}
	if rec.SourceID == "" {
		rec.SourceID = report.SourceID
	}

	res, err := dateparse.Parse(c.RawDate)
	if err != nil {
		rec.PublishedAt = dateparse.Truncate(scrapedAt)
		rec.DateUnparsed = true
		report.UnparsedDates++
		return rec
	}
	rec.PublishedAt = res.Date
	if res.Ambiguous {
		rec.DateAmbiguous = true
		report.AmbiguousDates++
	}
	return rec
}

// finish seals the report and records it. Audit and history writes are
// best-effort and survive cancellation of ctx.
func (r *Runner) finish(ctx context.Context, log *zap.Logger, report *entity.RunReport, runErr error) {
	report.FinishedAt = r.now()
	if runErr != nil {
		report.Status = entity.RunAborted
		report.AbortReason = runErr.Error()
	} else {
		report.Status = entity.RunCompleted
	}

	r.metrics.RunsTotal.WithLabelValues(string(report.EngineUsed), string(report.Status)).Inc()
	r.metrics.RunDuration.WithLabelValues(string(report.EngineUsed)).Observe(report.Duration().Seconds())

	fields := []zap.Field{
		zap.String("status", string(report.Status)),
		zap.Int("pages_visited", report.PagesVisited),
		zap.Int("total_candidates", report.TotalCandidates),
		zap.Int("new_items", report.NewItems),
		zap.Int("duplicate_items", report.DuplicateItems),
		zap.Int("page_errors", len(report.PerPageErrors)),
		zap.Duration("duration", report.Duration()),
	}
	if runErr != nil {
		log.Error("run aborted", append(fields, zap.Error(runErr))...)
	} else {
		log.Info("run finished", fields...)
	}

	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bookkeepingTimeout)
	defer cancel()
	if r.audit != nil {
		if err := r.audit.Save(bctx, report); err != nil {
			log.Warn("failed to save run report", zap.Error(err))
		}
	}
	if r.history != nil {
		if err := r.history.Push(bctx, report); err != nil {
			log.Warn("failed to push run history", zap.Error(err))
		}
	}
}

// Recent returns the latest finished run reports, newest first.
func (r *Runner) Recent(ctx context.Context, limit int) ([]*entity.RunReport, error) {
	if r.history == nil {
		return nil, nil
	}
	return r.history.Recent(ctx, limit)
}

// Sources lists the allow-listed sources.
func (r *Runner) Sources() []entity.Source {
	return r.sources.All()
}
