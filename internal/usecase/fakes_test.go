package usecase

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/user/harvest-service/internal/acquisition"
	"github.com/user/harvest-service/internal/adapter/memory"
	"github.com/user/harvest-service/internal/entity"
	"github.com/user/harvest-service/internal/source"
	"github.com/user/harvest-service/pkg/metrics"
)

const listingURL = "https://news.portal.example/indeks"

var testSources = []entity.Source{
	{
		ID:       "portal",
		Hosts:    []string{"news.portal.example"},
		PagePath: "/%d",
		Selectors: entity.Selectors{
			Item: "article",
			Link: "a",
		},
	},
	{
		ID:               "spa",
		Hosts:            []string{"spa.example"},
		DefaultEngine:    entity.EngineHeadless,
		LoadMoreSelector: "button.more",
		Selectors: entity.Selectors{
			Item: "article",
			Link: "a",
		},
	},
}

// stubEngine yields fixed pages. When release is set, the sequence blocks on
// it before producing anything.
type stubEngine struct {
	mu          sync.Mutex
	pages       []acquisition.Page
	unavailable error
	started     chan struct{}
	release     chan struct{}
	calls       int
}

func (e *stubEngine) Acquire(ctx context.Context, cfg entity.SourceConfig) (iter.Seq[acquisition.Page], error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.unavailable != nil {
		return nil, &entity.EngineUnavailableError{Engine: cfg.Engine.Kind(), Err: e.unavailable}
	}
	if e.started != nil {
		e.started <- struct{}{}
	}
	return func(yield func(acquisition.Page) bool) {
		if e.release != nil {
			<-e.release
		}
		for i, p := range e.pages {
			if i >= cfg.MaxPages {
				return
			}
			if !yield(p) {
				return
			}
		}
	}, nil
}

func (e *stubEngine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func candidates(prefix string, page, n int, title string) []entity.RawCandidate {
	out := make([]entity.RawCandidate, n)
	for i := range out {
		out[i] = entity.RawCandidate{
			SourceID: "portal",
			Title:    fmt.Sprintf("%s %d", title, i),
			URL:      fmt.Sprintf("https://news.portal.example/read/%s-%d-%d", prefix, page, i),
			RawDate:  "Selasa, 2 September 2025",
			Page:     page,
		}
	}
	return out
}

type harness struct {
	runner      *Runner
	light       *stubEngine
	headless    *stubEngine
	keywords    *memory.KeywordRepo
	records     *memory.RecordRepo
	reports     *memory.RunReportRepo
	seen        *memory.SeenCache
	metrics     *metrics.Metrics
	headlessCap int64
}

func newHarness(t *testing.T, kws ...entity.Keyword) *harness {
	t.Helper()
	reg, err := source.NewRegistry(testSources)
	require.NoError(t, err)

	h := &harness{
		light:    &stubEngine{},
		headless: &stubEngine{},
		keywords: memory.NewKeywordRepo(kws...),
		reports:  memory.NewRunReportRepo(10),
		seen:     memory.NewSeenCache(),
		metrics:  metrics.New(prometheus.NewRegistry()),
	}
	h.records = memory.NewRecordRepo(h.keywords)
	logger := zaptest.NewLogger(t)
	h.runner = NewRunner(RunnerConfig{
		Sources:            reg,
		Lightweight:        h.light,
		Headless:           h.headless,
		LightweightWorkers: 4,
		HeadlessWorkers:    1,
		Keywords:           h.keywords,
		Ingester:           NewIngester(h.records, h.seen, time.Hour, h.metrics, logger),
		Audit:              h.reports,
		History:            h.reports,
		Metrics:            h.metrics,
		Logger:             logger,
	})
	return h
}

type failingKeywords struct{}

func (failingKeywords) FindActive(context.Context) ([]entity.Keyword, error) {
	return nil, errors.New("connection refused")
}
func (failingKeywords) IncrementMatchCount(context.Context, []string) error { return nil }
func (failingKeywords) ResetMatchCount(context.Context, string) error       { return nil }

type failingRecords struct{}

func (failingRecords) Exists(context.Context, string, string) (bool, error) { return false, nil }
func (failingRecords) InsertIfAbsent(context.Context, *entity.Record) (bool, error) {
	return false, errors.New("connection reset")
}
