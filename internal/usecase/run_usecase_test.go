package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/harvest-service/internal/acquisition"
	"github.com/user/harvest-service/internal/entity"
	"github.com/user/harvest-service/pkg/utils"
)

func manual(maxPages int) RunRequest {
	return RunRequest{SourceURL: listingURL, MaxPages: maxPages}
}

func TestRunCountsNewAndDuplicateItems(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.light.pages = []acquisition.Page{
		{Number: 1, Candidates: candidates("a", 1, 15, "Berita")},
		{Number: 2, Candidates: candidates("a", 2, 15, "Berita")},
		{Number: 3, Candidates: candidates("a", 3, 15, "Berita")},
	}

	// Ten items of page 2 are already stored.
	for _, c := range h.light.pages[1].Candidates[:10] {
		canon, err := utils.CanonicalURL(c.URL)
		require.NoError(t, err)
		_, err = h.records.InsertIfAbsent(ctx, &entity.Record{
			SourceID:     "portal",
			ExternalID:   utils.ContentID("portal", canon),
			CanonicalURL: canon,
		})
		require.NoError(t, err)
	}

	report, err := h.runner.Run(ctx, manual(3))
	require.NoError(t, err)
	assert.Equal(t, entity.RunCompleted, report.Status)
	assert.Equal(t, entity.EngineLightweight, report.EngineUsed)
	assert.Equal(t, 3, report.PagesVisited)
	assert.Equal(t, 45, report.TotalCandidates)
	assert.Equal(t, 35, report.NewItems)
	assert.Equal(t, 10, report.DuplicateItems)
	assert.Equal(t, 45, h.records.Count())
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
}

func TestRerunOfUnchangedSourceCreatesNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.light.pages = []acquisition.Page{
		{Number: 1, Candidates: candidates("a", 1, 5, "Berita")},
		{Number: 2, Candidates: candidates("a", 2, 5, "Berita")},
	}

	first, err := h.runner.Run(ctx, manual(2))
	require.NoError(t, err)
	assert.Equal(t, 10, first.NewItems)

	second, err := h.runner.Run(ctx, manual(2))
	require.NoError(t, err)
	assert.Zero(t, second.NewItems)
	assert.Equal(t, second.TotalCandidates, second.DuplicateItems)
	assert.Equal(t, 10, h.records.Count())
}

func TestRunIncrementsKeywordCountsOncePerNewRecord(t *testing.T) {
	kws := []entity.Keyword{
		{ID: "k-inflasi", Text: "inflasi", IsActive: true},
		{ID: "k-ekspor", Text: "ekspor", IsActive: false},
	}
	pages := []acquisition.Page{{Number: 1, Candidates: []entity.RawCandidate{
		{URL: "https://news.portal.example/read/1", Title: "Inflasi Agustus turun", RawDate: "2025-09-02"},
		{URL: "https://news.portal.example/read/2", Title: "Harga beras", Body: "Tekanan INFLASI pangan", RawDate: "2025-09-02"},
		{URL: "https://news.portal.example/read/3", Title: "Ekspor naik", RawDate: "2025-09-02"},
	}}}

	t.Run("sequential", func(t *testing.T) {
		h := newHarness(t, kws...)
		h.light.pages = pages
		_, err := h.runner.Run(context.Background(), manual(1))
		require.NoError(t, err)
		_, err = h.runner.Run(context.Background(), manual(1))
		require.NoError(t, err)

		assert.Equal(t, int64(2), h.keywords.MatchCount("k-inflasi"))
		assert.Zero(t, h.keywords.MatchCount("k-ekspor"))
	})

	t.Run("concurrent", func(t *testing.T) {
		h := newHarness(t, kws...)
		h.light.pages = pages

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := h.runner.Run(context.Background(), manual(1))
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(2), h.keywords.MatchCount("k-inflasi"))
		assert.Equal(t, 3, h.records.Count())
	})
}

func TestRunNormalizesDates(t *testing.T) {
	h := newHarness(t)
	h.light.pages = []acquisition.Page{{Number: 1, Candidates: []entity.RawCandidate{
		{URL: "https://news.portal.example/read/1", Title: "a", RawDate: "Selasa, 2 September 2025"},
		{URL: "https://news.portal.example/read/2", Title: "b", RawDate: "02/09/2025"},
		{URL: "https://news.portal.example/read/3", Title: "c", RawDate: "baru saja"},
	}}}
	scraped := time.Date(2025, 9, 3, 22, 30, 0, 0, time.FixedZone("WIB", 7*3600))
	h.runner.now = func() time.Time { return scraped }

	report, err := h.runner.Run(context.Background(), manual(1))
	require.NoError(t, err)
	assert.Equal(t, 1, report.UnparsedDates)
	assert.Equal(t, 1, report.AmbiguousDates)

	recs := h.records.All()
	require.Len(t, recs, 3)
	want := time.Date(2025, 9, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, want, recs[0].PublishedAt)
	assert.Equal(t, want, recs[1].PublishedAt)
	assert.True(t, recs[1].DateAmbiguous)

	assert.True(t, recs[2].DateUnparsed)
	assert.Equal(t, time.Date(2025, 9, 3, 0, 0, 0, 0, time.UTC), recs[2].PublishedAt)
}

func TestRunRecordsPageErrorsAndCompletes(t *testing.T) {
	h := newHarness(t)
	h.light.pages = []acquisition.Page{
		{Number: 1, URL: listingURL, Err: &entity.TransportError{URL: listingURL, StatusCode: 503}},
		{Number: 2, Candidates: candidates("b", 2, 3, "Berita")},
	}

	report, err := h.runner.Run(context.Background(), manual(2))
	require.NoError(t, err)
	assert.Equal(t, entity.RunCompleted, report.Status)
	require.Len(t, report.PerPageErrors, 1)
	assert.Equal(t, 1, report.PerPageErrors[0].Page)
	assert.Contains(t, report.PerPageErrors[0].Message, "503")
	assert.Equal(t, 3, report.NewItems)
}

func TestRunConfigurationErrorsCreateNothing(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name  string
		req   RunRequest
		field string
	}{
		{"unknown host", RunRequest{SourceURL: "https://evil.example/x", MaxPages: 1}, "source_url"},
		{"relative url", RunRequest{SourceURL: "/indeks", MaxPages: 1}, "source_url"},
		{"zero pages", RunRequest{SourceURL: listingURL, MaxPages: 0}, "max_pages"},
		{"too many pages", RunRequest{SourceURL: listingURL, MaxPages: MaxPagesLimit + 1}, "max_pages"},
		{"negative delay", RunRequest{SourceURL: listingURL, MaxPages: 1, DelayMs: -1}, "delay_ms"},
		{"unknown engine", RunRequest{SourceURL: listingURL, MaxPages: 1, Engine: "selenium"}, "engine"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := h.runner.Run(context.Background(), tt.req)
			assert.Nil(t, report)
			var cfgErr *entity.ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
	assert.Zero(t, h.light.Calls())
	assert.Empty(t, h.reports.Saved())
}

func TestRunAbortsOnEngineUnavailable(t *testing.T) {
	h := newHarness(t)
	h.headless.unavailable = errors.New("chrome not found")

	report, err := h.runner.Run(context.Background(), RunRequest{SourceURL: "https://spa.example/list", MaxPages: 2})
	var unavailable *entity.EngineUnavailableError
	require.True(t, errors.As(err, &unavailable))
	require.NotNil(t, report)
	assert.Equal(t, entity.RunAborted, report.Status)
	assert.Equal(t, entity.EngineHeadless, report.EngineUsed)
	assert.Contains(t, report.AbortReason, "chrome not found")
	assert.Zero(t, report.TotalCandidates)
	assert.Len(t, h.reports.Saved(), 1)
}

func TestRunFallsBackToLightweight(t *testing.T) {
	h := newHarness(t)
	h.headless.unavailable = errors.New("chrome not found")
	h.light.pages = []acquisition.Page{{Number: 1, Candidates: candidates("c", 1, 4, "Berita")}}

	report, err := h.runner.Run(context.Background(), RunRequest{
		SourceURL: "https://spa.example/list",
		MaxPages:  1,
		Fallback:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RunCompleted, report.Status)
	assert.Equal(t, entity.EngineLightweight, report.EngineUsed)
	assert.Equal(t, 4, report.NewItems)

	recent, err := h.runner.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, entity.RunCompleted, recent[0].Status)
	assert.Equal(t, entity.RunAborted, recent[1].Status)
}

func TestRunAbortsOnPersistenceFailure(t *testing.T) {
	t.Run("keywords", func(t *testing.T) {
		h := newHarness(t)
		h.runner.keywords = failingKeywords{}

		report, err := h.runner.Run(context.Background(), manual(1))
		var pe *entity.PersistenceError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, entity.RunAborted, report.Status)
		assert.Zero(t, h.light.Calls())
	})

	t.Run("records", func(t *testing.T) {
		h := newHarness(t)
		h.light.pages = []acquisition.Page{{Number: 1, Candidates: candidates("d", 1, 3, "Berita")}}
		h.runner.ingester = NewIngester(failingRecords{}, nil, 0, h.metrics, h.runner.logger)

		report, err := h.runner.Run(context.Background(), manual(1))
		var pe *entity.PersistenceError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, entity.RunAborted, report.Status)
		assert.Equal(t, 1, report.TotalCandidates)
		assert.Zero(t, report.NewItems)
	})
}

func TestHeadlessRunsAreCapped(t *testing.T) {
	h := newHarness(t)
	h.headless.started = make(chan struct{}, 2)
	h.headless.release = make(chan struct{})
	req := RunRequest{SourceURL: "https://spa.example/list", MaxPages: 1}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.runner.Run(context.Background(), req)
			assert.NoError(t, err)
		}()
	}

	<-h.headless.started
	select {
	case <-h.headless.started:
		t.Fatal("second headless run started while the first held the only slot")
	case <-time.After(50 * time.Millisecond):
	}

	close(h.headless.release)
	wg.Wait()
	assert.Equal(t, 2, h.headless.Calls())
}
