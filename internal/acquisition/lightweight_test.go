package acquisition

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/user/harvest-service/internal/entity"
)

func lightweightConfig(maxPages int, delay time.Duration) entity.SourceConfig {
	return entity.SourceConfig{
		Source:     testSource,
		ListingURL: "https://portal.example/indeks",
		MaxPages:   maxPages,
		Delay:      delay,
		Engine:     entity.LightweightEngine{},
	}
}

func collect(t *testing.T, e Engine, cfg entity.SourceConfig) []Page {
	t.Helper()
	seq, err := e.Acquire(context.Background(), cfg)
	require.NoError(t, err)
	var pages []Page
	for p := range seq {
		pages = append(pages, p)
	}
	return pages
}

func TestLightweightPagesInOrderWithDelay(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://portal.example/indeks":   listing("a", 15),
		"https://portal.example/indeks/2": listing("b", 15),
		"https://portal.example/indeks/3": listing("c", 15),
	}}
	e := NewLightweight(f, zaptest.NewLogger(t))

	start := time.Now()
	pages := collect(t, e, lightweightConfig(3, 30*time.Millisecond))
	elapsed := time.Since(start)

	require.Len(t, pages, 3)
	total := 0
	for i, p := range pages {
		assert.Equal(t, i+1, p.Number)
		assert.NoError(t, p.Err)
		total += len(p.Candidates)
	}
	assert.Equal(t, 45, total)
	assert.Equal(t, []string{
		"https://portal.example/indeks",
		"https://portal.example/indeks/2",
		"https://portal.example/indeks/3",
	}, f.calls)
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
}

func TestLightweightContinuesPastPageError(t *testing.T) {
	f := &fakeFetcher{
		pages: map[string]string{
			"https://portal.example/indeks":   listing("a", 2),
			"https://portal.example/indeks/3": listing("c", 2),
		},
		errs: map[string]error{
			"https://portal.example/indeks/2": &entity.TransportError{URL: "https://portal.example/indeks/2", StatusCode: http.StatusBadGateway},
		},
	}
	pages := collect(t, NewLightweight(f, zaptest.NewLogger(t)), lightweightConfig(3, 0))

	require.Len(t, pages, 3)
	assert.Error(t, pages[1].Err)
	assert.Len(t, pages[2].Candidates, 2)
}

func TestLightweightStopsOnTerminalError(t *testing.T) {
	f := &fakeFetcher{errs: map[string]error{
		"https://portal.example/indeks": &entity.TransportError{URL: "https://portal.example/indeks", StatusCode: http.StatusNotFound},
	}}
	pages := collect(t, NewLightweight(f, zaptest.NewLogger(t)), lightweightConfig(5, 0))

	require.Len(t, pages, 1)
	var te *entity.TransportError
	require.True(t, errors.As(pages[0].Err, &te))
	assert.True(t, te.Terminal())
	assert.Len(t, f.calls, 1)
}

func TestLightweightStopsOnEmptyPage(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{"https://portal.example/indeks": listing("a", 3)}}
	pages := collect(t, NewLightweight(f, zaptest.NewLogger(t)), lightweightConfig(5, 0))

	require.Len(t, pages, 2)
	assert.Empty(t, pages[1].Candidates)
}

func TestLightweightSequenceIsSingleUse(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{"https://portal.example/indeks": listing("a", 1)}}
	seq, err := NewLightweight(f, zaptest.NewLogger(t)).Acquire(context.Background(), lightweightConfig(1, 0))
	require.NoError(t, err)

	first, second := 0, 0
	for range seq {
		first++
	}
	for range seq {
		second++
	}
	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second)
}

func TestLightweightStopsWhenContextCancelledDuringDelay(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{"https://portal.example/indeks": listing("a", 1)}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	seq, err := NewLightweight(f, zaptest.NewLogger(t)).Acquire(ctx, lightweightConfig(3, time.Hour))
	require.NoError(t, err)

	var pages []Page
	for p := range seq {
		pages = append(pages, p)
		cancel()
	}
	assert.Len(t, pages, 1)
}
