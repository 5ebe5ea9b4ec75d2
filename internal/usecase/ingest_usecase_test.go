package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/user/harvest-service/internal/adapter/memory"
	"github.com/user/harvest-service/internal/entity"
	"github.com/user/harvest-service/pkg/metrics"
	"github.com/user/harvest-service/pkg/utils"
)

type brokenSeen struct{}

func (brokenSeen) IsSeen(context.Context, string, string) (bool, error) {
	return false, errors.New("redis down")
}
func (brokenSeen) MarkSeen(context.Context, string, string, time.Duration) error {
	return errors.New("redis down")
}

func TestIngestDerivesContentIdentity(t *testing.T) {
	records := memory.NewRecordRepo(nil)
	ing := NewIngester(records, memory.NewSeenCache(), time.Hour, metrics.New(prometheus.NewRegistry()), zaptest.NewLogger(t))

	rec := &entity.Record{SourceID: "portal", CanonicalURL: "HTTPS://News.Portal.Example/read/1/?utm_source=x#top"}
	outcome, err := ing.Ingest(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, entity.OutcomeCreated, outcome)
	assert.Equal(t, "https://news.portal.example/read/1", rec.CanonicalURL)
	assert.Equal(t, utils.ContentID("portal", "https://news.portal.example/read/1"), rec.ExternalID)

	// Same article reached through a tracking link.
	again := &entity.Record{SourceID: "portal", CanonicalURL: "https://news.portal.example/read/1?utm_medium=feed"}
	outcome, err = ing.Ingest(context.Background(), again)
	require.NoError(t, err)
	assert.Equal(t, entity.OutcomeDuplicate, outcome)
	assert.Equal(t, 1, records.Count())
}

func TestIngestKeepsSourceProvidedID(t *testing.T) {
	records := memory.NewRecordRepo(nil)
	ing := NewIngester(records, nil, 0, metrics.New(prometheus.NewRegistry()), zaptest.NewLogger(t))

	rec := &entity.Record{SourceID: "portal", ExternalID: "art-42", CanonicalURL: "https://news.portal.example/a"}
	_, err := ing.Ingest(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "art-42", rec.ExternalID)

	// A different URL with the same id is still the same item.
	outcome, err := ing.Ingest(context.Background(), &entity.Record{SourceID: "portal", ExternalID: "art-42", CanonicalURL: "https://news.portal.example/b"})
	require.NoError(t, err)
	assert.Equal(t, entity.OutcomeDuplicate, outcome)
}

func TestIngestToleratesSeenCacheFailure(t *testing.T) {
	records := memory.NewRecordRepo(nil)
	ing := NewIngester(records, brokenSeen{}, time.Hour, metrics.New(prometheus.NewRegistry()), zaptest.NewLogger(t))

	outcome, err := ing.Ingest(context.Background(), &entity.Record{SourceID: "portal", CanonicalURL: "https://news.portal.example/a"})
	require.NoError(t, err)
	assert.Equal(t, entity.OutcomeCreated, outcome)
}

func TestIngestWrapsStoreFailure(t *testing.T) {
	ing := NewIngester(failingRecords{}, nil, 0, metrics.New(prometheus.NewRegistry()), zaptest.NewLogger(t))

	_, err := ing.Ingest(context.Background(), &entity.Record{SourceID: "portal", CanonicalURL: "https://news.portal.example/a"})
	var pe *entity.PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "insert record", pe.Op)
}
