package acquisition

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/user/harvest-service/internal/entity"
	"github.com/user/harvest-service/internal/repository"
)

// Lightweight fetches each page over HTTP. It holds no per-run state and is
// safe to share between concurrent runs.
type Lightweight struct {
	fetcher repository.PageFetcher
	logger  *zap.Logger
}

// NewLightweight creates the HTTP-based engine.
func NewLightweight(fetcher repository.PageFetcher, logger *zap.Logger) *Lightweight {
	return &Lightweight{fetcher: fetcher, logger: logger}
}

func (e *Lightweight) Acquire(ctx context.Context, cfg entity.SourceConfig) (iter.Seq[Page], error) {
	return singleUse(func(yield func(Page) bool) {
		for n := 1; n <= cfg.MaxPages; n++ {
			if n > 1 && !politeWait(ctx, cfg.Delay) {
				return
			}

			pageURL, err := cfg.Source.PageURL(cfg.ListingURL, n)
			if err != nil {
				yield(Page{Number: n, URL: cfg.ListingURL, Err: err})
				return
			}

			html, err := e.fetcher.FetchPage(ctx, pageURL)
			if err != nil {
				if !yield(Page{Number: n, URL: pageURL, Err: err}) {
					return
				}
				var te *entity.TransportError
				if errors.As(err, &te) && te.Terminal() {
					e.logger.Info("stopping acquisition on terminal page error",
						zap.String("source", cfg.Source.ID), zap.Int("page", n), zap.Int("status", te.StatusCode))
					return
				}
				if ctx.Err() != nil {
					return
				}
				continue
			}

			candidates, err := Extract(html, pageURL, &cfg.Source, n)
			if err != nil {
				if !yield(Page{Number: n, URL: pageURL, Err: fmt.Errorf("page %d: %w", n, err)}) {
					return
				}
				continue
			}
			if !yield(Page{Number: n, URL: pageURL, Candidates: candidates}) {
				return
			}
			if len(candidates) == 0 {
				e.logger.Debug("empty listing page, end of source", zap.String("source", cfg.Source.ID), zap.Int("page", n))
				return
			}
		}
	}), nil
}
