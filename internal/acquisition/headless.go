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

// Headless drives a browser session for sources that paginate client side or
// render with JavaScript. Each run holds one session until its sequence is
// exhausted.
type Headless struct {
	browser repository.Browser
	logger  *zap.Logger
}

// NewHeadless creates the browser-based engine.
func NewHeadless(browser repository.Browser, logger *zap.Logger) *Headless {
	return &Headless{browser: browser, logger: logger}
}

// Acquire opens the browser session up front, so a missing browser is
// reported as *entity.EngineUnavailableError before any page is produced.
// The session is closed when iteration ends; callers must range over the
// returned sequence.
func (e *Headless) Acquire(ctx context.Context, cfg entity.SourceConfig) (iter.Seq[Page], error) {
	spec, ok := cfg.Engine.(entity.HeadlessEngine)
	if !ok {
		spec = entity.HeadlessEngine{LoadMoreSelector: cfg.Source.LoadMoreSelector, WaitSelector: cfg.Source.WaitSelector}
	}
	if err := e.browser.Available(); err != nil {
		return nil, &entity.EngineUnavailableError{Engine: entity.EngineHeadless, Err: err}
	}
	session, err := e.browser.Open(ctx)
	if err != nil {
		return nil, &entity.EngineUnavailableError{Engine: entity.EngineHeadless, Err: err}
	}

	return singleUse(func(yield func(Page) bool) {
		defer session.Close()
		yielded := make(map[string]struct{})

		for n := 1; n <= cfg.MaxPages; n++ {
			if n > 1 && !politeWait(ctx, cfg.Delay) {
				return
			}

			pageURL, stop, err := e.advance(ctx, session, cfg, spec, n)
			if stop {
				return
			}
			if err != nil {
				if !yield(Page{Number: n, URL: pageURL, Err: err}) {
					return
				}
				var te *entity.TransportError
				// With load-more pagination every later page depends on this one.
				if (errors.As(err, &te) && te.Terminal()) || spec.LoadMoreSelector != "" || ctx.Err() != nil {
					return
				}
				continue
			}

			html, err := session.HTML(ctx)
			if err != nil {
				if !yield(Page{Number: n, URL: pageURL, Err: fmt.Errorf("read dom: %w", err)}) {
					return
				}
				continue
			}
			all, err := Extract(html, pageURL, &cfg.Source, n)
			if err != nil {
				if !yield(Page{Number: n, URL: pageURL, Err: fmt.Errorf("page %d: %w", n, err)}) {
					return
				}
				continue
			}

			// "Load more" keeps earlier items in the DOM.
			fresh := all[:0]
			for _, c := range all {
				if _, dup := yielded[c.URL]; dup {
					continue
				}
				yielded[c.URL] = struct{}{}
				fresh = append(fresh, c)
			}
			if !yield(Page{Number: n, URL: pageURL, Candidates: fresh}) {
				return
			}
			if len(fresh) == 0 {
				return
			}
		}
	}), nil
}

// advance moves the session to page n, either by navigating or by clicking
// the load-more control. stop is true when the source has nothing more.
func (e *Headless) advance(ctx context.Context, session repository.BrowserSession, cfg entity.SourceConfig, spec entity.HeadlessEngine, n int) (string, bool, error) {
	if n == 1 || spec.LoadMoreSelector == "" {
		pageURL, err := cfg.Source.PageURL(cfg.ListingURL, n)
		if err != nil {
			return cfg.ListingURL, false, err
		}
		return pageURL, false, session.Navigate(ctx, pageURL, spec.WaitSelector)
	}

	more, err := session.Click(ctx, spec.LoadMoreSelector, spec.WaitSelector)
	if err != nil {
		return cfg.ListingURL, false, &entity.TransportError{URL: cfg.ListingURL, Err: fmt.Errorf("load more (page %d): %w", n, err)}
	}
	if !more {
		e.logger.Debug("load-more control gone, end of source", zap.String("source", cfg.Source.ID), zap.Int("page", n))
		return cfg.ListingURL, true, nil
	}
	return cfg.ListingURL, false, nil
}
