// Package acquisition fetches listing pages from a source and turns them into
// raw candidates. Two strategies share one contract: Lightweight (plain HTTP
// plus HTML parsing) and Headless (a browser session held for the run).
package acquisition

import (
	"context"
	"iter"
	"sync/atomic"
	"time"

	"github.com/user/harvest-service/internal/entity"
)

// Page is one fetched listing page. Err is set when the page could not be
// fetched or parsed; the sequence continues past such pages unless the
// failure is terminal.
type Page struct {
	Number     int
	URL        string
	Candidates []entity.RawCandidate
	Err        error
}

// Engine is an acquisition strategy.
//
// Acquire returns a lazy, finite sequence of pages in order, at most
// cfg.MaxPages long, with cfg.Delay between consecutive fetches. The sequence
// can be ranged over once; later iterations yield nothing. An error is
// returned only when the engine cannot start at all.
type Engine interface {
	Acquire(ctx context.Context, cfg entity.SourceConfig) (iter.Seq[Page], error)
}

func singleUse(seq iter.Seq[Page]) iter.Seq[Page] {
	var used atomic.Bool
	return func(yield func(Page) bool) {
		if used.Swap(true) {
			return
		}
		seq(yield)
	}
}

// politeWait blocks for d or until ctx is done. It reports whether the run
// should continue.
func politeWait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
