package memory

import (
	"context"
	"sync"
	"time"

	"github.com/user/harvest-service/internal/entity"
)

// RunReportRepo implements both repository.RunReportRepository and
// repository.RunHistory, keeping at most size reports for the history view.
type RunReportRepo struct {
	mu      sync.Mutex
	saved   []*entity.RunReport
	history []*entity.RunReport
	size    int
}

func NewRunReportRepo(size int) *RunReportRepo {
	if size <= 0 {
		size = 100
	}
	return &RunReportRepo{size: size}
}

func (r *RunReportRepo) Save(ctx context.Context, rep *entity.RunReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, cloneReport(rep))
	return nil
}

func (r *RunReportRepo) Push(ctx context.Context, rep *entity.RunReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append([]*entity.RunReport{cloneReport(rep)}, r.history...)
	if len(r.history) > r.size {
		r.history = r.history[:r.size]
	}
	return nil
}

func (r *RunReportRepo) Recent(ctx context.Context, limit int) ([]*entity.RunReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 || limit > len(r.history) {
		limit = len(r.history)
	}
	out := make([]*entity.RunReport, 0, limit)
	for _, rep := range r.history[:limit] {
		out = append(out, cloneReport(rep))
	}
	return out, nil
}

// Saved returns every audited report in save order.
func (r *RunReportRepo) Saved() []*entity.RunReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*entity.RunReport(nil), r.saved...)
}

func cloneReport(rep *entity.RunReport) *entity.RunReport {
	c := *rep
	c.PerPageErrors = append([]entity.PageError(nil), rep.PerPageErrors...)
	return &c
}

// SeenCache implements repository.SeenCache with per-key expiry.
type SeenCache struct {
	mu    sync.Mutex
	items map[recordKey]time.Time
	now   func() time.Time
}

func NewSeenCache() *SeenCache {
	return &SeenCache{items: make(map[recordKey]time.Time), now: time.Now}
}

func (c *SeenCache) IsSeen(ctx context.Context, sourceID, externalID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := recordKey{sourceID, externalID}
	exp, ok := c.items[key]
	if !ok {
		return false, nil
	}
	if !c.now().Before(exp) {
		delete(c.items, key)
		return false, nil
	}
	return true, nil
}

func (c *SeenCache) MarkSeen(ctx context.Context, sourceID, externalID string, expiry time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[recordKey{sourceID, externalID}] = c.now().Add(expiry)
	return nil
}
