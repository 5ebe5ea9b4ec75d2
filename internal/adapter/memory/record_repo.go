package memory

import (
	"context"
	"sync"

	"github.com/user/harvest-service/internal/entity"
)

type recordKey struct {
	sourceID   string
	externalID string
}

// RecordRepo implements repository.RecordRepository. Keyword counters are
// bumped under the record lock so a create and its increments are one step.
type RecordRepo struct {
	mu       sync.Mutex
	items    map[recordKey]entity.Record
	order    []recordKey
	keywords *KeywordRepo
}

// NewRecordRepo creates a record store that increments counters in keywords.
// keywords may be nil.
func NewRecordRepo(keywords *KeywordRepo) *RecordRepo {
	return &RecordRepo{items: make(map[recordKey]entity.Record), keywords: keywords}
}

func (r *RecordRepo) Exists(ctx context.Context, sourceID, externalID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.items[recordKey{sourceID, externalID}]
	return ok, nil
}

func (r *RecordRepo) InsertIfAbsent(ctx context.Context, rec *entity.Record) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := recordKey{rec.SourceID, rec.ExternalID}
	if _, ok := r.items[key]; ok {
		return false, nil
	}
	c := *rec
	c.MatchedKeywords = append([]string(nil), rec.MatchedKeywords...)
	r.items[key] = c
	r.order = append(r.order, key)

	if r.keywords != nil && len(rec.MatchedKeywords) > 0 {
		r.keywords.mu.Lock()
		r.keywords.incrementLocked(rec.MatchedKeywords)
		r.keywords.mu.Unlock()
	}
	return true, nil
}

// Count returns the number of stored records.
func (r *RecordRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// All returns the stored records in insertion order.
func (r *RecordRepo) All() []entity.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.Record, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.items[k])
	}
	return out
}
