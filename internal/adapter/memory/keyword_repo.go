package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/user/harvest-service/internal/entity"
)

// KeywordRepo implements repository.KeywordRepository.
type KeywordRepo struct {
	mu    sync.RWMutex
	items map[string]*entity.Keyword
}

func NewKeywordRepo(seed ...entity.Keyword) *KeywordRepo {
	r := &KeywordRepo{items: make(map[string]*entity.Keyword)}
	for _, k := range seed {
		k := k
		r.items[k.ID] = &k
	}
	return r
}

func (r *KeywordRepo) FindActive(ctx context.Context) ([]entity.Keyword, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []entity.Keyword
	for _, k := range r.items {
		if k.IsActive {
			out = append(out, *k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *KeywordRepo) IncrementMatchCount(ctx context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.incrementLocked(ids)
	return nil
}

func (r *KeywordRepo) incrementLocked(ids []string) {
	for _, id := range ids {
		if k, ok := r.items[id]; ok {
			k.MatchCount++
		}
	}
}

func (r *KeywordRepo) ResetMatchCount(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.items[id]
	if !ok {
		return entity.ErrNotFound
	}
	k.MatchCount = 0
	return nil
}

// MatchCount returns the current counter of id, or -1 if it does not exist.
func (r *KeywordRepo) MatchCount(id string) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if k, ok := r.items[id]; ok {
		return k.MatchCount
	}
	return -1
}
