package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/user/harvest-service/internal/entity"
)

const runHistoryKey = "harvest:runs:recent"

// RunHistoryImpl implements repository.RunHistory as a capped Redis list,
// newest first.
type RunHistoryImpl struct {
	client *redis.Client
	size   int64
}

func NewRunHistory(client *redis.Client, size int) *RunHistoryImpl {
	if size <= 0 {
		size = 100
	}
	return &RunHistoryImpl{client: client, size: int64(size)}
}

// Push prepends the report and trims the list in one pipeline.
func (r *RunHistoryImpl) Push(ctx context.Context, rep *entity.RunReport) error {
	payload, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encode run report: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, runHistoryKey, payload)
		p.LTrim(ctx, runHistoryKey, 0, r.size-1)
		return nil
	})
	return err
}

func (r *RunHistoryImpl) Recent(ctx context.Context, limit int) ([]*entity.RunReport, error) {
	if limit <= 0 || int64(limit) > r.size {
		limit = int(r.size)
	}
	items, err := r.client.LRange(ctx, runHistoryKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*entity.RunReport, 0, len(items))
	for _, raw := range items {
		var rep entity.RunReport
		if err := json.Unmarshal([]byte(raw), &rep); err != nil {
			return nil, fmt.Errorf("decode run report: %w", err)
		}
		out = append(out, &rep)
	}
	return out, nil
}

// Size returns the current length of the list.
func (r *RunHistoryImpl) Size(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, runHistoryKey).Result()
}
